package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/overseer/pkg/models"
)

// TaskRepository handles database operations for tasks
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new repository instance
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

type taskRow struct {
	ID              int64          `db:"id"`
	OwnerID         int64          `db:"owner_id"`
	Title           string         `db:"title"`
	Status          string         `db:"status"`
	Priority        string         `db:"priority"`
	Deadline        sql.NullString `db:"deadline"`
	DurationMinutes sql.NullInt64  `db:"duration_minutes"`
	ProjectID       sql.NullInt64  `db:"project_id"`
}

func (r taskRow) model() (models.Task, error) {
	var d timeDecoder
	t := models.Task{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		Title:           r.Title,
		Status:          r.Status,
		Priority:        r.Priority,
		Deadline:        d.ptr(r.Deadline),
		DurationMinutes: intPtr(r.DurationMinutes),
		ProjectID:       idPtr(r.ProjectID),
	}
	if d.err != nil {
		return t, fmt.Errorf("failed to decode task %d: %w", r.ID, d.err)
	}
	return t, nil
}

const taskColumns = "id, owner_id, title, status, priority, deadline, duration_minutes, project_id"

// Create inserts a new task and sets its ID. Status and priority default when empty.
func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	if t.Priority == "" {
		t.Priority = "normale"
	}
	query := r.db.Rebind(`
		INSERT INTO tasks (owner_id, title, status, priority, deadline, duration_minutes, project_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query,
		t.OwnerID, t.Title, t.Status, t.Priority,
		nullTime(t.Deadline), nullInt(t.DurationMinutes), nullID(t.ProjectID),
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// List returns all tasks of the owner
func (r *TaskRepository) List(ctx context.Context, ownerID int64) ([]models.Task, error) {
	var rows []taskRow
	query := r.db.Rebind("SELECT " + taskColumns + " FROM tasks WHERE owner_id = ? ORDER BY id")
	if err := r.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasks := make([]models.Task, 0, len(rows))
	for _, row := range rows {
		t, err := row.model()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// UpdateStatus sets the status of one task
func (r *TaskRepository) UpdateStatus(ctx context.Context, ownerID, id int64, status string) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE tasks SET status = ? WHERE id = ? AND owner_id = ?"),
		status, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return requireRow(res)
}
