package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/overseer/pkg/models"
)

// EventRepository handles database operations for calendar events
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new repository instance
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

type eventRow struct {
	ID      int64         `db:"id"`
	OwnerID int64         `db:"owner_id"`
	Title   string        `db:"title"`
	Kind    string        `db:"kind"`
	StartAt string        `db:"start_at"`
	EndAt   string        `db:"end_at"`
	TaskID  sql.NullInt64 `db:"task_id"`
}

func (r eventRow) model() (models.Event, error) {
	var d timeDecoder
	e := models.Event{
		ID:      r.ID,
		OwnerID: r.OwnerID,
		Title:   r.Title,
		Kind:    r.Kind,
		Start:   d.at(r.StartAt),
		End:     d.at(r.EndAt),
		TaskID:  idPtr(r.TaskID),
	}
	if d.err != nil {
		return e, fmt.Errorf("failed to decode event %d: %w", r.ID, d.err)
	}
	return e, nil
}

const eventColumns = "id, owner_id, title, kind, start_at, end_at, task_id"

// Create inserts a new event and sets its ID. Kind defaults to models.EventFixed.
func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	if e.Kind == "" {
		e.Kind = models.EventFixed
	}
	query := r.db.Rebind(`
		INSERT INTO events (owner_id, title, kind, start_at, end_at, task_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query,
		e.OwnerID, e.Title, e.Kind, formatTime(e.Start), formatTime(e.End), nullID(e.TaskID),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// List returns all events of the owner ordered by start
func (r *EventRepository) List(ctx context.Context, ownerID int64) ([]models.Event, error) {
	return r.list(ctx, "owner_id = ?", ownerID)
}

// ListRange returns the owner's events starting in [from, to)
func (r *EventRepository) ListRange(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Event, error) {
	return r.list(ctx, "owner_id = ? AND start_at >= ? AND start_at < ?", ownerID, formatTime(from), formatTime(to))
}

func (r *EventRepository) list(ctx context.Context, cond string, args ...any) ([]models.Event, error) {
	var rows []eventRow
	query := r.db.Rebind("SELECT " + eventColumns + " FROM events WHERE " + cond + " ORDER BY start_at, id")
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	events := make([]models.Event, 0, len(rows))
	for _, row := range rows {
		e, err := row.model()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
