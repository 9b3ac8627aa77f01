package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/overseer/pkg/models"
)

// PlanRepository handles database operations for study plans and their sessions
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository creates a new repository instance
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

type planRow struct {
	ID           int64          `db:"id"`
	OwnerID      int64          `db:"owner_id"`
	SubjectID    int64          `db:"subject_id"`
	Title        string         `db:"title"`
	ExamDate     sql.NullString `db:"exam_date"`
	TotalMinutes sql.NullInt64  `db:"total_minutes"`
}

func (r planRow) model() (models.StudyPlan, error) {
	var d timeDecoder
	p := models.StudyPlan{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		SubjectID:    r.SubjectID,
		Title:        r.Title,
		ExamDate:     d.ptr(r.ExamDate),
		TotalMinutes: intPtr(r.TotalMinutes),
		Sessions:     []models.StudySession{},
	}
	if d.err != nil {
		return p, fmt.Errorf("failed to decode plan %d: %w", r.ID, d.err)
	}
	return p, nil
}

type sessionRow struct {
	ID              int64          `db:"id"`
	OwnerID         int64          `db:"owner_id"`
	SubjectID       int64          `db:"subject_id"`
	PlanID          int64          `db:"plan_id"`
	Kind            string         `db:"kind"`
	Topic           sql.NullString `db:"topic"`
	Status          string         `db:"status"`
	ScheduledFor    string         `db:"scheduled_for"`
	DurationMinutes int            `db:"duration_minutes"`
	CompletedAt     sql.NullString `db:"completed_at"`
	Difficulty      sql.NullInt64  `db:"difficulty"`
	Notes           sql.NullString `db:"notes"`
}

func (r sessionRow) model() (models.StudySession, error) {
	var d timeDecoder
	s := models.StudySession{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		SubjectID:       r.SubjectID,
		PlanID:          r.PlanID,
		Kind:            r.Kind,
		Topic:           stringPtr(r.Topic),
		Status:          r.Status,
		ScheduledFor:    d.at(r.ScheduledFor),
		DurationMinutes: r.DurationMinutes,
		CompletedAt:     d.ptr(r.CompletedAt),
		Difficulty:      intPtr(r.Difficulty),
		Notes:           stringPtr(r.Notes),
	}
	if d.err != nil {
		return s, fmt.Errorf("failed to decode session %d: %w", r.ID, d.err)
	}
	return s, nil
}

const (
	planColumns    = "id, owner_id, subject_id, title, exam_date, total_minutes"
	sessionColumns = "id, owner_id, subject_id, plan_id, kind, topic, status, scheduled_for, " +
		"duration_minutes, completed_at, difficulty, notes"
)

// SessionUpdate carries the fields of a session that may change after planning.
// Nil fields are left untouched.
type SessionUpdate struct {
	Status       *string
	ScheduledFor *time.Time
	CompletedAt  *time.Time
	Difficulty   *int
	Notes        *string
}

// CreateWithSessions inserts a plan and all of its sessions in one transaction.
// IDs are written back into plan and plan.Sessions.
func (r *PlanRepository) CreateWithSessions(ctx context.Context, plan *models.StudyPlan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	planQuery := tx.Rebind(`
		INSERT INTO study_plans (owner_id, subject_id, title, exam_date, total_minutes)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)
	err = tx.QueryRowxContext(ctx, planQuery,
		plan.OwnerID, plan.SubjectID, plan.Title, nullTime(plan.ExamDate), nullInt(plan.TotalMinutes),
	).Scan(&plan.ID)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	sessionQuery := tx.Rebind(`
		INSERT INTO study_sessions (owner_id, subject_id, plan_id, kind, topic, status, scheduled_for, duration_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	for i := range plan.Sessions {
		s := &plan.Sessions[i]
		s.OwnerID, s.SubjectID, s.PlanID = plan.OwnerID, plan.SubjectID, plan.ID
		if s.Status == "" {
			s.Status = models.SessionPlanned
		}
		err := tx.QueryRowxContext(ctx, sessionQuery,
			s.OwnerID, s.SubjectID, s.PlanID, s.Kind, nullString(s.Topic), s.Status,
			formatTime(s.ScheduledFor), s.DurationMinutes,
		).Scan(&s.ID)
		if err != nil {
			return fmt.Errorf("failed to create session %d of plan: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan: %w", err)
	}
	return nil
}

// Get returns a plan with its sessions ordered by scheduled time
func (r *PlanRepository) Get(ctx context.Context, ownerID, id int64) (*models.StudyPlan, error) {
	var row planRow
	query := r.db.Rebind("SELECT " + planColumns + " FROM study_plans WHERE id = ? AND owner_id = ?")
	if err := r.db.GetContext(ctx, &row, query, id, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get plan %d: %w", id, notFound(err))
	}
	plan, err := row.model()
	if err != nil {
		return nil, err
	}

	sessions, err := r.sessions(ctx, "owner_id = ? AND plan_id = ?", ownerID, id)
	if err != nil {
		return nil, err
	}
	plan.Sessions = sessions
	return &plan, nil
}

// List returns the owner's plans with their sessions, optionally restricted to one subject
func (r *PlanRepository) List(ctx context.Context, ownerID int64, subjectID *int64) ([]models.StudyPlan, error) {
	cond, args := "owner_id = ?", []any{ownerID}
	if subjectID != nil {
		cond += " AND subject_id = ?"
		args = append(args, *subjectID)
	}

	var rows []planRow
	query := r.db.Rebind("SELECT " + planColumns + " FROM study_plans WHERE " + cond + " ORDER BY id")
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	sessions, err := r.sessions(ctx, cond, args...)
	if err != nil {
		return nil, err
	}
	byPlan := make(map[int64][]models.StudySession)
	for _, s := range sessions {
		byPlan[s.PlanID] = append(byPlan[s.PlanID], s)
	}

	plans := make([]models.StudyPlan, 0, len(rows))
	for _, row := range rows {
		p, err := row.model()
		if err != nil {
			return nil, err
		}
		if s, ok := byPlan[p.ID]; ok {
			p.Sessions = s
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// Update modifies the title, exam date and total minutes of a plan
func (r *PlanRepository) Update(ctx context.Context, plan *models.StudyPlan) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE study_plans SET title = ?, exam_date = ?, total_minutes = ? WHERE id = ? AND owner_id = ?"),
		plan.Title, nullTime(plan.ExamDate), nullInt(plan.TotalMinutes), plan.ID, plan.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return requireRow(res)
}

// Delete removes a plan and its sessions
func (r *PlanRepository) Delete(ctx context.Context, ownerID, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM study_plans WHERE id = ? AND owner_id = ?"), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		tx.Rebind("DELETE FROM study_sessions WHERE plan_id = ? AND owner_id = ?"), id, ownerID); err != nil {
		return fmt.Errorf("failed to delete sessions of plan %d: %w", id, err)
	}
	return tx.Commit()
}

// GetSession returns one session of the owner
func (r *PlanRepository) GetSession(ctx context.Context, ownerID, id int64) (*models.StudySession, error) {
	var row sessionRow
	query := r.db.Rebind("SELECT " + sessionColumns + " FROM study_sessions WHERE id = ? AND owner_id = ?")
	if err := r.db.GetContext(ctx, &row, query, id, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", id, notFound(err))
	}
	s, err := row.model()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSession applies the non-nil fields of upd to one session
func (r *PlanRepository) UpdateSession(ctx context.Context, ownerID, id int64, upd SessionUpdate) error {
	var sets []string
	var args []any
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	if upd.ScheduledFor != nil {
		sets = append(sets, "scheduled_for = ?")
		args = append(args, formatTime(*upd.ScheduledFor))
	}
	if upd.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, formatTime(*upd.CompletedAt))
	}
	if upd.Difficulty != nil {
		sets = append(sets, "difficulty = ?")
		args = append(args, *upd.Difficulty)
	}
	if upd.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *upd.Notes)
	}
	if len(sets) == 0 {
		// Nothing to change, but the session must still exist.
		_, err := r.GetSession(ctx, ownerID, id)
		return err
	}

	args = append(args, id, ownerID)
	query := r.db.Rebind("UPDATE study_sessions SET " + strings.Join(sets, ", ") + " WHERE id = ? AND owner_id = ?")
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return requireRow(res)
}

// DueSessions returns planned sessions scheduled at or before until, earliest first
func (r *PlanRepository) DueSessions(ctx context.Context, ownerID int64, until time.Time) ([]models.StudySession, error) {
	return r.sessions(ctx, "owner_id = ? AND status = ? AND scheduled_for <= ?",
		ownerID, models.SessionPlanned, formatTime(until))
}

// SessionsBySubject returns every session of one subject
func (r *PlanRepository) SessionsBySubject(ctx context.Context, ownerID, subjectID int64) ([]models.StudySession, error) {
	return r.sessions(ctx, "owner_id = ? AND subject_id = ?", ownerID, subjectID)
}

func (r *PlanRepository) sessions(ctx context.Context, cond string, args ...any) ([]models.StudySession, error) {
	var rows []sessionRow
	query := r.db.Rebind("SELECT " + sessionColumns + " FROM study_sessions WHERE " + cond + " ORDER BY scheduled_for, id")
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sessions := make([]models.StudySession, 0, len(rows))
	for _, row := range rows {
		s, err := row.model()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
