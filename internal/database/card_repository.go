package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/overseer/pkg/models"
)

// CardRepository handles database operations for flashcards
type CardRepository struct {
	db *sqlx.DB
}

// NewCardRepository creates a new repository instance
func NewCardRepository(db *sqlx.DB) *CardRepository {
	return &CardRepository{db: db}
}

type cardRow struct {
	ID           int64         `db:"id"`
	OwnerID      int64         `db:"owner_id"`
	SubjectID    int64         `db:"subject_id"`
	Front        string        `db:"front"`
	Back         string        `db:"back"`
	DueAt        string        `db:"due_at"`
	IntervalDays int           `db:"interval_days"`
	Ease         float64       `db:"ease"`
	Streak       int           `db:"streak"`
	LastScore    sql.NullInt64 `db:"last_score"`
	Version      int64         `db:"version"`
}

func (r cardRow) model() (models.Card, error) {
	var d timeDecoder
	c := models.Card{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		SubjectID:    r.SubjectID,
		Front:        r.Front,
		Back:         r.Back,
		DueAt:        d.at(r.DueAt),
		IntervalDays: r.IntervalDays,
		Ease:         r.Ease,
		Streak:       r.Streak,
		LastScore:    intPtr(r.LastScore),
		Version:      r.Version,
	}
	if d.err != nil {
		return c, fmt.Errorf("failed to decode card %d: %w", r.ID, d.err)
	}
	return c, nil
}

const cardColumns = "id, owner_id, subject_id, front, back, due_at, interval_days, ease, streak, last_score, version"

// Create inserts a new card and sets its ID and version
func (r *CardRepository) Create(ctx context.Context, c *models.Card) error {
	query := r.db.Rebind(`
		INSERT INTO cards (owner_id, subject_id, front, back, due_at, interval_days, ease, streak, last_score, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query,
		c.OwnerID, c.SubjectID, c.Front, c.Back, formatTime(c.DueAt),
		c.IntervalDays, c.Ease, c.Streak, nullInt(c.LastScore),
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	c.Version = 0
	return nil
}

// Get returns one card of the owner
func (r *CardRepository) Get(ctx context.Context, ownerID, id int64) (*models.Card, error) {
	var row cardRow
	query := r.db.Rebind("SELECT " + cardColumns + " FROM cards WHERE id = ? AND owner_id = ?")
	if err := r.db.GetContext(ctx, &row, query, id, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get card %d: %w", id, notFound(err))
	}
	c, err := row.model()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns the owner's cards, optionally restricted to one subject
func (r *CardRepository) List(ctx context.Context, ownerID int64, subjectID *int64) ([]models.Card, error) {
	if subjectID != nil {
		return r.list(ctx, "owner_id = ? AND subject_id = ?", ownerID, *subjectID)
	}
	return r.list(ctx, "owner_id = ?", ownerID)
}

// Due returns the cards due at or before now. Ordering for review is left to the caller.
func (r *CardRepository) Due(ctx context.Context, ownerID int64, subjectID *int64, now time.Time) ([]models.Card, error) {
	if subjectID != nil {
		return r.list(ctx, "owner_id = ? AND subject_id = ? AND due_at <= ?", ownerID, *subjectID, formatTime(now))
	}
	return r.list(ctx, "owner_id = ? AND due_at <= ?", ownerID, formatTime(now))
}

// CountDue returns how many of the owner's cards are due at now
func (r *CardRepository) CountDue(ctx context.Context, ownerID int64, now time.Time) (int, error) {
	var n int
	query := r.db.Rebind("SELECT COUNT(*) FROM cards WHERE owner_id = ? AND due_at <= ?")
	if err := r.db.GetContext(ctx, &n, query, ownerID, formatTime(now)); err != nil {
		return 0, fmt.Errorf("failed to count due cards: %w", err)
	}
	return n, nil
}

// ExistsFront reports whether the subject already holds a card with this front
func (r *CardRepository) ExistsFront(ctx context.Context, ownerID, subjectID int64, front string) (bool, error) {
	var n int
	query := r.db.Rebind("SELECT COUNT(*) FROM cards WHERE owner_id = ? AND subject_id = ? AND front = ?")
	if err := r.db.GetContext(ctx, &n, query, ownerID, subjectID, front); err != nil {
		return false, fmt.Errorf("failed to check card: %w", err)
	}
	return n > 0, nil
}

// UpdateReview stores the repetition state of c if the stored version still
// equals c.Version. On success c.Version is incremented; otherwise ErrConflict
// is returned, or ErrNotFound when the card no longer exists.
func (r *CardRepository) UpdateReview(ctx context.Context, c *models.Card) error {
	query := r.db.Rebind(`
		UPDATE cards
		SET interval_days = ?, ease = ?, streak = ?, last_score = ?, due_at = ?, version = version + 1
		WHERE id = ? AND owner_id = ? AND version = ?`)
	res, err := r.db.ExecContext(ctx, query,
		c.IntervalDays, c.Ease, c.Streak, nullInt(c.LastScore), formatTime(c.DueAt),
		c.ID, c.OwnerID, c.Version)
	if err != nil {
		return fmt.Errorf("failed to update card review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, c.OwnerID, c.ID); err != nil {
			return err
		}
		return ErrConflict
	}
	c.Version++
	return nil
}

// Delete removes one card
func (r *CardRepository) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM cards WHERE id = ? AND owner_id = ?"), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return requireRow(res)
}

func (r *CardRepository) list(ctx context.Context, cond string, args ...any) ([]models.Card, error) {
	var rows []cardRow
	query := r.db.Rebind("SELECT " + cardColumns + " FROM cards WHERE " + cond + " ORDER BY due_at, id")
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	cards := make([]models.Card, 0, len(rows))
	for _, row := range rows {
		c, err := row.model()
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}
