package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/overseer/pkg/models"
)

// SubjectRepository handles database operations for study subjects
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = "id, owner_id, name, description, ue_code"

// Create inserts a new subject and sets its ID
func (r *SubjectRepository) Create(ctx context.Context, s *models.Subject) error {
	query := r.db.Rebind(`
		INSERT INTO subjects (owner_id, name, description, ue_code)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, s.OwnerID, s.Name, s.Description, s.UECode).Scan(&s.ID); err != nil {
		return fmt.Errorf("failed to create subject: %w", err)
	}
	return nil
}

// Get returns one subject of the owner
func (r *SubjectRepository) Get(ctx context.Context, ownerID, id int64) (*models.Subject, error) {
	var s models.Subject
	query := r.db.Rebind("SELECT " + subjectColumns + " FROM subjects WHERE id = ? AND owner_id = ?")
	if err := r.db.GetContext(ctx, &s, query, id, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get subject %d: %w", id, notFound(err))
	}
	return &s, nil
}

// List returns the owner's subjects ordered by name
func (r *SubjectRepository) List(ctx context.Context, ownerID int64) ([]models.Subject, error) {
	subjects := []models.Subject{}
	query := r.db.Rebind("SELECT " + subjectColumns + " FROM subjects WHERE owner_id = ? ORDER BY name, id")
	if err := r.db.SelectContext(ctx, &subjects, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return subjects, nil
}

// Update modifies the name, description and code of a subject
func (r *SubjectRepository) Update(ctx context.Context, s *models.Subject) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE subjects SET name = ?, description = ?, ue_code = ? WHERE id = ? AND owner_id = ?"),
		s.Name, s.Description, s.UECode, s.ID, s.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update subject: %w", err)
	}
	return requireRow(res)
}

// Delete removes a subject together with its plans, sessions and cards
func (r *SubjectRepository) Delete(ctx context.Context, ownerID, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM subjects WHERE id = ? AND owner_id = ?"), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete subject: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	for _, table := range []string{"study_sessions", "cards", "study_plans"} {
		q := tx.Rebind("DELETE FROM " + table + " WHERE subject_id = ? AND owner_id = ?")
		if _, err := tx.ExecContext(ctx, q, id, ownerID); err != nil {
			return fmt.Errorf("failed to delete %s of subject %d: %w", table, id, err)
		}
	}
	return tx.Commit()
}
