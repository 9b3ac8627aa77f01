package models

import "time"

// Card is a flashcard together with its repetition state.
// Version increases on every stored review and guards concurrent updates.
type Card struct {
	ID           int64     `json:"id" db:"id"`
	OwnerID      int64     `json:"owner_id" db:"owner_id"`
	SubjectID    int64     `json:"subject_id" db:"subject_id"`
	Front        string    `json:"front" db:"front"`
	Back         string    `json:"back" db:"back"`
	DueAt        time.Time `json:"due_at" db:"due_at"`
	IntervalDays int       `json:"interval_days" db:"interval_days"`
	Ease         float64   `json:"ease" db:"ease"`
	Streak       int       `json:"streak" db:"streak"`
	LastScore    *int      `json:"last_score" db:"last_score"`
	Version      int64     `json:"-" db:"version"`
}
