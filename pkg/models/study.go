package models

import "time"

// Session kinds produced by the planner.
const (
	SessionRevision = "revision"
	SessionReminder = "rappel"
	SessionQuiz     = "quiz"
)

// Session statuses.
const (
	SessionPlanned = "planned"
	SessionDone    = "done"
	SessionSkipped = "skipped"
)

// StudyPlan is a generated set of sessions for one subject.
type StudyPlan struct {
	ID           int64          `json:"id" db:"id"`
	OwnerID      int64          `json:"owner_id" db:"owner_id"`
	SubjectID    int64          `json:"subject_id" db:"subject_id"`
	Title        string         `json:"title" db:"title"`
	ExamDate     *time.Time     `json:"exam_date,omitempty" db:"exam_date"`
	TotalMinutes *int           `json:"total_minutes,omitempty" db:"total_minutes"`
	Sessions     []StudySession `json:"sessions" db:"-"`
}

// StudySession is a persisted scheduled session.
type StudySession struct {
	ID              int64      `json:"id" db:"id"`
	OwnerID         int64      `json:"owner_id" db:"owner_id"`
	SubjectID       int64      `json:"subject_id" db:"subject_id"`
	PlanID          int64      `json:"plan_id" db:"plan_id"`
	Kind            string     `json:"kind" db:"kind"`
	Topic           *string    `json:"topic" db:"topic"`
	Status          string     `json:"status" db:"status"`
	ScheduledFor    time.Time  `json:"scheduled_for" db:"scheduled_for"`
	DurationMinutes int        `json:"duration_minutes" db:"duration_minutes"`
	CompletedAt     *time.Time `json:"completed_at" db:"completed_at"`
	Difficulty      *int       `json:"difficulty" db:"difficulty"`
	Notes           *string    `json:"notes" db:"notes"`
}
