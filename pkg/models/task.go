package models

import "time"

// Task statuses.
const (
	TaskTodo       = "a_faire"
	TaskInProgress = "en_cours"
	TaskDone       = "terminee"
)

// Task is a to-do item. Deadline and DurationMinutes are optional.
type Task struct {
	ID              int64      `json:"id" db:"id"`
	OwnerID         int64      `json:"owner_id" db:"owner_id"`
	Title           string     `json:"title" db:"title"`
	Status          string     `json:"status" db:"status"`
	Priority        string     `json:"priority" db:"priority"`
	Deadline        *time.Time `json:"deadline,omitempty" db:"deadline"`
	DurationMinutes *int       `json:"duration_minutes,omitempty" db:"duration_minutes"`
	ProjectID       *int64     `json:"project_id,omitempty" db:"project_id"`
}
