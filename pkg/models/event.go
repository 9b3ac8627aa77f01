package models

import "time"

// Event kinds. Any kind other than EventProposed counts as time actually spent.
const (
	EventFixed    = "fixe"
	EventProposed = "propose"
)

// Event is a calendar block, optionally attached to a task.
type Event struct {
	ID      int64     `json:"id" db:"id"`
	OwnerID int64     `json:"owner_id" db:"owner_id"`
	Title   string    `json:"title" db:"title"`
	Kind    string    `json:"kind" db:"kind"`
	Start   time.Time `json:"start" db:"start_at"`
	End     time.Time `json:"end" db:"end_at"`
	TaskID  *int64    `json:"task_id,omitempty" db:"task_id"`
}
