// Package feedback reconciles planned and actual time over a day, week or month.
//
// Analyze is a pure function of its inputs; callers convert their stored
// records to TaskSnapshot and EventSnapshot once, at the boundary.
package feedback

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/example/overseer/pkg/models"
)

const (
	// Estimates within this relative distance of the actual time are not flagged.
	estimateTolerance = 0.1
	maxHabitWindows   = 3
	bucketHours       = 2
	bucketCount       = 24 / bucketHours

	adjustmentNote = "Adjust the estimate to match the time actually spent"
)

// TaskSnapshot is the part of a task the analyzer reads.
type TaskSnapshot struct {
	ID              int64
	Title           string
	Status          string
	Deadline        *time.Time
	DurationMinutes *int
}

// EventSnapshot is the part of a calendar event the analyzer reads.
type EventSnapshot struct {
	Kind   string
	Start  time.Time
	End    time.Time
	TaskID *int64
}

// TaskFromModel converts a stored task.
func TaskFromModel(t models.Task) TaskSnapshot {
	return TaskSnapshot{
		ID:              t.ID,
		Title:           t.Title,
		Status:          t.Status,
		Deadline:        t.Deadline,
		DurationMinutes: t.DurationMinutes,
	}
}

// EventFromModel converts a stored event.
func EventFromModel(e models.Event) EventSnapshot {
	return EventSnapshot{Kind: e.Kind, Start: e.Start, End: e.End, TaskID: e.TaskID}
}

// DeferredTask is an unfinished task whose deadline passed before the window.
type DeferredTask struct {
	ID       int64      `json:"id"`
	Title    string     `json:"title"`
	Deadline *time.Time `json:"deadline"`
	Status   string     `json:"status"`
	LateDays int        `json:"late_days"`
}

// EstimateAdjustment flags a task whose logged time differs from its estimate.
type EstimateAdjustment struct {
	TaskID           int64   `json:"task_id"`
	Title            string  `json:"title"`
	PlannedMinutes   int     `json:"planned_minutes"`
	ActualMinutes    float64 `json:"actual_minutes"`
	DeltaMinutes     float64 `json:"delta_minutes"`
	Ratio            float64 `json:"ratio"`
	SuggestedMinutes int     `json:"suggested_minutes"`
	Note             string  `json:"note"`
}

// HabitWindow is a two-hour slot of the day ranked by time actually spent.
type HabitWindow struct {
	Window string  `json:"window"`
	Events int     `json:"events"`
	Hours  float64 `json:"hours"`
}

// Stats is the analyzer output.
type Stats struct {
	Scope               Scope                `json:"scope"`
	Start               time.Time            `json:"start"`
	End                 time.Time            `json:"end"`
	PlannedHours        float64              `json:"planned_hours"`
	ActualHours         float64              `json:"actual_hours"`
	TasksPlanned        int                  `json:"tasks_planned"`
	TasksDone           int                  `json:"tasks_done"`
	CompletionRate      float64              `json:"completion_rate"`
	DeferredTasks       []DeferredTask       `json:"deferred_tasks"`
	EstimateAdjustments []EstimateAdjustment `json:"estimate_adjustments"`
	HabitWindows        []HabitWindow        `json:"habit_windows"`
}

// Analyze computes the feedback statistics for the window of scope around anchor.
// Events outside the window only contribute to estimate adjustments.
func Analyze(scope Scope, anchor time.Time, tasks []TaskSnapshot, events []EventSnapshot) Stats {
	w := WindowFor(anchor, scope)
	stats := Stats{
		Scope:               scope,
		Start:               w.Start,
		End:                 w.End,
		DeferredTasks:       []DeferredTask{},
		EstimateAdjustments: []EstimateAdjustment{},
		HabitWindows:        []HabitWindow{},
	}

	var planned, actual []EventSnapshot
	for _, e := range events {
		if !w.Contains(e.Start) {
			continue
		}
		if e.Kind == models.EventProposed {
			planned = append(planned, e)
		} else {
			actual = append(actual, e)
		}
	}
	stats.PlannedHours = round(sumHours(planned), 2)
	stats.ActualHours = round(sumHours(actual), 2)

	for _, t := range tasks {
		if t.Deadline == nil || w.Contains(*t.Deadline) {
			stats.TasksPlanned++
			if t.Status == models.TaskDone {
				stats.TasksDone++
			}
		}
		if t.Status != models.TaskDone && t.Deadline != nil && t.Deadline.Before(w.Start) {
			stats.DeferredTasks = append(stats.DeferredTasks, DeferredTask{
				ID:       t.ID,
				Title:    t.Title,
				Deadline: t.Deadline,
				Status:   t.Status,
				LateDays: int(w.Start.Sub(*t.Deadline) / (24 * time.Hour)),
			})
		}
	}
	if stats.TasksPlanned > 0 {
		stats.CompletionRate = round(float64(stats.TasksDone)/float64(stats.TasksPlanned), 3)
	}

	stats.EstimateAdjustments = estimateAdjustments(tasks, events)
	stats.HabitWindows = habitWindows(actual)
	return stats
}

func estimateAdjustments(tasks []TaskSnapshot, events []EventSnapshot) []EstimateAdjustment {
	minutesByTask := make(map[int64]float64)
	for _, e := range events {
		if e.Kind == models.EventProposed || e.TaskID == nil {
			continue
		}
		minutesByTask[*e.TaskID] += e.End.Sub(e.Start).Minutes()
	}

	out := []EstimateAdjustment{}
	for _, t := range tasks {
		if t.DurationMinutes == nil || *t.DurationMinutes <= 0 {
			continue
		}
		actualMinutes, ok := minutesByTask[t.ID]
		if !ok || actualMinutes <= 0 {
			continue
		}
		planned := *t.DurationMinutes
		ratio := actualMinutes / float64(planned)
		if ratio >= 1-estimateTolerance && ratio <= 1+estimateTolerance {
			continue
		}
		out = append(out, EstimateAdjustment{
			TaskID:           t.ID,
			Title:            t.Title,
			PlannedMinutes:   planned,
			ActualMinutes:    round(actualMinutes, 2),
			DeltaMinutes:     round(actualMinutes-float64(planned), 2),
			Ratio:            round(ratio, 2),
			SuggestedMinutes: int(math.Round(actualMinutes)),
			Note:             adjustmentNote,
		})
	}
	return out
}

type bucket struct {
	hours  float64
	events int
}

func habitWindows(actual []EventSnapshot) []HabitWindow {
	var buckets [bucketCount]bucket
	var order []int // bucket indexes in discovery order

	for _, e := range actual {
		idx := e.Start.Hour() / bucketHours
		if buckets[idx].events == 0 {
			order = append(order, idx)
		}
		buckets[idx].hours += e.End.Sub(e.Start).Hours()
		buckets[idx].events++
	}

	windows := make([]HabitWindow, 0, len(order))
	for _, idx := range order {
		windows = append(windows, HabitWindow{
			Window: BucketLabel(idx * bucketHours),
			Events: buckets[idx].events,
			Hours:  round(buckets[idx].hours, 2),
		})
	}
	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].Hours > windows[j].Hours
	})
	if len(windows) > maxHabitWindows {
		windows = windows[:maxHabitWindows]
	}
	return windows
}

// BucketLabel names the two-hour bucket containing hour, e.g. "08:00-10:00".
func BucketLabel(hour int) string {
	start := (hour / bucketHours) * bucketHours
	return fmt.Sprintf("%02d:00-%02d:00", start, start+bucketHours)
}

func sumHours(events []EventSnapshot) float64 {
	var total float64
	for _, e := range events {
		total += e.End.Sub(e.Start).Hours()
	}
	return total
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
