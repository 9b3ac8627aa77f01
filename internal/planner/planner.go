// Package planner builds deterministic study schedules: one revision session
// per topic, spaced reminder sessions after it and an optional consolidation
// quiz on the eve of the exam.
package planner

import (
	"math"
	"sort"
	"time"

	"github.com/example/overseer/pkg/models"
)

// ConsolidationTopic labels the quiz scheduled before the exam.
const ConsolidationTopic = "consolidation"

// MinReminderMinutes is the shortest reminder session.
const MinReminderMinutes = 20

// ReminderOffsets are the day offsets, from a topic's revision day, of its reminders.
var ReminderOffsets = []int{1, 3}

// Session is a generated, not yet persisted, study session.
type Session struct {
	Kind            string
	Topic           *string
	ScheduledFor    time.Time
	DurationMinutes int
}

// Request holds the generator inputs.
type Request struct {
	Topics         []string
	StartDay       time.Time
	ExamDate       *time.Time
	SessionMinutes int
	SessionsPerDay int
}

// Generate returns the sessions for req sorted by ScheduledFor.
// Identical requests always produce identical output.
func Generate(req Request) []Session {
	var sessions []Session

	perDay := req.SessionsPerDay
	if perDay < 1 {
		perDay = 1
	}
	reminderMinutes := ReminderMinutes(req.SessionMinutes)

	day := DateFloor(req.StartDay)
	for i := 0; i < len(req.Topics); i += perDay {
		end := i + perDay
		if end > len(req.Topics) {
			end = len(req.Topics)
		}
		for _, topic := range req.Topics[i:end] {
			sessions = append(sessions, Session{
				Kind:            models.SessionRevision,
				Topic:           label(topic),
				ScheduledFor:    day,
				DurationMinutes: req.SessionMinutes,
			})
			for _, offset := range ReminderOffsets {
				sessions = append(sessions, Session{
					Kind:            models.SessionReminder,
					Topic:           label(topic),
					ScheduledFor:    day.AddDate(0, 0, offset),
					DurationMinutes: reminderMinutes,
				})
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	if req.ExamDate != nil {
		sessions = append(sessions, Session{
			Kind:            models.SessionQuiz,
			Topic:           label(ConsolidationTopic),
			ScheduledFor:    DateFloor(req.ExamDate.AddDate(0, 0, -1)),
			DurationMinutes: req.SessionMinutes,
		})
	}

	// Stable keeps input order for sessions on the same day.
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].ScheduledFor.Before(sessions[j].ScheduledFor)
	})
	return sessions
}

// ReminderMinutes is the length of a reminder for a given revision length.
func ReminderMinutes(sessionMinutes int) int {
	m := int(math.Round(float64(sessionMinutes) * 0.6))
	if m < MinReminderMinutes {
		return MinReminderMinutes
	}
	return m
}

// DateFloor truncates t to midnight in its own location.
func DateFloor(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func label(s string) *string { return &s }
