package feedback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/example/overseer/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Wednesday.
var anchor = time.Date(2026, 10, 14, 16, 20, 0, 0, time.UTC)

func at(d, h, m int) time.Time {
	return time.Date(2026, 10, d, h, m, 0, 0, time.UTC)
}

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt(v int) *int              { return &v }
func ptrID(v int64) *int64           { return &v }

func TestWindowFor(t *testing.T) {
	tests := []struct {
		name       string
		anchor     time.Time
		scope      Scope
		start, end time.Time
	}{
		{"day", anchor, ScopeDay, at(14, 0, 0), at(15, 0, 0)},
		{"week from wednesday", anchor, ScopeWeek, at(12, 0, 0), at(19, 0, 0)},
		{"week from sunday", at(18, 23, 0), ScopeWeek, at(12, 0, 0), at(19, 0, 0)},
		{"week from monday", at(12, 0, 0), ScopeWeek, at(12, 0, 0), at(19, 0, 0)},
		{"month", anchor, ScopeMonth, at(1, 0, 0), time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)},
		{"december rolls over", time.Date(2026, 12, 31, 22, 0, 0, 0, time.UTC), ScopeMonth,
			time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"unknown scope is a day", anchor, Scope("year"), at(14, 0, 0), at(15, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WindowFor(tt.anchor, tt.scope)
			assert.Equal(t, tt.start, w.Start)
			assert.Equal(t, tt.end, w.End)
			assert.True(t, w.End.After(w.Start))
		})
	}
}

func TestWeekWindowAlwaysStartsMonday(t *testing.T) {
	base := time.Date(2024, 12, 20, 7, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		w := WindowFor(base.AddDate(0, 0, i), ScopeWeek)
		assert.Equal(t, time.Monday, w.Start.Weekday())
		assert.Equal(t, 7*24*time.Hour, w.End.Sub(w.Start))
	}
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeDay, s)

	s, err = ParseScope("month")
	require.NoError(t, err)
	assert.Equal(t, ScopeMonth, s)

	_, err = ParseScope("fortnight")
	assert.Error(t, err)
}

func TestAnalyzeEmpty(t *testing.T) {
	stats := Analyze(ScopeWeek, anchor, nil, nil)
	assert.Equal(t, 0.0, stats.CompletionRate)
	assert.Equal(t, 0, stats.TasksPlanned)
	assert.Zero(t, stats.PlannedHours)
	assert.Zero(t, stats.ActualHours)
	assert.NotNil(t, stats.DeferredTasks)
	assert.Empty(t, stats.DeferredTasks)
	assert.Empty(t, stats.EstimateAdjustments)
	assert.Empty(t, stats.HabitWindows)
}

func TestAnalyzeHours(t *testing.T) {
	events := []EventSnapshot{
		{Kind: models.EventProposed, Start: at(14, 9, 0), End: at(14, 10, 30)},
		{Kind: models.EventFixed, Start: at(14, 10, 0), End: at(14, 10, 45)},
		{Kind: "travail", Start: at(14, 14, 0), End: at(14, 16, 0)},
		// Outside the day window.
		{Kind: models.EventFixed, Start: at(13, 14, 0), End: at(13, 16, 0)},
		{Kind: models.EventProposed, Start: at(15, 0, 0), End: at(15, 1, 0)},
	}
	stats := Analyze(ScopeDay, anchor, nil, events)
	assert.Equal(t, 1.5, stats.PlannedHours)
	assert.Equal(t, 2.75, stats.ActualHours)
}

func TestAnalyzeCompletionAndDeferred(t *testing.T) {
	tasks := []TaskSnapshot{
		{ID: 1, Title: "no deadline, done", Status: models.TaskDone},
		{ID: 2, Title: "no deadline, open", Status: models.TaskTodo},
		{ID: 3, Title: "due this week", Status: models.TaskDone, Deadline: ptrTime(at(16, 12, 0))},
		{ID: 4, Title: "late", Status: models.TaskInProgress, Deadline: ptrTime(at(9, 18, 0))},
		{ID: 5, Title: "late but done", Status: models.TaskDone, Deadline: ptrTime(at(1, 8, 0))},
		{ID: 6, Title: "next week", Status: models.TaskTodo, Deadline: ptrTime(at(20, 8, 0))},
	}
	stats := Analyze(ScopeWeek, anchor, tasks, nil)

	assert.Equal(t, 3, stats.TasksPlanned)
	assert.Equal(t, 2, stats.TasksDone)
	assert.Equal(t, 0.667, stats.CompletionRate)

	require.Len(t, stats.DeferredTasks, 1)
	d := stats.DeferredTasks[0]
	assert.Equal(t, int64(4), d.ID)
	assert.Equal(t, models.TaskInProgress, d.Status)
	// Monday 12th 00:00 minus Friday 9th 18:00 is 2 days 6 hours.
	assert.Equal(t, 2, d.LateDays)
}

func TestAnalyzeEstimateAdjustments(t *testing.T) {
	tasks := []TaskSnapshot{
		{ID: 1, Title: "under", DurationMinutes: ptrInt(60)},
		{ID: 2, Title: "close enough", DurationMinutes: ptrInt(60)},
		{ID: 3, Title: "over", DurationMinutes: ptrInt(30)},
		{ID: 4, Title: "no estimate"},
		{ID: 5, Title: "no events", DurationMinutes: ptrInt(30)},
	}
	events := []EventSnapshot{
		{Kind: models.EventFixed, TaskID: ptrID(1), Start: at(14, 8, 0), End: at(14, 8, 50)},
		{Kind: models.EventFixed, TaskID: ptrID(2), Start: at(14, 9, 0), End: at(14, 9, 58)},
		// Split across two events, one of them last month.
		{Kind: models.EventFixed, TaskID: ptrID(3), Start: at(14, 11, 0), End: at(14, 11, 30)},
		{Kind: models.EventFixed, TaskID: ptrID(3), Start: time.Date(2026, 9, 3, 11, 0, 0, 0, time.UTC), End: time.Date(2026, 9, 3, 11, 15, 0, 0, time.UTC)},
		// Proposed time is not actual time.
		{Kind: models.EventProposed, TaskID: ptrID(2), Start: at(14, 12, 0), End: at(14, 14, 0)},
		{Kind: models.EventFixed, TaskID: ptrID(4), Start: at(14, 15, 0), End: at(14, 16, 0)},
	}

	stats := Analyze(ScopeDay, anchor, tasks, events)
	require.Len(t, stats.EstimateAdjustments, 2)

	under := stats.EstimateAdjustments[0]
	assert.Equal(t, int64(1), under.TaskID)
	assert.Equal(t, 60, under.PlannedMinutes)
	assert.Equal(t, 50.0, under.ActualMinutes)
	assert.Equal(t, -10.0, under.DeltaMinutes)
	assert.Equal(t, 0.83, under.Ratio)
	assert.Equal(t, 50, under.SuggestedMinutes)

	over := stats.EstimateAdjustments[1]
	assert.Equal(t, int64(3), over.TaskID)
	assert.Equal(t, 45.0, over.ActualMinutes)
	assert.Equal(t, 1.5, over.Ratio)
	assert.Equal(t, 45, over.SuggestedMinutes)
}

func TestAnalyzeHabitWindows(t *testing.T) {
	events := []EventSnapshot{
		{Kind: models.EventFixed, Start: at(14, 9, 0), End: at(14, 10, 0)},   // 08-10, 1h
		{Kind: models.EventFixed, Start: at(14, 14, 0), End: at(14, 15, 0)},  // 14-16, 1h
		{Kind: models.EventFixed, Start: at(14, 20, 0), End: at(14, 22, 30)}, // 20-22, 2.5h
		{Kind: models.EventFixed, Start: at(14, 8, 30), End: at(14, 9, 0)},   // 08-10, +0.5h
		{Kind: models.EventFixed, Start: at(14, 3, 0), End: at(14, 3, 30)},   // 02-04, 0.5h
		{Kind: models.EventFixed, Start: at(14, 15, 0), End: at(14, 15, 30)}, // 14-16, +0.5h
		{Kind: models.EventProposed, Start: at(14, 0, 0), End: at(14, 6, 0)}, // ignored
	}
	stats := Analyze(ScopeDay, anchor, nil, events)

	require.Len(t, stats.HabitWindows, 3)
	assert.Equal(t, HabitWindow{Window: "20:00-22:00", Events: 1, Hours: 2.5}, stats.HabitWindows[0])
	// 08-10 and 14-16 tie at 1.5h; 08-10 was seen first.
	assert.Equal(t, HabitWindow{Window: "08:00-10:00", Events: 2, Hours: 1.5}, stats.HabitWindows[1])
	assert.Equal(t, HabitWindow{Window: "14:00-16:00", Events: 2, Hours: 1.5}, stats.HabitWindows[2])

	for i := 1; i < len(stats.HabitWindows); i++ {
		assert.GreaterOrEqual(t, stats.HabitWindows[i-1].Hours, stats.HabitWindows[i].Hours)
	}
}

func TestBucketLabel(t *testing.T) {
	assert.Equal(t, "00:00-02:00", BucketLabel(0))
	assert.Equal(t, "00:00-02:00", BucketLabel(1))
	assert.Equal(t, "08:00-10:00", BucketLabel(9))
	assert.Equal(t, "22:00-24:00", BucketLabel(23))
}

func TestFromModel(t *testing.T) {
	dl := at(20, 9, 0)
	task := TaskFromModel(models.Task{ID: 3, Title: "t", Status: models.TaskTodo, Deadline: &dl, DurationMinutes: ptrInt(25)})
	assert.Equal(t, TaskSnapshot{ID: 3, Title: "t", Status: models.TaskTodo, Deadline: &dl, DurationMinutes: ptrInt(25)}, task)

	ev := EventFromModel(models.Event{ID: 9, Kind: models.EventFixed, Start: at(14, 1, 0), End: at(14, 2, 0), TaskID: ptrID(3)})
	assert.Equal(t, EventSnapshot{Kind: models.EventFixed, Start: at(14, 1, 0), End: at(14, 2, 0), TaskID: ptrID(3)}, ev)
}
