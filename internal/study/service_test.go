package study

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/overseer/internal/ai"
	"github.com/example/overseer/internal/config"
	"github.com/example/overseer/internal/database"
	"github.com/example/overseer/internal/feedback"
	"github.com/example/overseer/pkg/models"
)

const owner = int64(1)

// Wednesday afternoon.
var now = time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type fakeGenerator struct {
	res ai.Result
	got ai.Prompt
}

func (f *fakeGenerator) Generate(_ context.Context, p ai.Prompt) ai.Result {
	f.got = p
	return f.res
}

func newTestService(t *testing.T, gen ai.Generator) (*Service, *observer.ObservedLogs) {
	t.Helper()
	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	core, logs := observer.New(zapcore.DebugLevel)
	svc := New(db, Options{
		Generator: gen,
		Study:     config.StudyConfig{SessionMinutes: 30, SessionsPerDay: 2},
		Logger:    zap.New(core),
		Now:       func() time.Time { return now },
	})
	return svc, logs
}

func newSubject(t *testing.T, svc *Service, name string) *models.Subject {
	t.Helper()
	s, err := svc.CreateSubject(context.Background(), owner, models.Subject{Name: name})
	require.NoError(t, err)
	return s
}

func TestGeneratePlan(t *testing.T) {
	ctx := context.Background()
	svc, logs := newTestService(t, nil)
	subject := newSubject(t, svc, "Algebra")

	exam := time.Date(2026, 10, 30, 9, 0, 0, 0, time.UTC)
	plan, err := svc.GeneratePlan(ctx, owner, PlanRequest{
		SubjectID: subject.ID,
		Topics:    []string{"groups", " rings ", "", "fields"},
		ExamDate:  &exam,
	})
	require.NoError(t, err)

	assert.Equal(t, "Plan Algebra", plan.Title)
	// 3 topics x (1 revision + 2 reminders) + 1 quiz
	require.Len(t, plan.Sessions, 10)
	for i, s := range plan.Sessions {
		assert.NotZero(t, s.ID)
		assert.Equal(t, plan.ID, s.PlanID)
		assert.Equal(t, models.SessionPlanned, s.Status)
		if i > 0 {
			assert.False(t, s.ScheduledFor.Before(plan.Sessions[i-1].ScheduledFor))
		}
	}
	first := plan.Sessions[0]
	assert.Equal(t, models.SessionRevision, first.Kind)
	assert.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), first.ScheduledFor)
	assert.Equal(t, 30, first.DurationMinutes)

	last := plan.Sessions[len(plan.Sessions)-1]
	assert.Equal(t, models.SessionQuiz, last.Kind)
	assert.Equal(t, time.Date(2026, 10, 29, 0, 0, 0, 0, time.UTC), last.ScheduledFor)

	stored, err := svc.GetPlan(ctx, owner, plan.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Sessions, 10)

	entries := logs.FilterMessage("Generated study plan").All()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}

func TestGeneratePlanErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	subject := newSubject(t, svc, "Algebra")

	_, err := svc.GeneratePlan(ctx, owner, PlanRequest{SubjectID: 99, Topics: []string{"a"}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GeneratePlan(ctx, owner, PlanRequest{SubjectID: subject.ID})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = svc.GeneratePlan(ctx, owner, PlanRequest{SubjectID: subject.ID, Topics: []string{"a"}, SessionMinutes: -5})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	// Another owner cannot plan on this subject.
	_, err = svc.GeneratePlan(ctx, 2, PlanRequest{SubjectID: subject.ID, Topics: []string{"a"}})
	assert.ErrorIs(t, err, ErrNotFound)

	exam := now.AddDate(0, 0, 5)
	plan, err := svc.GeneratePlan(ctx, owner, PlanRequest{SubjectID: subject.ID, ExamDate: &exam})
	require.NoError(t, err)
	require.Len(t, plan.Sessions, 1)
	assert.Equal(t, models.SessionQuiz, plan.Sessions[0].Kind)
}

func TestPlanLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	subject := newSubject(t, svc, "Physics")

	plan, err := svc.GeneratePlan(ctx, owner, PlanRequest{SubjectID: subject.ID, Topics: []string{"optics"}, SessionMinutes: 50})
	require.NoError(t, err)
	require.Len(t, plan.Sessions, 3)
	assert.Equal(t, 30, plan.Sessions[1].DurationMinutes)

	updated, err := svc.UpdatePlan(ctx, owner, plan.ID, PlanUpdate{Title: ptr("Optics crash course"), TotalMinutes: ptr(110)})
	require.NoError(t, err)
	assert.Equal(t, "Optics crash course", updated.Title)

	_, err = svc.UpdatePlan(ctx, owner, plan.ID, PlanUpdate{Title: ptr("  ")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	due, err := svc.DueSessions(ctx, owner, now)
	require.NoError(t, err)
	require.Len(t, due, 1)

	done, err := svc.UpdateSession(ctx, owner, due[0].ID, SessionUpdate{Status: ptr(models.SessionDone), Difficulty: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, models.SessionDone, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, now, *done.CompletedAt)

	_, err = svc.UpdateSession(ctx, owner, plan.Sessions[1].ID, SessionUpdate{Status: ptr(models.SessionSkipped), Difficulty: ptr(2)})
	require.NoError(t, err)

	_, err = svc.UpdateSession(ctx, owner, plan.Sessions[2].ID, SessionUpdate{Status: ptr("later")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.UpdateSession(ctx, owner, 999, SessionUpdate{Notes: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	progress, err := svc.SubjectProgress(ctx, owner, subject.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Done)
	assert.Equal(t, 1, progress.Planned)
	assert.Equal(t, 1, progress.Skipped)
	require.NotNil(t, progress.AvgDifficulty)
	assert.Equal(t, 3.0, *progress.AvgDifficulty)
	assert.Equal(t, 0.5, progress.FutureLoadHours)

	require.NoError(t, svc.DeletePlan(ctx, owner, plan.ID))
	_, err = svc.SubjectProgress(ctx, owner, subject.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeletePlan(ctx, owner, plan.ID), ErrNotFound)
}

func TestReviewCard(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	subject := newSubject(t, svc, "Vocabulary")

	card, err := svc.CreateCard(ctx, owner, CardCreate{SubjectID: subject.ID, Front: "chat", Back: "cat"})
	require.NoError(t, err)
	assert.Equal(t, now, card.DueAt)
	assert.Equal(t, 2.5, card.Ease)

	reviewed, err := svc.ReviewCard(ctx, owner, card.ID, 4, now)
	require.NoError(t, err)
	assert.Equal(t, 1, reviewed.IntervalDays)
	assert.Equal(t, 1, reviewed.Streak)
	assert.Equal(t, now.AddDate(0, 0, 1), reviewed.DueAt)

	reviewed, err = svc.ReviewCard(ctx, owner, card.ID, 4, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 6, reviewed.IntervalDays)

	reviewed, err = svc.ReviewCard(ctx, owner, card.ID, 1, now.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 1, reviewed.IntervalDays)
	assert.Equal(t, 0, reviewed.Streak)

	for _, score := range []int{0, 6, -1} {
		_, err = svc.ReviewCard(ctx, owner, card.ID, score, now)
		assert.ErrorIs(t, err, ErrInvalidScore)
	}
	_, err = svc.ReviewCard(ctx, owner, 999, 3, now)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.ReviewCard(ctx, 2, card.ID, 3, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentReviewsAllApply(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	subject := newSubject(t, svc, "Vocabulary")
	card, err := svc.CreateCard(ctx, owner, CardCreate{SubjectID: subject.ID, Front: "chien", Back: "dog"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ReviewCard(ctx, owner, card.ID, 5, now)
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, err := range errs {
		if err == nil {
			applied++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	got, err := svc.GetCard(ctx, owner, card.ID)
	require.NoError(t, err)
	// Every successful review went through the version check, so none was lost.
	assert.Equal(t, applied, got.Streak)
	assert.Equal(t, int64(applied), got.Version)
}

func TestDueCardsOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	subject := newSubject(t, svc, "Vocabulary")

	old, err := svc.CreateCard(ctx, owner, CardCreate{SubjectID: subject.ID, Front: "a", Back: "1", DueAt: ptr(now.AddDate(0, 0, -3))})
	require.NoError(t, err)
	_, err = svc.ReviewCard(ctx, owner, old.ID, 3, now.AddDate(0, 0, -4))
	require.NoError(t, err)
	fresh, err := svc.CreateCard(ctx, owner, CardCreate{SubjectID: subject.ID, Front: "b", Back: "2"})
	require.NoError(t, err)
	_, err = svc.CreateCard(ctx, owner, CardCreate{SubjectID: subject.ID, Front: "c", Back: "3", DueAt: ptr(now.AddDate(0, 0, 2))})
	require.NoError(t, err)

	due, err := svc.DueCards(ctx, owner, nil, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, fresh.ID, due[0].ID)
	assert.Equal(t, old.ID, due[1].ID)

	limited, err := svc.DueCards(ctx, owner, &subject.ID, now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	n, err := svc.CountDueCards(ctx, owner, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.CreateCard(ctx, owner, CardCreate{SubjectID: subject.ID, Front: " ", Back: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateCard(ctx, owner, CardCreate{SubjectID: 99, Front: "x", Back: "y"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSubjectCascades(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	subject := newSubject(t, svc, "History")
	_, err := svc.GeneratePlan(ctx, owner, PlanRequest{SubjectID: subject.ID, Topics: []string{"ww2"}})
	require.NoError(t, err)
	_, err = svc.CreateCard(ctx, owner, CardCreate{SubjectID: subject.ID, Front: "1945", Back: "end"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSubject(ctx, owner, subject.ID))
	plans, err := svc.ListPlans(ctx, owner, nil)
	require.NoError(t, err)
	assert.Empty(t, plans)
	cards, err := svc.ListCards(ctx, owner, nil)
	require.NoError(t, err)
	assert.Empty(t, cards)
	assert.ErrorIs(t, svc.DeleteSubject(ctx, owner, subject.ID), ErrNotFound)

	_, err = svc.CreateSubject(ctx, owner, models.Subject{Name: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFeedback(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	deadline := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)
	report, err := svc.CreateTask(ctx, owner, models.Task{Title: "report", Deadline: &deadline, DurationMinutes: ptr(60)})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, owner, models.Task{Title: "read", Status: models.TaskDone})
	require.NoError(t, err)
	overdue := time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)
	_, err = svc.CreateTask(ctx, owner, models.Task{Title: "old", Deadline: &overdue})
	require.NoError(t, err)

	at := func(h, m int) time.Time { return time.Date(2026, 10, 14, h, m, 0, 0, time.UTC) }
	for _, e := range []models.Event{
		{Title: "plan", Kind: models.EventProposed, Start: at(9, 0), End: at(10, 0), TaskID: &report.ID},
		{Title: "work", Start: at(9, 0), End: at(9, 50), TaskID: &report.ID},
		{Title: "gym", Kind: "sport", Start: at(20, 0), End: at(21, 30)},
	} {
		_, err := svc.CreateEvent(ctx, owner, e)
		require.NoError(t, err)
	}

	stats, err := svc.Feedback(ctx, owner, "", nil)
	require.NoError(t, err)
	assert.Equal(t, feedback.ScopeDay, stats.Scope)
	assert.Equal(t, at(0, 0), stats.Start)
	assert.Equal(t, 1.0, stats.PlannedHours)
	assert.Equal(t, 2.33, stats.ActualHours)
	assert.Equal(t, 2, stats.TasksPlanned)
	assert.Equal(t, 1, stats.TasksDone)
	assert.Equal(t, 0.5, stats.CompletionRate)
	require.Len(t, stats.DeferredTasks, 1)
	assert.Equal(t, 3, stats.DeferredTasks[0].LateDays)
	require.Len(t, stats.EstimateAdjustments, 1)
	assert.Equal(t, 0.83, stats.EstimateAdjustments[0].Ratio)
	require.Len(t, stats.HabitWindows, 2)
	assert.Equal(t, "20:00-22:00", stats.HabitWindows[0].Window)

	week, err := svc.Feedback(ctx, owner, "week", ptr(at(8, 0)))
	require.NoError(t, err)
	assert.Equal(t, time.Monday, week.Start.Weekday())

	_, err = svc.Feedback(ctx, owner, "year", nil)
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestRecordValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	_, err := svc.CreateTask(ctx, owner, models.Task{Title: "x", Status: "someday"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateEvent(ctx, owner, models.Event{Title: "x", Start: now, End: now})
	assert.ErrorIs(t, err, ErrInvalidInput)

	task, err := svc.CreateTask(ctx, owner, models.Task{Title: "x"})
	require.NoError(t, err)
	require.NoError(t, svc.SetTaskStatus(ctx, owner, task.ID, models.TaskInProgress))
	assert.ErrorIs(t, svc.SetTaskStatus(ctx, owner, 999, models.TaskDone), ErrNotFound)

	from, to := now.Add(-time.Hour), now.Add(time.Hour)
	_, err = svc.CreateEvent(ctx, owner, models.Event{Title: "in", Start: now, End: now.Add(time.Minute)})
	require.NoError(t, err)
	_, err = svc.CreateEvent(ctx, owner, models.Event{Title: "out", Start: now.Add(3 * time.Hour), End: now.Add(4 * time.Hour)})
	require.NoError(t, err)
	inRange, err := svc.ListEvents(ctx, owner, &from, &to)
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	assert.Equal(t, "in", inRange[0].Title)
}

func TestTelegramUsers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	u, err := svc.RegisterTelegramUser(ctx, 777, "ana")
	require.NoError(t, err)
	require.NoError(t, svc.SetNotifications(ctx, u.ID, true, 20))
	assert.ErrorIs(t, svc.SetNotifications(ctx, u.ID, true, 24), ErrInvalidInput)

	users, err := svc.UsersForNotification(ctx, 20)
	require.NoError(t, err)
	require.Len(t, users, 1)

	_, err = svc.UserByTelegramID(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssist(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestService(t, nil)
	out := svc.Assist(ctx, AssistRequest{Subject: "History", Topic: "WW2", Items: 3})
	assert.Contains(t, out, "not configured")
	assert.Contains(t, out, "topic=WW2")

	gen := &fakeGenerator{res: ai.Result{Text: "1. Question"}}
	svc, _ = newTestService(t, gen)
	out = svc.Assist(ctx, AssistRequest{Subject: "History", Mode: ai.ModeQuiz})
	assert.Equal(t, "1. Question", out)
	assert.Contains(t, gen.got.User, "quiz")

	gen = &fakeGenerator{res: ai.Result{Err: errors.New("timeout")}}
	svc, logs := newTestService(t, gen)
	out = svc.Assist(ctx, AssistRequest{Subject: "History"})
	assert.Equal(t, "Could not generate study help: timeout", out)
	assert.Equal(t, 1, logs.FilterMessage("Assistant generation failed").Len())
}
