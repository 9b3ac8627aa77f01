package database

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/overseer/pkg/models"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

var day0 = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

func TestSchemaIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, initializeSchema(db))
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	cli := &models.User{Name: "local", NotificationEnabled: true, NotificationHour: 9}
	require.NoError(t, repo.Create(ctx, cli))
	assert.NotZero(t, cli.ID)

	u, err := repo.GetOrCreateByTelegramID(ctx, 4242, "ana")
	require.NoError(t, err)
	again, err := repo.GetOrCreateByTelegramID(ctx, 4242, "ana")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.True(t, again.NotificationEnabled)

	got, err := repo.GetByID(ctx, cli.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TelegramID)

	require.NoError(t, repo.UpdateNotifications(ctx, u.ID, true, 18))
	users, err := repo.GetUsersForNotification(ctx, 18)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(4242), users[0].TelegramID)

	_, err = repo.GetByTelegramID(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.UpdateNotifications(ctx, 999, false, 1), ErrNotFound)
}

func TestTaskAndEventRepositories(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tasks, events := NewTaskRepository(db), NewEventRepository(db)

	deadline := day0.Add(18 * time.Hour)
	task := &models.Task{OwnerID: 1, Title: "report", Deadline: &deadline, DurationMinutes: ptr(90)}
	require.NoError(t, tasks.Create(ctx, task))
	require.NoError(t, tasks.Create(ctx, &models.Task{OwnerID: 2, Title: "other"}))

	list, err := tasks.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.TaskTodo, list[0].Status)
	assert.Equal(t, "normale", list[0].Priority)
	assert.True(t, deadline.Equal(*list[0].Deadline))
	assert.Equal(t, 90, *list[0].DurationMinutes)
	assert.Nil(t, list[0].ProjectID)

	require.NoError(t, tasks.UpdateStatus(ctx, 1, task.ID, models.TaskDone))
	assert.ErrorIs(t, tasks.UpdateStatus(ctx, 2, task.ID, models.TaskDone), ErrNotFound)

	for _, e := range []models.Event{
		{OwnerID: 1, Title: "late", Start: day0.Add(30 * time.Hour), End: day0.Add(31 * time.Hour)},
		{OwnerID: 1, Title: "work", Kind: models.EventProposed, Start: day0.Add(9 * time.Hour), End: day0.Add(10 * time.Hour), TaskID: &task.ID},
		{OwnerID: 2, Title: "foreign", Start: day0.Add(9 * time.Hour), End: day0.Add(10 * time.Hour)},
	} {
		require.NoError(t, events.Create(ctx, &e))
	}

	all, err := events.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "work", all[0].Title)
	assert.Equal(t, task.ID, *all[0].TaskID)
	assert.Equal(t, models.EventFixed, all[1].Kind)

	today, err := events.ListRange(ctx, 1, day0, day0.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, day0.Add(9*time.Hour), today[0].Start)
}

func TestPlanRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	plans := NewPlanRepository(db)

	exam := day0.AddDate(0, 0, 10)
	plan := &models.StudyPlan{
		OwnerID: 1, SubjectID: 7, Title: "algebra", ExamDate: &exam,
		Sessions: []models.StudySession{
			{Kind: models.SessionRevision, Topic: ptr("groups"), ScheduledFor: day0, DurationMinutes: 30},
			{Kind: models.SessionReminder, Topic: ptr("groups"), ScheduledFor: day0.AddDate(0, 0, 1), DurationMinutes: 20},
			{Kind: models.SessionQuiz, Topic: ptr("consolidation"), ScheduledFor: exam.AddDate(0, 0, -1), DurationMinutes: 30},
		},
	}
	require.NoError(t, plans.CreateWithSessions(ctx, plan))
	require.NotZero(t, plan.ID)
	for _, s := range plan.Sessions {
		assert.NotZero(t, s.ID)
		assert.Equal(t, plan.ID, s.PlanID)
		assert.Equal(t, models.SessionPlanned, s.Status)
	}

	got, err := plans.Get(ctx, 1, plan.ID)
	require.NoError(t, err)
	assert.True(t, exam.Equal(*got.ExamDate))
	require.Len(t, got.Sessions, 3)
	assert.Equal(t, "groups", *got.Sessions[0].Topic)

	_, err = plans.Get(ctx, 2, plan.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	due, err := plans.DueSessions(ctx, 1, day0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)

	done := models.SessionDone
	completed := day0.Add(40 * time.Minute)
	require.NoError(t, plans.UpdateSession(ctx, 1, due[0].ID, SessionUpdate{
		Status: &done, CompletedAt: &completed, Difficulty: ptr(3), Notes: ptr("ok"),
	}))
	s, err := plans.GetSession(ctx, 1, due[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionDone, s.Status)
	assert.True(t, completed.Equal(*s.CompletedAt))
	assert.Equal(t, 3, *s.Difficulty)

	due, err = plans.DueSessions(ctx, 1, day0.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	assert.ErrorIs(t, plans.UpdateSession(ctx, 1, 999, SessionUpdate{Status: &done}), ErrNotFound)
	assert.ErrorIs(t, plans.UpdateSession(ctx, 1, 999, SessionUpdate{}), ErrNotFound)

	got.Title = "algebra II"
	require.NoError(t, plans.Update(ctx, got))
	list, err := plans.List(ctx, 1, ptr(int64(7)))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "algebra II", list[0].Title)
	assert.Len(t, list[0].Sessions, 3)

	other, err := plans.List(ctx, 1, ptr(int64(8)))
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, plans.Delete(ctx, 1, plan.ID))
	left, err := plans.SessionsBySubject(ctx, 1, 7)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.ErrorIs(t, plans.Delete(ctx, 1, plan.ID), ErrNotFound)
}

func TestCardRepositoryCompareAndUpdate(t *testing.T) {
	ctx := context.Background()
	cards := NewCardRepository(newTestDB(t))

	c := &models.Card{OwnerID: 1, SubjectID: 3, Front: "2+2", Back: "4", DueAt: day0, IntervalDays: 1, Ease: 2.5}
	require.NoError(t, cards.Create(ctx, c))

	exists, err := cards.ExistsFront(ctx, 1, 3, "2+2")
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := cards.CountDue(ctx, 1, day0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stale := *c
	c.IntervalDays, c.Streak, c.LastScore, c.DueAt = 6, 1, ptr(4), day0.AddDate(0, 0, 6)
	require.NoError(t, cards.UpdateReview(ctx, c))
	assert.Equal(t, int64(1), c.Version)

	stale.Ease = 1.3
	assert.ErrorIs(t, cards.UpdateReview(ctx, &stale), ErrConflict)

	got, err := cards.Get(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.IntervalDays)
	assert.Equal(t, 2.5, got.Ease)
	assert.Equal(t, 4, *got.LastScore)

	due, err := cards.Due(ctx, 1, nil, day0.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, due)

	missing := *c
	missing.ID = 999
	assert.ErrorIs(t, cards.UpdateReview(ctx, &missing), ErrNotFound)
}

func TestSubjectDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	subjects, plans, cards := NewSubjectRepository(db), NewPlanRepository(db), NewCardRepository(db)

	s := &models.Subject{OwnerID: 1, Name: "physics", UECode: "PHY101"}
	require.NoError(t, subjects.Create(ctx, s))
	require.NoError(t, subjects.Create(ctx, &models.Subject{OwnerID: 1, Name: "chemistry"}))

	list, err := subjects.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "chemistry", list[0].Name)

	require.NoError(t, plans.CreateWithSessions(ctx, &models.StudyPlan{
		OwnerID: 1, SubjectID: s.ID, Title: "p",
		Sessions: []models.StudySession{{Kind: models.SessionRevision, ScheduledFor: day0, DurationMinutes: 30}},
	}))
	require.NoError(t, cards.Create(ctx, &models.Card{OwnerID: 1, SubjectID: s.ID, Front: "f", Back: "b", DueAt: day0, IntervalDays: 1, Ease: 2.5}))

	require.NoError(t, subjects.Delete(ctx, 1, s.ID))
	_, err = subjects.Get(ctx, 1, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	remaining, err := plans.List(ctx, 1, &s.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	left, err := cards.List(ctx, 1, &s.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.ErrorIs(t, subjects.Delete(ctx, 1, s.ID), ErrNotFound)
}

func TestTimeRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2026, 3, 4, 10, 30, 0, 0, loc)
	out, err := parseTime(formatTime(in))
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.Equal(t, time.UTC, out.Location())

	_, err = parseTime("garbage")
	assert.ErrorIs(t, err, ErrCorruptRow)
}

func TestCorruptTimestampIsReported(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.Exec(`INSERT INTO events (owner_id, title, kind, start_at, end_at) VALUES (1, 'bad', 'fixe', 'yesterday', '2026-10-14T09:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO cards (owner_id, subject_id, front, back, due_at) VALUES (1, 1, 'q', 'a', '14/10/2026')`)
	require.NoError(t, err)

	_, err = NewEventRepository(db).List(ctx, 1)
	assert.ErrorIs(t, err, ErrCorruptRow)
	assert.ErrorContains(t, err, `"yesterday"`)

	cards := NewCardRepository(db)
	_, err = cards.List(ctx, 1, nil)
	assert.ErrorIs(t, err, ErrCorruptRow)
	_, err = cards.Get(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrCorruptRow)
}
