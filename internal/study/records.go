package study

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/overseer/pkg/models"
)

// CreateSubject stores a new subject.
func (s *Service) CreateSubject(ctx context.Context, owner int64, subject models.Subject) (*models.Subject, error) {
	subject.Name = strings.TrimSpace(subject.Name)
	if subject.Name == "" {
		return nil, fmt.Errorf("%w: subject name is required", ErrInvalidInput)
	}
	subject.ID = 0
	subject.OwnerID = owner
	if err := s.subjects.Create(ctx, &subject); err != nil {
		return nil, err
	}
	return &subject, nil
}

// GetSubject returns one subject.
func (s *Service) GetSubject(ctx context.Context, owner, id int64) (*models.Subject, error) {
	subject, err := s.subjects.Get(ctx, owner, id)
	if err != nil {
		return nil, storeErr(err, "subject", id)
	}
	return subject, nil
}

// ListSubjects returns the owner's subjects.
func (s *Service) ListSubjects(ctx context.Context, owner int64) ([]models.Subject, error) {
	return s.subjects.List(ctx, owner)
}

// DeleteSubject removes a subject with its plans, sessions and cards.
func (s *Service) DeleteSubject(ctx context.Context, owner, id int64) error {
	if err := s.subjects.Delete(ctx, owner, id); err != nil {
		return storeErr(err, "subject", id)
	}
	s.log.Info("Deleted subject", zap.Int64("owner_id", owner), zap.Int64("subject_id", id))
	return nil
}

// CreateTask stores a task.
func (s *Service) CreateTask(ctx context.Context, owner int64, task models.Task) (*models.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	switch task.Status {
	case "", models.TaskTodo, models.TaskInProgress, models.TaskDone:
	default:
		return nil, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, task.Status)
	}
	task.ID = 0
	task.OwnerID = owner
	task.Deadline = utcPtr(task.Deadline)
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks returns the owner's tasks.
func (s *Service) ListTasks(ctx context.Context, owner int64) ([]models.Task, error) {
	return s.tasks.List(ctx, owner)
}

// SetTaskStatus changes the status of a task.
func (s *Service) SetTaskStatus(ctx context.Context, owner, id int64, status string) error {
	switch status {
	case models.TaskTodo, models.TaskInProgress, models.TaskDone:
	default:
		return fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, status)
	}
	return storeErr(s.tasks.UpdateStatus(ctx, owner, id, status), "task", id)
}

// CreateEvent stores a calendar event. End must be after Start.
func (s *Service) CreateEvent(ctx context.Context, owner int64, event models.Event) (*models.Event, error) {
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		return nil, fmt.Errorf("%w: event title is required", ErrInvalidInput)
	}
	if !event.End.After(event.Start) {
		return nil, fmt.Errorf("%w: event must end after it starts", ErrInvalidInput)
	}
	event.ID = 0
	event.OwnerID = owner
	event.Start, event.End = event.Start.UTC(), event.End.UTC()
	if err := s.events.Create(ctx, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEvents returns the owner's events, or only those starting in [from, to)
// when both bounds are given.
func (s *Service) ListEvents(ctx context.Context, owner int64, from, to *time.Time) ([]models.Event, error) {
	if from != nil && to != nil {
		return s.events.ListRange(ctx, owner, from.UTC(), to.UTC())
	}
	return s.events.List(ctx, owner)
}

// RegisterTelegramUser returns the user linked to a Telegram account, creating it on first contact.
func (s *Service) RegisterTelegramUser(ctx context.Context, telegramID int64, name string) (*models.User, error) {
	return s.users.GetOrCreateByTelegramID(ctx, telegramID, name)
}

// UserByTelegramID returns the user linked to a Telegram account.
func (s *Service) UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, storeErr(err, "telegram user", telegramID)
	}
	return user, nil
}

// SetNotifications enables or disables reminders for a user at the given hour.
func (s *Service) SetNotifications(ctx context.Context, userID int64, enabled bool, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: notification hour must be within 0..23", ErrInvalidInput)
	}
	return storeErr(s.users.UpdateNotifications(ctx, userID, enabled, hour), "user", userID)
}

// UsersForNotification returns the users whose reminder hour is hour.
func (s *Service) UsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	return s.users.GetUsersForNotification(ctx, hour)
}
