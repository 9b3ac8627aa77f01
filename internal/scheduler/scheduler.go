// Package scheduler sends periodic study reminders within the configured hours.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/example/overseer/internal/config"
	"github.com/example/overseer/internal/logging"
	"github.com/example/overseer/pkg/models"
)

// Source provides the users and the due work the reminders report on.
type Source interface {
	UsersForNotification(ctx context.Context, hour int) ([]models.User, error)
	CountDueCards(ctx context.Context, owner int64, now time.Time) (int, error)
	DueSessions(ctx context.Context, owner int64, now time.Time) ([]models.StudySession, error)
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminders(ctx context.Context, user models.User, dueCards int, sessions []models.StudySession) error
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    Source
	notifier  Notifier
	hours     config.RemindersConfig
	interval  time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// New creates a new scheduler instance. Reminder hours are local time.
func New(source Source, notifier Notifier, cfg config.Config, log *zap.Logger) *Scheduler {
	interval := cfg.ReminderInterval()
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		source:    source,
		notifier:  notifier,
		hours:     cfg.Reminders,
		interval:  interval,
		log:       logging.OrNop(log).Named("scheduler"),
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks. Each run uses ctx, so cancelling it
// aborts the reminder in flight; Stop still has to be called.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.job(ctx))
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.scheduler.SingletonModeAll()

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	s.log.Info("Reminder scheduler started", zap.Duration("interval", s.interval),
		zap.Int("start_hour", s.hours.StartHour), zap.Int("end_hour", s.hours.EndHour))
	return nil
}

func (s *Scheduler) job(ctx context.Context) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		s.CheckAndSendReminders(ctx)
	}
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// InWindow reports whether hour lies within the reminder hours, bounds included.
func (s *Scheduler) InWindow(hour int) bool {
	return hour >= s.hours.StartHour && hour <= s.hours.EndHour
}

// CheckAndSendReminders notifies every user whose reminder hour is the current
// hour and who has due cards or sessions. It returns the number of reminders sent.
func (s *Scheduler) CheckAndSendReminders(ctx context.Context) int {
	now := s.now()
	currentHour := now.Hour()
	log := logging.WithRequest(s.log, "reminders").With(zap.Int("hour", currentHour))

	if !s.InWindow(currentHour) {
		log.Debug("Outside notification hours, skipping reminders")
		return 0
	}

	// Get users who should receive notifications at the current hour
	users, err := s.source.UsersForNotification(ctx, currentHour)
	if err != nil {
		log.Error("Error getting users for notification", zap.Error(err))
		return 0
	}

	sent := 0
	for _, user := range users {
		ok, err := s.remind(ctx, user, now)
		if err != nil {
			log.Warn("Error sending reminder", zap.Int64("user_id", user.ID), zap.Error(err))
			continue
		}
		if ok {
			sent++
		}
	}
	log.Info("Reminders processed", zap.Int("users", len(users)), zap.Int("sent", sent))
	return sent
}

// RunManualCheck sends a reminder to one user regardless of the hour.
func (s *Scheduler) RunManualCheck(ctx context.Context, user models.User) error {
	_, err := s.remind(ctx, user, s.now())
	return err
}

func (s *Scheduler) remind(ctx context.Context, user models.User, now time.Time) (bool, error) {
	cards, err := s.source.CountDueCards(ctx, user.ID, now)
	if err != nil {
		return false, fmt.Errorf("count due cards: %w", err)
	}
	sessions, err := s.source.DueSessions(ctx, user.ID, now)
	if err != nil {
		return false, fmt.Errorf("load due sessions: %w", err)
	}
	if cards == 0 && len(sessions) == 0 {
		return false, nil
	}
	if err := s.notifier.SendReminders(ctx, user, cards, sessions); err != nil {
		return false, err
	}
	return true, nil
}
