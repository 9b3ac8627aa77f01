package study

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/overseer/internal/feedback"
	"github.com/example/overseer/internal/logging"
	"github.com/example/overseer/pkg/models"
)

// Feedback analyzes the owner's tasks and events over the scope window around
// anchor. An empty scope means a day and a nil anchor means now.
func (s *Service) Feedback(ctx context.Context, owner int64, scope string, anchor *time.Time) (feedback.Stats, error) {
	sc, err := feedback.ParseScope(scope)
	if err != nil {
		return feedback.Stats{}, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	at := s.clock()
	if anchor != nil {
		at = anchor.UTC()
	}
	log := logging.WithRequest(s.log, "feedback").With(zap.Int64("owner_id", owner), zap.String("scope", string(sc)))

	// Estimate adjustments look at every event, so nothing is window-filtered here.
	var (
		tasks  []models.Task
		events []models.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = s.tasks.List(gctx, owner)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = s.events.List(gctx, owner)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("Failed to load feedback records", zap.Error(err))
		return feedback.Stats{}, err
	}

	taskSnaps := make([]feedback.TaskSnapshot, 0, len(tasks))
	for _, t := range tasks {
		taskSnaps = append(taskSnaps, feedback.TaskFromModel(t))
	}
	eventSnaps := make([]feedback.EventSnapshot, 0, len(events))
	for _, e := range events {
		eventSnaps = append(eventSnaps, feedback.EventFromModel(e))
	}

	stats := feedback.Analyze(sc, at, taskSnaps, eventSnaps)
	log.Debug("Computed feedback",
		zap.Float64("planned_hours", stats.PlannedHours),
		zap.Float64("actual_hours", stats.ActualHours),
		zap.Float64("completion_rate", stats.CompletionRate))
	return stats, nil
}
