package study

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/overseer/internal/database"
	"github.com/example/overseer/internal/logging"
	"github.com/example/overseer/internal/spaced_repetition"
	"github.com/example/overseer/pkg/models"
)

// maxReviewAttempts bounds the read-review-write loop when another review of
// the same card wins the compare-and-update.
const maxReviewAttempts = 3

// CardCreate describes a new flashcard. A nil DueAt means due now.
type CardCreate struct {
	SubjectID int64      `json:"subject_id"`
	Front     string     `json:"front"`
	Back      string     `json:"back"`
	DueAt     *time.Time `json:"due_at,omitempty"`
}

// CreateCard stores a card with the default repetition state.
func (s *Service) CreateCard(ctx context.Context, owner int64, req CardCreate) (*models.Card, error) {
	front, back := strings.TrimSpace(req.Front), strings.TrimSpace(req.Back)
	if front == "" || back == "" {
		return nil, fmt.Errorf("%w: card front and back are required", ErrInvalidInput)
	}
	if _, err := s.subjects.Get(ctx, owner, req.SubjectID); err != nil {
		return nil, storeErr(err, "subject", req.SubjectID)
	}

	state := spaced_repetition.NewState()
	card := &models.Card{
		OwnerID:      owner,
		SubjectID:    req.SubjectID,
		Front:        front,
		Back:         back,
		DueAt:        s.clock(),
		IntervalDays: state.IntervalDays,
		Ease:         state.Ease,
		Streak:       state.Streak,
	}
	if req.DueAt != nil {
		card.DueAt = req.DueAt.UTC()
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// CardExists reports whether the subject already has a card with this front.
func (s *Service) CardExists(ctx context.Context, owner, subjectID int64, front string) (bool, error) {
	return s.cards.ExistsFront(ctx, owner, subjectID, strings.TrimSpace(front))
}

// GetCard returns one card.
func (s *Service) GetCard(ctx context.Context, owner, id int64) (*models.Card, error) {
	card, err := s.cards.Get(ctx, owner, id)
	if err != nil {
		return nil, storeErr(err, "card", id)
	}
	return card, nil
}

// ListCards returns the owner's cards, optionally for one subject.
func (s *Service) ListCards(ctx context.Context, owner int64, subjectID *int64) ([]models.Card, error) {
	return s.cards.List(ctx, owner, subjectID)
}

// DueCards returns at most limit cards due at now in review order:
// never reviewed first, then lower ease, then the most overdue.
// A limit <= 0 returns every due card.
func (s *Service) DueCards(ctx context.Context, owner int64, subjectID *int64, now time.Time, limit int) ([]models.Card, error) {
	now = now.UTC()
	cards, err := s.cards.Due(ctx, owner, subjectID, now)
	if err != nil {
		return nil, err
	}
	return s.engine.DueCards(cards, now, limit), nil
}

// CountDueCards returns the number of cards due at now.
func (s *Service) CountDueCards(ctx context.Context, owner int64, now time.Time) (int, error) {
	return s.cards.CountDue(ctx, owner, now.UTC())
}

// ReviewCard applies a review score in 1..5 to a card and stores the new state,
// due interval_days after now. Concurrent reviews of the same card are
// serialized by the store; a lost race re-reads the card and tries again.
func (s *Service) ReviewCard(ctx context.Context, owner, cardID int64, score int, now time.Time) (*models.Card, error) {
	if score < int(spaced_repetition.QualityBlackout) || score > int(spaced_repetition.QualityPerfect) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidScore, score)
	}
	now = now.UTC()
	log := logging.WithRequest(s.log, "review_card").With(zap.Int64("owner_id", owner), zap.Int64("card_id", cardID))

	for attempt := 1; attempt <= maxReviewAttempts; attempt++ {
		card, err := s.cards.Get(ctx, owner, cardID)
		if err != nil {
			return nil, storeErr(err, "card", cardID)
		}

		next := s.engine.Review(spaced_repetition.StateOf(*card), score)
		spaced_repetition.Apply(card, next, now)

		err = s.cards.UpdateReview(ctx, card)
		if err == nil {
			log.Info("Reviewed card",
				zap.Int("score", score),
				zap.Int("interval_days", card.IntervalDays),
				zap.Float64("ease", card.Ease),
				zap.Int("attempt", attempt))
			return card, nil
		}
		if !errors.Is(err, database.ErrConflict) {
			return nil, storeErr(err, "card", cardID)
		}
		log.Debug("Card changed during review, retrying", zap.Int("attempt", attempt))
	}

	log.Warn("Giving up on card review", zap.Int("attempts", maxReviewAttempts))
	return nil, fmt.Errorf("%w: card %d", ErrConflict, cardID)
}

// DeleteCard removes a card.
func (s *Service) DeleteCard(ctx context.Context, owner, id int64) error {
	return storeErr(s.cards.Delete(ctx, owner, id), "card", id)
}
