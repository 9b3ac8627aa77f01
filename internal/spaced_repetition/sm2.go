package spaced_repetition

import (
	"math"
	"sort"
	"time"

	"github.com/example/overseer/pkg/models"
)

// Default repetition state for a freshly created card.
const (
	DefaultInterval = 1
	DefaultEase     = 2.5
)

// State is the repetition part of a flashcard.
type State struct {
	IntervalDays int
	Ease         float64
	Streak       int
	LastScore    *int
}

// NewState returns the state every new card starts with.
func NewState() State {
	return State{IntervalDays: DefaultInterval, Ease: DefaultEase}
}

// StateOf extracts the repetition state from a stored card.
func StateOf(card models.Card) State {
	return State{
		IntervalDays: card.IntervalDays,
		Ease:         card.Ease,
		Streak:       card.Streak,
		LastScore:    card.LastScore,
	}
}

// SM2 implements a simplified SuperMemo-2 update with a bounded ease factor.
type SM2 struct {
	// Scores at or above this value count as a successful recall
	PassThreshold int
	MinEase       float64
	MaxEase       float64
	// Ease lost on a failed recall
	FailPenalty float64
	// Intervals used for the first successful recalls, indexed by streak
	Ladder []int
}

// NewSM2 creates an SM2 instance with the default settings
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold: 3,
		MinEase:       1.3,
		MaxEase:       2.8,
		FailPenalty:   0.2,
		Ladder:        []int{1, 6},
	}
}

// QualityResponse represents the quality of a recall, 1 (blackout) to 5 (perfect).
type QualityResponse int

const (
	QualityBlackout          QualityResponse = 1
	QualityIncorrectFamiliar QualityResponse = 2
	QualityCorrectDifficult  QualityResponse = 3
	QualityCorrectHesitation QualityResponse = 4
	QualityPerfect           QualityResponse = 5
)

// Review computes the next repetition state for a card given a review score.
// The input state is not modified. Any integer score is accepted; only the ease
// bound limits the effect of scores outside 1..5.
func (sm *SM2) Review(state State, score int) State {
	next := State{LastScore: &score}

	if score < sm.PassThreshold {
		next.IntervalDays = 1
		next.Ease = math.Max(sm.MinEase, state.Ease-sm.FailPenalty)
		next.Streak = 0
		return next
	}

	miss := float64(5 - score)
	ease := state.Ease + (0.1 - miss*(0.08+miss*0.02))
	next.Ease = clamp(ease, sm.MinEase, sm.MaxEase)

	if state.Streak < len(sm.Ladder) {
		next.IntervalDays = sm.Ladder[state.Streak]
	} else {
		next.IntervalDays = int(math.Floor(float64(state.IntervalDays) * next.Ease))
	}
	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}
	next.Streak = state.Streak + 1

	return next
}

// DueAt returns the next due time for a card reviewed at now.
func DueAt(now time.Time, state State) time.Time {
	return now.AddDate(0, 0, state.IntervalDays)
}

// Apply copies the state into the card and sets its due time.
func Apply(card *models.Card, state State, now time.Time) {
	card.IntervalDays = state.IntervalDays
	card.Ease = state.Ease
	card.Streak = state.Streak
	card.LastScore = state.LastScore
	card.DueAt = DueAt(now, state)
}

// DueCards returns the cards due at now, at most limit of them (limit <= 0 means all).
func (sm *SM2) DueCards(cards []models.Card, now time.Time, limit int) []models.Card {
	var due []models.Card
	for _, c := range cards {
		if !c.DueAt.After(now) {
			due = append(due, c)
		}
	}

	// Never reviewed first, then harder cards, then the most overdue.
	sort.SliceStable(due, func(i, j int) bool {
		iNew, jNew := due[i].LastScore == nil, due[j].LastScore == nil
		if iNew != jNew {
			return iNew
		}
		if due[i].Ease != due[j].Ease {
			return due[i].Ease < due[j].Ease
		}
		return due[i].DueAt.Before(due[j].DueAt)
	})

	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}

// IsMastered reports whether a card is considered learned:
// a streak of at least 5, a last score of 4 or 5 and an interval of 30 days or more.
func (sm *SM2) IsMastered(card models.Card) bool {
	return card.Streak >= 5 &&
		card.LastScore != nil && *card.LastScore >= int(QualityCorrectHesitation) &&
		card.IntervalDays >= 30
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
