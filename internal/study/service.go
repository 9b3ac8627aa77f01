// Package study implements the request handlers of the study assistant on top
// of the record store: plan generation, card review, feedback queries and the
// record glue the CLI and the bot share.
package study

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/example/overseer/internal/ai"
	"github.com/example/overseer/internal/config"
	"github.com/example/overseer/internal/database"
	"github.com/example/overseer/internal/logging"
	"github.com/example/overseer/internal/spaced_repetition"
)

var (
	ErrNotFound     = errors.New("study: not found")
	ErrInvalidScore = errors.New("study: review score must be between 1 and 5")
	ErrInvalidScope = errors.New("study: scope must be day, week or month")
	ErrInvalidPlan  = errors.New("study: invalid plan request")
	ErrInvalidInput = errors.New("study: invalid input")
	ErrConflict     = errors.New("study: card changed concurrently, retry later")
)

// Service wires the repositories, the repetition engine and the text generator.
type Service struct {
	users    *database.UserRepository
	subjects *database.SubjectRepository
	plans    *database.PlanRepository
	cards    *database.CardRepository
	tasks    *database.TaskRepository
	events   *database.EventRepository

	engine   *spaced_repetition.SM2
	gen      ai.Generator
	defaults config.StudyConfig
	log      *zap.Logger
	now      func() time.Time
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	Generator ai.Generator
	Study     config.StudyConfig
	Logger    *zap.Logger
	// Now is the clock used where a request carries no time. Defaults to time.Now.
	Now func() time.Time
}

// New creates a service over db.
func New(db *sqlx.DB, opts Options) *Service {
	s := &Service{
		users:    database.NewUserRepository(db),
		subjects: database.NewSubjectRepository(db),
		plans:    database.NewPlanRepository(db),
		cards:    database.NewCardRepository(db),
		tasks:    database.NewTaskRepository(db),
		events:   database.NewEventRepository(db),
		engine:   spaced_repetition.NewSM2(),
		gen:      opts.Generator,
		defaults: opts.Study,
		log:      logging.OrNop(opts.Logger),
		now:      opts.Now,
	}
	if s.gen == nil {
		s.gen = ai.Disabled{}
	}
	if s.defaults.SessionMinutes <= 0 {
		s.defaults.SessionMinutes = 30
	}
	if s.defaults.SessionsPerDay <= 0 {
		s.defaults.SessionsPerDay = 2
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Engine returns the repetition engine, for callers that need its ordering or mastery rules.
func (s *Service) Engine() *spaced_repetition.SM2 { return s.engine }

func (s *Service) clock() time.Time { return s.now().UTC() }

// storeErr translates repository errors into the package sentinels.
func storeErr(err error, what string, id int64) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	case errors.Is(err, database.ErrConflict):
		return fmt.Errorf("%w: %s %d", ErrConflict, what, id)
	}
	return err
}
