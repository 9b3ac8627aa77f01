package study

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/overseer/internal/database"
	"github.com/example/overseer/internal/logging"
	"github.com/example/overseer/internal/planner"
	"github.com/example/overseer/pkg/models"
)

// PlanRequest asks for a generated study plan. Zero SessionMinutes and
// SessionsPerDay use the configured defaults.
type PlanRequest struct {
	SubjectID      int64      `json:"subject_id"`
	Topics         []string   `json:"topics"`
	ExamDate       *time.Time `json:"exam_date,omitempty"`
	TotalMinutes   *int       `json:"total_minutes,omitempty"`
	SessionMinutes int        `json:"session_minutes"`
	SessionsPerDay int        `json:"sessions_per_day"`
}

// PlanUpdate changes the editable fields of a plan. Nil fields are kept.
type PlanUpdate struct {
	Title        *string
	ExamDate     *time.Time
	TotalMinutes *int
}

// SessionUpdate records the outcome of a session. Nil fields are kept.
type SessionUpdate struct {
	Status       *string
	ScheduledFor *time.Time
	CompletedAt  *time.Time
	Difficulty   *int
	Notes        *string
}

// Progress summarizes the sessions of one subject.
type Progress struct {
	Done            int      `json:"done"`
	Planned         int      `json:"planned"`
	Skipped         int      `json:"skipped"`
	AvgDifficulty   *float64 `json:"avg_difficulty"`
	FutureLoadHours float64  `json:"future_load_hours"`
}

// GeneratePlan builds the sessions for req starting today and stores the plan
// with its sessions atomically.
func (s *Service) GeneratePlan(ctx context.Context, owner int64, req PlanRequest) (*models.StudyPlan, error) {
	log := logging.WithRequest(s.log, "generate_plan").With(zap.Int64("owner_id", owner), zap.Int64("subject_id", req.SubjectID))

	if req.SessionMinutes == 0 {
		req.SessionMinutes = s.defaults.SessionMinutes
	}
	if req.SessionsPerDay == 0 {
		req.SessionsPerDay = s.defaults.SessionsPerDay
	}
	if req.SessionMinutes < 0 || req.SessionsPerDay < 0 {
		return nil, fmt.Errorf("%w: session minutes and sessions per day must be positive", ErrInvalidPlan)
	}
	if req.TotalMinutes != nil && *req.TotalMinutes < 0 {
		return nil, fmt.Errorf("%w: total minutes must not be negative", ErrInvalidPlan)
	}
	topics := cleanTopics(req.Topics)
	if len(topics) == 0 && req.ExamDate == nil {
		return nil, fmt.Errorf("%w: no topics", ErrInvalidPlan)
	}

	subject, err := s.subjects.Get(ctx, owner, req.SubjectID)
	if err != nil {
		return nil, storeErr(err, "subject", req.SubjectID)
	}

	generated := planner.Generate(planner.Request{
		Topics:         topics,
		StartDay:       s.clock(),
		ExamDate:       utcPtr(req.ExamDate),
		SessionMinutes: req.SessionMinutes,
		SessionsPerDay: req.SessionsPerDay,
	})

	plan := &models.StudyPlan{
		OwnerID:      owner,
		SubjectID:    subject.ID,
		Title:        "Plan " + subject.Name,
		ExamDate:     utcPtr(req.ExamDate),
		TotalMinutes: req.TotalMinutes,
		Sessions:     make([]models.StudySession, 0, len(generated)),
	}
	for _, g := range generated {
		plan.Sessions = append(plan.Sessions, models.StudySession{
			Kind:            g.Kind,
			Topic:           g.Topic,
			Status:          models.SessionPlanned,
			ScheduledFor:    g.ScheduledFor,
			DurationMinutes: g.DurationMinutes,
		})
	}

	if err := s.plans.CreateWithSessions(ctx, plan); err != nil {
		log.Error("Failed to store plan", zap.Error(err))
		return nil, err
	}
	log.Info("Generated study plan", zap.Int64("plan_id", plan.ID), zap.Int("sessions", len(plan.Sessions)))
	return plan, nil
}

// GetPlan returns one plan with its sessions.
func (s *Service) GetPlan(ctx context.Context, owner, id int64) (*models.StudyPlan, error) {
	plan, err := s.plans.Get(ctx, owner, id)
	if err != nil {
		return nil, storeErr(err, "plan", id)
	}
	return plan, nil
}

// ListPlans returns the owner's plans, optionally for one subject.
func (s *Service) ListPlans(ctx context.Context, owner int64, subjectID *int64) ([]models.StudyPlan, error) {
	return s.plans.List(ctx, owner, subjectID)
}

// UpdatePlan applies upd and returns the stored plan.
func (s *Service) UpdatePlan(ctx context.Context, owner, id int64, upd PlanUpdate) (*models.StudyPlan, error) {
	plan, err := s.plans.Get(ctx, owner, id)
	if err != nil {
		return nil, storeErr(err, "plan", id)
	}
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			return nil, fmt.Errorf("%w: empty plan title", ErrInvalidInput)
		}
		plan.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.ExamDate != nil {
		plan.ExamDate = utcPtr(upd.ExamDate)
	}
	if upd.TotalMinutes != nil {
		plan.TotalMinutes = upd.TotalMinutes
	}
	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, storeErr(err, "plan", id)
	}
	return plan, nil
}

// DeletePlan removes a plan and its sessions.
func (s *Service) DeletePlan(ctx context.Context, owner, id int64) error {
	if err := s.plans.Delete(ctx, owner, id); err != nil {
		return storeErr(err, "plan", id)
	}
	s.log.Info("Deleted plan", zap.Int64("owner_id", owner), zap.Int64("plan_id", id))
	return nil
}

// UpdateSession records the outcome of a session. Marking a session done
// without a completion time stamps it with the current time.
func (s *Service) UpdateSession(ctx context.Context, owner, id int64, upd SessionUpdate) (*models.StudySession, error) {
	if upd.Status != nil {
		switch *upd.Status {
		case models.SessionPlanned, models.SessionDone, models.SessionSkipped:
		default:
			return nil, fmt.Errorf("%w: unknown session status %q", ErrInvalidInput, *upd.Status)
		}
		if *upd.Status == models.SessionDone && upd.CompletedAt == nil {
			now := s.clock()
			upd.CompletedAt = &now
		}
	}
	if upd.Difficulty != nil && (*upd.Difficulty < 1 || *upd.Difficulty > 5) {
		return nil, fmt.Errorf("%w: difficulty must be between 1 and 5", ErrInvalidInput)
	}

	err := s.plans.UpdateSession(ctx, owner, id, database.SessionUpdate{
		Status:       upd.Status,
		ScheduledFor: upd.ScheduledFor,
		CompletedAt:  upd.CompletedAt,
		Difficulty:   upd.Difficulty,
		Notes:        upd.Notes,
	})
	if err != nil {
		return nil, storeErr(err, "session", id)
	}
	session, err := s.plans.GetSession(ctx, owner, id)
	if err != nil {
		return nil, storeErr(err, "session", id)
	}
	return session, nil
}

// DueSessions returns the planned sessions scheduled at or before now.
func (s *Service) DueSessions(ctx context.Context, owner int64, now time.Time) ([]models.StudySession, error) {
	return s.plans.DueSessions(ctx, owner, now.UTC())
}

// SubjectProgress summarizes the sessions of a subject. A subject without
// sessions yields ErrNotFound.
func (s *Service) SubjectProgress(ctx context.Context, owner, subjectID int64) (Progress, error) {
	sessions, err := s.plans.SessionsBySubject(ctx, owner, subjectID)
	if err != nil {
		return Progress{}, err
	}
	if len(sessions) == 0 {
		return Progress{}, fmt.Errorf("%w: no sessions for subject %d", ErrNotFound, subjectID)
	}

	var p Progress
	var difficultySum, difficultyCount, plannedMinutes int
	for _, session := range sessions {
		switch session.Status {
		case models.SessionDone:
			p.Done++
		case models.SessionPlanned:
			p.Planned++
			plannedMinutes += session.DurationMinutes
		case models.SessionSkipped:
			p.Skipped++
		}
		if session.Difficulty != nil {
			difficultySum += *session.Difficulty
			difficultyCount++
		}
	}
	if difficultyCount > 0 {
		avg := float64(difficultySum) / float64(difficultyCount)
		p.AvgDifficulty = &avg
	}
	p.FutureLoadHours = math.Round(float64(plannedMinutes)/60*100) / 100
	return p, nil
}

func cleanTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
