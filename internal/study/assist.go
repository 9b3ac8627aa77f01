package study

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/overseer/internal/ai"
	"github.com/example/overseer/internal/logging"
)

// AssistRequest asks the tutor for a summary, an explanation, exercises or a quiz.
type AssistRequest = ai.TutorRequest

// Assist returns the tutor output for req. When generation is unavailable or
// fails the returned text explains why instead.
func (s *Service) Assist(ctx context.Context, req AssistRequest) string {
	req = req.Normalize()
	log := logging.WithRequest(s.log, "assist").With(zap.String("mode", req.Mode), zap.String("subject", req.Subject))

	res := s.gen.Generate(ctx, ai.TutorPrompt(req))
	if !res.OK() {
		if errors.Is(res.Err, ai.ErrNotConfigured) {
			log.Debug("Assistant not configured")
		} else {
			log.Warn("Assistant generation failed", zap.Error(res.Err))
		}
		return ai.TutorFallback(req, res.Err)
	}
	return res.Text
}
