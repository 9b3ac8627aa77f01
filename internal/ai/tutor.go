package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Tutoring modes.
const (
	ModeSummary     = "resume"
	ModeExplanation = "explication"
	ModeExercises   = "exercices"
	ModeQuiz        = "quiz"
)

const (
	tutorSystem   = "Tu es un tuteur pédagogique concis. Réponds en français."
	fallbackInstr = "Explique de façon pédagogique."
	defaultTopic  = "n/a"
)

var tutorInstructions = map[string]string{
	ModeSummary:     "Résume le cours de façon structurée en puces.",
	ModeExplanation: "Explique le concept de manière claire et concise en français.",
	ModeExercises:   "Génère des exercices corrigés adaptés au niveau.",
	ModeQuiz:        "Crée un quiz à choix multiples avec les réponses et une justification courte.",
}

// TutorRequest describes a study assistance request.
type TutorRequest struct {
	Subject    string `json:"subject"`
	Topic      string `json:"topic,omitempty"`
	Content    string `json:"content,omitempty"`
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty"`
	Items      int    `json:"items"`
}

// Normalize fills the defaults: mode resume, difficulty medium, 5 items.
func (r TutorRequest) Normalize() TutorRequest {
	if r.Mode == "" {
		r.Mode = ModeSummary
	}
	if r.Difficulty == "" {
		r.Difficulty = "medium"
	}
	if r.Items <= 0 {
		r.Items = 5
	}
	return r
}

// TutorPrompt builds the prompt for r. Unknown modes get a generic instruction.
func TutorPrompt(r TutorRequest) Prompt {
	r = r.Normalize()
	instruction, ok := tutorInstructions[r.Mode]
	if !ok {
		instruction = fallbackInstr
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sujet: %s. Topic: %s. Difficulté: %s. Nombre d'items: %d. %s",
		r.Subject, topicOrDefault(r.Topic), r.Difficulty, r.Items, instruction)
	if r.Content != "" {
		b.WriteString("\nContexte:\n")
		b.WriteString(r.Content)
	}
	return Prompt{System: tutorSystem, User: b.String()}
}

// TutorFallback is the text shown instead of a generated answer.
func TutorFallback(r TutorRequest, err error) string {
	r = r.Normalize()
	if err == nil || errors.Is(err, ErrNotConfigured) {
		return fmt.Sprintf("Assistant not configured (missing LLM key). mode=%s, subject=%s, topic=%s, items=%d, difficulty=%s.",
			r.Mode, r.Subject, topicOrDefault(r.Topic), r.Items, r.Difficulty)
	}
	return fmt.Sprintf("Could not generate study help: %v", err)
}

func topicOrDefault(t string) string {
	if t == "" {
		return defaultTopic
	}
	return t
}
