package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini generates text with Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate runs a single GenerateContent call.
func (g *Gemini) Generate(ctx context.Context, p Prompt) Result {
	cfg := &genai.GenerateContentConfig{}
	if p.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.MaxTokens)
	}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.User), cfg)
	if err != nil {
		return Result{Err: fmt.Errorf("GenAI generate failed: %w", err)}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Result{Err: fmt.Errorf("empty response")}
	}
	return Result{Text: text}
}

// Name returns the generator name.
func (g *Gemini) Name() string {
	return fmt.Sprintf("genai:%s", g.model)
}
