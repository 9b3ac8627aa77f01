package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAI is a client for OpenAI-compatible chat completion APIs
// (OpenAI, OpenRouter and local servers that mimic them).
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAI creates a new chat completion client. baseURL is the API root,
// e.g. https://api.openai.com/v1.
func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration) *OpenAI {
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Message represents a message in the conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completions endpoint
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// ChatResponse represents a response from the chat completions endpoint
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends p as a system + user exchange and returns the first choice.
func (c *OpenAI) Generate(ctx context.Context, p Prompt) Result {
	messages := make([]Message, 0, 2)
	if p.System != "" {
		messages = append(messages, Message{Role: "system", Content: p.System})
	}
	messages = append(messages, Message{Role: "user", Content: p.User})

	requestData, err := json.Marshal(ChatRequest{Model: c.model, Messages: messages, MaxTokens: p.MaxTokens})
	if err != nil {
		return Result{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(requestData))
	if err != nil {
		return Result{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if strings.Contains(c.baseURL, "openrouter.ai") {
		req.Header.Set("HTTP-Referer", "http://localhost")
		req.Header.Set("X-Title", "OVERSEER")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Result{Err: fmt.Errorf("API returned status %d", resp.StatusCode)}
		}
		return Result{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if response.Error != nil {
		return Result{Err: fmt.Errorf("API error: %s", response.Error.Message)}
	}
	if resp.StatusCode != http.StatusOK {
		return Result{Err: fmt.Errorf("API returned status %d", resp.StatusCode)}
	}
	if len(response.Choices) == 0 {
		return Result{Err: fmt.Errorf("no response choices returned")}
	}

	msg := response.Choices[0].Message
	// Reasoning models sometimes leave content empty.
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		text = strings.TrimSpace(msg.Reasoning)
	}
	if text == "" {
		return Result{Err: fmt.Errorf("empty response")}
	}
	return Result{Text: text}
}
