// Package llm drafts meeting minutes from a transcript using an
// OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/config"
)

// SummarizationError reports a failed completion call. The pipeline treats it
// as fatal.
type SummarizationError struct {
	Err error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("failed to generate MoM: %v", e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// Summarizer is a thin client around the completion endpoint.
type Summarizer struct {
	client *http.Client
	cfg    config.LLMConfig
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewSummarizer builds a Summarizer. A nil client gets one bounded by the
// configured timeout.
func NewSummarizer(client *http.Client, cfg config.LLMConfig) *Summarizer {
	if client == nil {
		timeout := time.Duration(cfg.TimeoutSec) * time.Second
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = config.DefaultSystemPrompt
	}
	return &Summarizer{client: client, cfg: cfg}
}

// Summarize sends the transcript and returns the generated text as-is.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	text, err := s.complete(ctx, transcript)
	if err != nil {
		return "", &SummarizationError{Err: err}
	}
	return text, nil
}

func (s *Summarizer) complete(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return "", errors.New("OPENAI_API_KEY not set")
	}
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/chat/completions"
	payload := chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: s.cfg.SystemPrompt},
			{Role: "user", Content: transcript},
		},
		Temperature: s.cfg.Temperature,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var wrapper chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(wrapper.Choices) == 0 {
		return "", errors.New("empty llm response")
	}
	return wrapper.Choices[0].Message.Content, nil
}
