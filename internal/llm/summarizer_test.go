package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/config"
)

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		BaseURL:     baseURL,
		Model:       "moonshot-v1-8k",
		APIKey:      "test-key",
		Temperature: 0.3,
		TimeoutSec:  5,
	}
}

func TestSummarize_SendsConversation(t *testing.T) {
	var received chatRequest
	var auth, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"1. **Issue:** Fix login bug\n   - **Assigned to:** Alice"}}]}`))
	}))
	defer server.Close()

	s := NewSummarizer(server.Client(), testConfig(server.URL+"/"))
	text, err := s.Summarize(context.Background(), "Alice: I'll fix the login bug.")
	require.NoError(t, err)

	assert.Equal(t, "1. **Issue:** Fix login bug\n   - **Assigned to:** Alice", text)
	assert.Equal(t, "/chat/completions", path)
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "moonshot-v1-8k", received.Model)
	assert.InDelta(t, 0.3, received.Temperature, 1e-9)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
	assert.Equal(t, config.DefaultSystemPrompt, received.Messages[0].Content)
	assert.Equal(t, "user", received.Messages[1].Role)
	assert.Equal(t, "Alice: I'll fix the login bug.", received.Messages[1].Content)
}

func TestSummarize_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	s := NewSummarizer(server.Client(), testConfig(server.URL))
	_, err := s.Summarize(context.Background(), "transcript")
	require.Error(t, err)

	var sumErr *SummarizationError
	require.True(t, errors.As(err, &sumErr))
	assert.Contains(t, err.Error(), "llm status 401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestSummarize_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	s := NewSummarizer(server.Client(), testConfig(server.URL))
	_, err := s.Summarize(context.Background(), "transcript")
	var sumErr *SummarizationError
	require.ErrorAs(t, err, &sumErr)
	assert.Contains(t, err.Error(), "empty llm response")
}

func TestSummarize_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	s := NewSummarizer(nil, testConfig(url))
	_, err := s.Summarize(context.Background(), "transcript")
	var sumErr *SummarizationError
	require.ErrorAs(t, err, &sumErr)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestSummarize_MissingAPIKey(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.APIKey = ""
	s := NewSummarizer(nil, cfg)
	_, err := s.Summarize(context.Background(), "transcript")
	var sumErr *SummarizationError
	require.ErrorAs(t, err, &sumErr)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}
