package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/config"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/pipeline"
)

func fakeServers(t *testing.T, content string) (llmURL, trackerURL string) {
	t.Helper()
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		})
	}))
	t.Cleanup(llmSrv.Close)

	trackerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/rest/api/3/project/search":
			_ = json.NewEncoder(w).Encode(map[string]any{"isLast": true, "values": []map[string]string{{"key": "WEB", "name": "Website Revamp"}}})
		case "/rest/api/3/user/search":
			_ = json.NewEncoder(w).Encode([]map[string]string{{"accountId": "acc-alice"}})
		case "/rest/api/3/search/jql":
			_ = json.NewEncoder(w).Encode(map[string]any{"issues": []map[string]string{{"key": "WEB-3"}}})
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(trackerSrv.Close)
	return llmSrv.URL, trackerSrv.URL
}

func writeTranscript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standup.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunProcessPrintsResult(t *testing.T) {
	llmURL, trackerURL := fakeServers(t, "1. **Issue:** Fix login bug\n   - **Assigned to:** Alice")
	cfg := config.Default()
	cfg.LLM.BaseURL = llmURL
	cfg.LLM.APIKey = "key"
	cfg.Watch.TrackerProject = "website revamp"

	opts := processOptions{
		file:    writeTranscript(t, "hello"),
		baseURL: trackerURL,
		email:   "pm@example.com",
		token:   "tok",
	}
	var out bytes.Buffer
	if err := runProcess(context.Background(), cfg, opts, &out); err != nil {
		t.Fatalf("process: %v", err)
	}
	var res pipeline.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Status != "skipped" {
		t.Fatalf("expected one skipped duplicate, got %+v", res.Outcomes)
	}
	if res.AssigneeIDs["Alice"] != "acc-alice" {
		t.Fatalf("unexpected ids %v", res.AssigneeIDs)
	}
}

func TestRunProcessMissingCredentials(t *testing.T) {
	cfg := config.Default()
	err := runProcess(context.Background(), cfg, processOptions{file: writeTranscript(t, "hello")}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestRunProcessEmptyTranscript(t *testing.T) {
	cfg := config.Default()
	err := runProcess(context.Background(), cfg, processOptions{file: writeTranscript(t, " \n")}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty transcript error, got %v", err)
	}
}
