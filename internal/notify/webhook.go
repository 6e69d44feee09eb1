// Package notify posts pipeline results to an outbound webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/tracker"
)

// Message represents one finished inbox run.
type Message struct {
	Text        string            `json:"text"`
	Source      string            `json:"source,omitempty"`
	SummaryText string            `json:"summary_text,omitempty"`
	AssigneeIDs map[string]string `json:"assignee_id_map,omitempty"`
	Outcomes    []tracker.Outcome `json:"issue_outcomes,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Webhook posts messages to url. The zero value and an empty url are no-ops.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{url: strings.TrimSpace(url), client: client}
}

// Enabled reports whether a destination is configured.
func (w *Webhook) Enabled() bool {
	return w != nil && w.url != ""
}

// Send posts msg as JSON if a destination is configured.
func (w *Webhook) Send(ctx context.Context, msg Message) error {
	if !w.Enabled() {
		return nil
	}
	buf, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
