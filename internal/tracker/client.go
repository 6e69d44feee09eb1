// Package tracker talks to the Jira Cloud REST API: project and user lookups,
// duplicate search, and issue creation.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// IssueType is the type of every created issue.
	IssueType = "Task"

	maxProjectPages  = 20
	projectPageSize  = 50
	maxResponseBytes = 1 << 20
)

// Client is bound to one request's credentials. It holds no mutable state.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient returns a client for cfg. httpClient should carry a timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient}
}

type projectPage struct {
	Values []struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"values"`
	StartAt int  `json:"startAt"`
	Total   int  `json:"total"`
	IsLast  bool `json:"isLast"`
}

type userResult struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}

// ResolveProjectKey finds the project whose name equals displayName, ignoring
// case and surrounding whitespace, and returns its key.
func (c *Client) ResolveProjectKey(ctx context.Context, displayName string) (string, error) {
	want := strings.ToLower(strings.TrimSpace(displayName))
	startAt := 0
	for page := 0; page < maxProjectPages; page++ {
		q := url.Values{}
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(projectPageSize))

		var resp projectPage
		if err := c.getJSON(ctx, "/rest/api/3/project/search", q, &resp); err != nil {
			return "", fmt.Errorf("project search: %w", err)
		}
		for _, p := range resp.Values {
			if strings.ToLower(strings.TrimSpace(p.Name)) == want {
				return p.Key, nil
			}
		}
		startAt += len(resp.Values)
		if resp.IsLast || len(resp.Values) == 0 || (resp.Total > 0 && startAt >= resp.Total) {
			break
		}
	}
	return "", &ProjectNotFoundError{Name: displayName}
}

// ResolveAssigneeID returns the account id of the first user the search
// yields for name. Ambiguous names take whichever user the tracker ranks first.
func (c *Client) ResolveAssigneeID(ctx context.Context, name string) (string, error) {
	q := url.Values{}
	q.Set("query", name)
	var users []userResult
	if err := c.getJSON(ctx, "/rest/api/3/user/search", q, &users); err != nil {
		return "", fmt.Errorf("user search: %w", err)
	}
	if len(users) == 0 {
		return "", &UserNotFoundError{Name: name}
	}
	return users[0].AccountID, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	return req, nil
}

// do executes req and returns status and body. Transport errors are returned;
// HTTP status handling is left to the caller.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	slog.Debug("tracker call", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	status, body, err := c.do(req)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("tracker returned status %d: %s", status, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (int, []byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(buf))
	if err != nil {
		return 0, nil, err
	}
	return c.do(req)
}
