package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Status classifies a per-item outcome.
type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// IssueRequest is the input for CreateIssue.
type IssueRequest struct {
	ProjectKey  string
	Summary     string
	Description string
	AssigneeID  string
}

// Outcome records what happened to one action item.
type Outcome struct {
	Status   Status          `json:"status"`
	Summary  string          `json:"summary,omitempty"`
	Assignee string          `json:"assignee,omitempty"`
	Key      string          `json:"key,omitempty"`
	Issue    json.RawMessage `json:"issue,omitempty"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type searchResponse struct {
	Issues []struct {
		Key string `json:"key"`
	} `json:"issues"`
}

type createdIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

type issuePayload struct {
	Fields issueFields `json:"fields"`
}

type issueFields struct {
	Project     keyRef     `json:"project"`
	Summary     string     `json:"summary"`
	Description adfDoc     `json:"description"`
	IssueType   nameRef    `json:"issuetype"`
	Assignee    accountRef `json:"assignee"`
}

type keyRef struct {
	Key string `json:"key"`
}

type nameRef struct {
	Name string `json:"name"`
}

type accountRef struct {
	AccountID string `json:"accountId"`
}

// FindDuplicate reports whether the project already has an issue whose summary
// contains summary. The check is approximate: the tracker's "~" operator is a
// text search, and nothing stops a concurrent request from creating the same
// issue right after.
func (c *Client) FindDuplicate(ctx context.Context, projectKey, summary string) (bool, error) {
	q := url.Values{}
	q.Set("jql", duplicateJQL(projectKey, summary))
	q.Set("maxResults", "1")
	q.Set("fields", "summary")
	var resp searchResponse
	if err := c.getJSON(ctx, "/rest/api/3/search/jql", q, &resp); err != nil {
		return false, fmt.Errorf("duplicate search: %w", err)
	}
	return len(resp.Issues) > 0, nil
}

// CreateIssue skips when a duplicate exists, otherwise submits a Task. A
// rejected create comes back as an error outcome, not an error; only transport
// and search failures are returned as errors.
func (c *Client) CreateIssue(ctx context.Context, in IssueRequest) (Outcome, error) {
	dup, err := c.FindDuplicate(ctx, in.ProjectKey, in.Summary)
	if err != nil {
		return Outcome{}, err
	}
	if dup {
		slog.Info("duplicate issue skipped", "project", in.ProjectKey, "summary", in.Summary)
		return Outcome{Status: StatusSkipped, Summary: in.Summary, Message: "Duplicate skipped"}, nil
	}

	payload := issuePayload{Fields: issueFields{
		Project:     keyRef{Key: in.ProjectKey},
		Summary:     in.Summary,
		Description: paragraphDoc(in.Description),
		IssueType:   nameRef{Name: IssueType},
		Assignee:    accountRef{AccountID: in.AssigneeID},
	}}
	status, body, err := c.postJSON(ctx, "/rest/api/3/issue", payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("create issue: %w", err)
	}
	if status != http.StatusCreated {
		cerr := &IssueCreationError{StatusCode: status, Body: string(body)}
		slog.Warn("issue creation rejected", "project", in.ProjectKey, "error", cerr)
		return Outcome{Status: StatusError, Summary: in.Summary, Error: string(body)}, nil
	}

	out := Outcome{Status: StatusCreated, Summary: in.Summary, Issue: json.RawMessage(body)}
	var created createdIssue
	if err := json.Unmarshal(body, &created); err == nil {
		out.Key = created.Key
	} else {
		out.Issue = nil
		out.Message = string(body)
	}
	return out, nil
}

func duplicateJQL(projectKey, summary string) string {
	return fmt.Sprintf(`project = "%s" AND summary ~ "%s"`, escapeJQL(projectKey), escapeJQL(summary))
}

var jqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeJQL(s string) string {
	return jqlEscaper.Replace(s)
}
