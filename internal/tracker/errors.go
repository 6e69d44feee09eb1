package tracker

import "fmt"

// ProjectNotFoundError means no project display name matched. It aborts the
// whole run.
type ProjectNotFoundError struct {
	Name string
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("project not found: %q", e.Name)
}

// UserNotFoundError means the user search came back empty. It only fails the
// item it belongs to.
type UserNotFoundError struct {
	Name string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("no user: %s", e.Name)
}

// IssueCreationError describes a rejected create call. It is folded into an
// error outcome rather than returned.
type IssueCreationError struct {
	StatusCode int
	Body       string
}

func (e *IssueCreationError) Error() string {
	return fmt.Sprintf("issue creation returned status %d: %s", e.StatusCode, e.Body)
}
