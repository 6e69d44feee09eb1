package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/pipeline"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/tracker"
)

// Form fields accepted by POST /process.
const (
	FieldMeetingFile = "meeting_file"
	FieldEmail       = "jira_email"
	FieldAPIToken    = "jira_api_token"
	FieldInstance    = "jira_api_instance"
	FieldProject     = "project_name"
)

// formOverhead leaves room for the text fields and multipart framing.
const formOverhead = 64 << 10

type inputError struct {
	status int
	msg    string
}

func (e *inputError) Error() string { return e.msg }

// process handles POST /process. Input problems are answered before any
// outbound call: a missing or invalid field gets 400 and an upload over the
// size limit gets 413. Only a failed pipeline run, such as a summarizer error
// or an unknown project, gets 500. Every error body is {"error": msg}.
func (r *Router) process(w http.ResponseWriter, req *http.Request) {
	requestID := RequestIDFrom(req.Context())

	transcript, creds, err := r.parseForm(w, req)
	if err != nil {
		var ie *inputError
		if errors.As(err, &ie) {
			slog.Warn("rejected process request", "request_id", requestID, "error", ie.msg)
			writeError(w, ie.status, ie.msg)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A started run finishes even if the caller goes away; outbound calls carry
	// their own timeouts.
	ctx := context.WithoutCancel(req.Context())
	res, err := r.runner.Run(ctx, pipeline.Request{ID: requestID, Transcript: transcript, Tracker: creds})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// parseForm reads the transcript into memory and validates the credentials.
func (r *Router) parseForm(w http.ResponseWriter, req *http.Request) (string, tracker.Config, error) {
	limit := r.maxUploadBytes + formOverhead
	req.Body = http.MaxBytesReader(w, req.Body, limit)
	if err := req.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return "", tracker.Config{}, &inputError{http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", r.maxUploadBytes)}
		}
		return "", tracker.Config{}, &inputError{http.StatusBadRequest, "expected multipart form: " + err.Error()}
	}
	defer req.MultipartForm.RemoveAll()

	file, _, err := req.FormFile(FieldMeetingFile)
	if err != nil {
		return "", tracker.Config{}, &inputError{http.StatusBadRequest, FieldMeetingFile + " is required"}
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, r.maxUploadBytes+1))
	if err != nil {
		return "", tracker.Config{}, &inputError{http.StatusBadRequest, "read " + FieldMeetingFile + ": " + err.Error()}
	}
	if int64(len(data)) > r.maxUploadBytes {
		return "", tracker.Config{}, &inputError{http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", r.maxUploadBytes)}
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", tracker.Config{}, &inputError{http.StatusBadRequest, FieldMeetingFile + " is empty"}
	}

	creds, err := tracker.NewConfig(
		req.FormValue(FieldInstance),
		req.FormValue(FieldEmail),
		req.FormValue(FieldAPIToken),
		req.FormValue(FieldProject),
	)
	if err != nil {
		return "", tracker.Config{}, &inputError{http.StatusBadRequest, err.Error()}
	}
	return string(data), creds, nil
}
