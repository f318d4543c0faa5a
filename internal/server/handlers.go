package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jonathan/resume-refiner/internal/pipeline"
	"github.com/jonathan/resume-refiner/internal/refine"
	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/stage"
	"github.com/jonathan/resume-refiner/internal/types"
)

// maxRequestBytes bounds a run request body.
const maxRequestBytes = 1 << 20

// RunRequest represents the request body for /run. Each document is either a
// structured JSON record or a JSON string of raw text.
type RunRequest struct {
	Resume         json.RawMessage `json:"resume"`
	JobDescription json.RawMessage `json:"job_description"`
	MaxIterations  int             `json:"max_iterations,omitempty"`
}

// RunResponse represents the result of a finished run
type RunResponse struct {
	RunID      string                `json:"run_id,omitempty"`
	State      string                `json:"state"`
	Approved   bool                  `json:"approved"`
	Iterations int                   `json:"iterations"`
	Final      *types.Resume         `json:"final,omitempty"`
	Issues     []types.CritiqueIssue `json:"issues,omitempty"`
}

// ErrorResponse is the body of every error reply. Stages lists the failing
// stage chain, outermost first, for pipeline failures.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Stages []string `json:"stages,omitempty"`
}

// StageEvent is streamed for every stage status change
type StageEvent struct {
	Stage      string   `json:"stage"`
	Status     string   `json:"status"`
	Message    string   `json:"message,omitempty"`
	Keys       []string `json:"keys,omitempty"`
	DurationMs int64    `json:"duration_ms,omitempty"`
}

// TransitionEvent is streamed for every refinement loop transition
type TransitionEvent struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Issues int    `json:"issues"`
}

// documentText returns the raw text for a document field.
func documentText(field string, raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", &ErrValidation{Field: field, Message: "is required"}
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return "", &ErrValidation{Field: field, Message: err.Error()}
		}
		return text, nil
	}
	return string(trimmed), nil
}

func (s *Server) decodeRunRequest(r *http.Request) (pipeline.Options, error) {
	var req RunRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return pipeline.Options{}, &ErrValidation{Field: "body", Message: err.Error()}
	}
	resume, err := documentText("resume", req.Resume)
	if err != nil {
		return pipeline.Options{}, err
	}
	jd, err := documentText("job_description", req.JobDescription)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := s.base
	opts.Inputs = map[string]any{
		session.RawKey(session.RoleResume):         resume,
		session.RawKey(session.RoleJobDescription): jd,
	}
	if req.MaxIterations != 0 {
		opts.Loop.MaxIterations = req.MaxIterations
	}
	return opts, nil
}

func newRunResponse(report *pipeline.Report) *RunResponse {
	resp := &RunResponse{
		State:      report.Outcome.State.String(),
		Approved:   report.Approved(),
		Iterations: report.Outcome.Iterations,
		Final:      report.Final,
		Issues:     report.Outcome.Issues,
	}
	if report.RunID != uuid.Nil {
		resp.RunID = report.RunID.String()
	}
	return resp
}

func newErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error(), Stages: stage.Chain(err)}
}

// handleRun runs the pipeline and replies with the final artifact
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	opts, err := s.decodeRunRequest(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	report, err := pipeline.Run(r.Context(), opts)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newRunResponse(report))
}

// handleRunStream runs the pipeline and streams stage and loop events
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	opts, err := s.decodeRunRequest(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	opts.OnProgress = func(e pipeline.Event) {
		sse.WriteEvent("stage", StageEvent{ //nolint:errcheck
			Stage:      e.Stage,
			Status:     e.Status,
			Message:    e.Message,
			Keys:       e.Keys,
			DurationMs: e.Duration.Milliseconds(),
		})
	}
	opts.Loop.Observer = func(t refine.Transition) {
		sse.WriteEvent("transition", TransitionEvent{ //nolint:errcheck
			From:   t.From.String(),
			To:     t.To.String(),
			Issues: t.Issues,
		})
	}

	report, err := pipeline.Run(r.Context(), opts)
	if err != nil {
		sse.WriteError(newErrorResponse(err))
		return
	}
	sse.WriteComplete(newRunResponse(report))
}

// parseRunID reads the {id} URL parameter
func parseRunID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "invalid run ID"}
	}
	return id, nil
}

// handleListRuns lists recent archived runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, &ErrNoArchive{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.errorResponse(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetRun returns one run with its stage statuses
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, &ErrNoArchive{})
		return
	}
	id, err := parseRunID(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if run == nil {
		s.errorResponse(w, &ErrRunNotFound{RunID: id})
		return
	}
	steps, err := s.store.ListRunSteps(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"run": run, "steps": steps})
}

// handleListArtifacts lists the session keys stored for a run
func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, &ErrNoArchive{})
		return
	}
	id, err := parseRunID(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	artifacts, err := s.store.ListArtifacts(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	type entry struct {
		Key      string `json:"key"`
		Category string `json:"category"`
	}
	entries := make([]entry, 0, len(artifacts))
	for _, a := range artifacts {
		entries = append(entries, entry{Key: a.Key, Category: a.Category})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"run_id": id, "artifacts": entries})
}

// handleGetArtifact returns one stored session value as JSON
func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, &ErrNoArchive{})
		return
	}
	id, err := parseRunID(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	key := chi.URLParam(r, "key")
	content, err := s.store.GetArtifact(r.Context(), id, key)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if content == nil {
		s.errorResponse(w, &ErrArtifactNotFound{RunID: id, Key: key})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"status": "ok", "archive": s.store != nil})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response with the status HTTPStatus
// assigns to err
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	var validation *ErrValidation
	switch {
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", "status", status, "error", err)
	case !errors.As(err, &validation):
		s.logger.Warn("request failed", "status", status, "error", err)
	}
	s.jsonResponse(w, status, newErrorResponse(err))
}
