// Package server provides the HTTP API for running and inspecting refinements.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/resume-refiner/internal/refine"
	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/stage"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrRunNotFound indicates the run is not in the archive
type ErrRunNotFound struct {
	RunID uuid.UUID
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}

// ErrArtifactNotFound indicates the run has no artifact under the key
type ErrArtifactNotFound struct {
	RunID uuid.UUID
	Key   string
}

func (e *ErrArtifactNotFound) Error() string {
	return fmt.Sprintf("artifact %s not found for run %s", e.Key, e.RunID)
}

// ErrNoArchive indicates the server was started without a run archive
type ErrNoArchive struct{}

func (e *ErrNoArchive) Error() string {
	return "run archive is not configured"
}

// HTTPStatus returns the appropriate HTTP status code for an error. Pipeline
// failures are classified by their root cause.
func HTTPStatus(err error) int {
	var (
		validation  *ErrValidation
		runNF       *ErrRunNotFound
		artifactNF  *ErrArtifactNotFound
		noArchive   *ErrNoArchive
		cfgErr      *refine.ConfigError
		missing     *session.MissingInputError
		malformed   *session.MalformedDataError
		policy      *stage.PolicyError
		collaborate *stage.CollaboratorError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &runNF), errors.As(err, &artifactNF):
		return http.StatusNotFound
	case errors.As(err, &noArchive):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &collaborate):
		return http.StatusBadGateway
	case errors.As(err, &missing), errors.As(err, &malformed), errors.As(err, &policy):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
