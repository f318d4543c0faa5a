package pipeline

import (
	"fmt"
	"strings"

	"github.com/jonathan/resume-refiner/internal/session"
)

// DependencyError represents a stage started without its declared inputs
type DependencyError struct {
	Stage   string
	Missing []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependencies for %s: %s", e.Stage, strings.Join(e.Missing, ", "))
}

// Unwrap exposes the first missing key as a MissingInputError.
func (e *DependencyError) Unwrap() error {
	if len(e.Missing) == 0 {
		return nil
	}
	return &session.MissingInputError{Key: e.Missing[0]}
}

// WriteConflictError represents two parallel stages writing the same key
type WriteConflictError struct {
	Key    string
	Stages []string
}

func (e *WriteConflictError) Error() string {
	return fmt.Sprintf("stages %s both wrote %q", strings.Join(e.Stages, " and "), e.Key)
}

// OwnershipError represents a stage writing a key it does not own
type OwnershipError struct {
	Stage string
	Keys  []string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("stage %s wrote undeclared keys: %s", e.Stage, strings.Join(e.Keys, ", "))
}
