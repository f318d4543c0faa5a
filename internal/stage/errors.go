package stage

import (
	"errors"
	"fmt"
)

// Failure attributes an error to a named stage or sequencer. Nested sequencers
// each add a Failure, so the rendered error reads "outer -> inner -> cause".
type Failure struct {
	Stage string
	Cause error
}

func (e *Failure) Error() string {
	if e.Cause == nil {
		return e.Stage
	}
	return fmt.Sprintf("%s -> %v", e.Stage, e.Cause)
}

func (e *Failure) Unwrap() error {
	return e.Cause
}

// Chain returns the stage names from outermost to innermost.
func (e *Failure) Chain() []string {
	var names []string
	var err error = e
	for {
		var f *Failure
		if !errors.As(err, &f) {
			return names
		}
		names = append(names, f.Stage)
		err = f.Cause
	}
}

// Root returns the innermost non-Failure cause.
func (e *Failure) Root() error {
	var cur error = e
	for {
		var f *Failure
		if !errors.As(cur, &f) || f.Cause == nil {
			return cur
		}
		cur = f.Cause
	}
}

// Wrap attributes err to name. An error that is itself a Failure of name is
// returned as is; deeper Failures with the same name still get a new link.
func Wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	if f, ok := err.(*Failure); ok && f.Stage == name {
		return err
	}
	return &Failure{Stage: name, Cause: err}
}

// Chain returns the stage names recorded in err, outermost first.
func Chain(err error) []string {
	var f *Failure
	if !errors.As(err, &f) {
		return nil
	}
	return f.Chain()
}

// PolicyError is returned when a stage's postcondition does not hold after it
// ran, for example unresolved provisional matches after validation.
type PolicyError struct {
	Message string
	Cause   error
}

func (e *PolicyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation policy violated: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation policy violated: %s", e.Message)
}

func (e *PolicyError) Unwrap() error {
	return e.Cause
}

// CollaboratorError wraps an opaque failure from an external collaborator
// such as a generator, critic, or extractor.
type CollaboratorError struct {
	Collaborator string
	Cause        error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Collaborator, e.Cause)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Cause
}
