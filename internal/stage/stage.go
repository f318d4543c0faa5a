// Package stage defines the contract every pipeline stage implements and the
// error taxonomy stages report through.
package stage

import (
	"context"

	"github.com/jonathan/resume-refiner/internal/session"
)

// Processor is a single unit of pipeline work. Run reads inputs from state,
// writes outputs to state, and reports the outcome as a Result. Run must not
// panic on bad input; it returns a failed Result instead.
type Processor interface {
	Name() string
	Run(ctx context.Context, state session.ReadWriter) Result
}

// Result is the outcome of one stage invocation.
type Result struct {
	Stage   string
	Message string
	Keys    []string // keys written on success
	Err     error
}

// OK reports whether the stage succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Success builds a successful result.
func Success(stageName, message string, keys ...string) Result {
	return Result{Stage: stageName, Message: message, Keys: keys}
}

// Fail builds a failed result whose error is a Failure attributed to stageName.
// An error that is already attributed to stageName is not wrapped twice.
func Fail(stageName string, err error) Result {
	return Result{Stage: stageName, Message: err.Error(), Err: Wrap(stageName, err)}
}

// Func adapts a function to the Processor interface.
type Func struct {
	StageName string
	Fn        func(ctx context.Context, state session.ReadWriter) Result
}

// Name returns the stage name.
func (f Func) Name() string { return f.StageName }

// Run calls Fn.
func (f Func) Run(ctx context.Context, state session.ReadWriter) Result {
	return f.Fn(ctx, state)
}
