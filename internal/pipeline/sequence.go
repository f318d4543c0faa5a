// Package pipeline composes stages into sequential and parallel groups and
// runs the full resume refinement workflow.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/stage"
)

// Stage statuses reported to listeners
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Event reports a stage starting or finishing
type Event struct {
	Stage    string
	Status   string
	Message  string
	Keys     []string
	Err      error
	Duration time.Duration
}

// Listener receives stage events. It is called from the goroutine running
// the stage, so listeners shared by parallel groups must be safe for
// concurrent use.
type Listener func(Event)

type settings struct {
	logger   *slog.Logger
	registry *Registry
	listener Listener
}

// Option configures a Sequence or Parallel group
type Option func(*settings)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithRegistry enables input and ownership checks for registered stages.
func WithRegistry(r *Registry) Option {
	return func(s *settings) { s.registry = r }
}

// WithListener sets the stage event listener.
func WithListener(l Listener) Option {
	return func(s *settings) { s.listener = l }
}

func newSettings(opts []Option) settings {
	s := settings{logger: slog.Default()}
	for _, o := range opts {
		o(&s)
	}
	return s
}

func (s settings) emit(e Event) {
	if s.listener != nil {
		s.listener(e)
	}
}

// Sequence runs stages one at a time and halts on the first failure. It is a
// stage itself, so sequences nest and each level adds its name to the error
// chain.
type Sequence struct {
	name   string
	stages []stage.Processor
	settings
}

// NewSequence creates a named sequence.
func NewSequence(name string, stages []stage.Processor, opts ...Option) *Sequence {
	return &Sequence{name: name, stages: stages, settings: newSettings(opts)}
}

// Name returns the sequence name.
func (s *Sequence) Name() string { return s.name }

// Run executes each stage in its own overlay. A stage's writes reach state
// only if it succeeds.
func (s *Sequence) Run(ctx context.Context, state session.ReadWriter) stage.Result {
	parent, ok := state.(session.Forkable)
	if !ok {
		return stage.Fail(s.name, fmt.Errorf("session of type %T cannot be forked", state))
	}

	var keys []string
	for _, p := range s.stages {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("pipeline cancelled", "sequence", s.name, "next_stage", p.Name(), "error", err)
			return stage.Fail(s.name, stage.Wrap(p.Name(), err))
		}

		written, err := runStage(ctx, p, parent.Fork(), s.settings, true)
		if err != nil {
			return stage.Fail(s.name, err)
		}
		keys = append(keys, written...)
	}
	return stage.Success(s.name, fmt.Sprintf("%d stage(s) completed", len(s.stages)), keys...)
}

// runStage runs p against overlay and returns the keys it wrote. When commit
// is set a successful stage's writes are published to the overlay's parent.
func runStage(ctx context.Context, p stage.Processor, overlay *session.Overlay, cfg settings, commit bool) ([]string, error) {
	name := p.Name()
	if err := cfg.registry.CheckInputs(name, overlay); err != nil {
		cfg.emit(Event{Stage: name, Status: StatusFailed, Err: err})
		return nil, stage.Wrap(name, err)
	}

	cfg.logger.Debug("stage started", "stage", name)
	cfg.emit(Event{Stage: name, Status: StatusInProgress})
	start := time.Now()

	res := p.Run(ctx, overlay)
	elapsed := time.Since(start)

	err := res.Err
	if err == nil {
		err = cfg.registry.CheckWrites(name, overlay.Written())
	}
	if err == nil && commit {
		err = overlay.Commit()
	}
	if err != nil {
		err = stage.Wrap(name, err)
		cfg.logger.Error("stage failed", "stage", name, "duration", elapsed, "error", err)
		cfg.emit(Event{Stage: name, Status: StatusFailed, Err: err, Duration: elapsed})
		return nil, err
	}

	written := overlay.Written()
	cfg.logger.Info("stage completed", "stage", name, "duration", elapsed, "keys", written)
	cfg.emit(Event{Stage: name, Status: StatusCompleted, Message: res.Message, Keys: written, Duration: elapsed})
	return written, nil
}
