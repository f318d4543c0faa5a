// Package refine runs the bounded generate/critique loop that turns a
// structured resume into a final tailored artifact.
package refine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/resume-refiner/internal/matching"
	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/stage"
	"github.com/jonathan/resume-refiner/internal/types"
)

// Iteration limits
const (
	DefaultMaxIterations = 5
	MaxIterationCeiling  = 20
)

// Stage names used in error chains
const (
	LoopStageName      = "resume_publisher"
	GeneratorStageName = "resume_writer"
	CriticStageName    = "resume_critic"
)

// Phase is a loop state without its iteration index
type Phase string

// Loop phases. Approved and Exhausted are terminal.
const (
	PhaseGenerating Phase = "generating"
	PhaseCritiquing Phase = "critiquing"
	PhaseApproved   Phase = "approved"
	PhaseExhausted  Phase = "exhausted"
)

// State is a loop state, e.g. Generating(2)
type State struct {
	Phase     Phase
	Iteration int
}

func (s State) String() string {
	return fmt.Sprintf("%s(%d)", s.Phase, s.Iteration)
}

// Terminal reports whether the loop stops in this state.
func (s State) Terminal() bool {
	return s.Phase == PhaseApproved || s.Phase == PhaseExhausted
}

// Transition is reported to the observer on every state change
type Transition struct {
	From   State
	To     State
	Issues int // issues found in the critique that caused the transition
}

// Observer receives loop transitions
type Observer func(Transition)

// GenerateInput is everything a generator may read for one iteration
type GenerateInput struct {
	Iteration         int
	Record            *types.Resume
	JobDescription    *types.JobDescription
	Matches           []types.QualificationMatch
	PreviousCandidate *types.Resume         // nil on the first iteration
	PriorIssues       []types.CritiqueIssue // issues from the previous iteration
}

// Generator produces a candidate resume
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (*types.Resume, error)
}

// CritiqueInput is everything a critic may read for one iteration
type CritiqueInput struct {
	Iteration      int
	Candidate      *types.Resume
	Record         *types.Resume
	RawText        string // original resume text, empty if unavailable
	JobDescription *types.JobDescription
	Matches        []types.QualificationMatch
}

// Critic reviews a candidate and returns issues; an empty list approves it.
type Critic interface {
	Critique(ctx context.Context, in CritiqueInput) ([]types.CritiqueIssue, error)
}

// Config controls the loop
type Config struct {
	MaxIterations int
	StageTimeout  time.Duration // per generate or critique call; 0 disables
	Observer      Observer
	Logger        *slog.Logger
}

// DefaultConfig returns a config with the default iteration budget.
func DefaultConfig() Config {
	return Config{MaxIterations: DefaultMaxIterations}
}

// Validate rejects non-positive or excessive budgets.
func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return &ConfigError{Field: "max_iterations", Message: fmt.Sprintf("must be > 0, got %d", c.MaxIterations)}
	}
	if c.MaxIterations > MaxIterationCeiling {
		return &ConfigError{Field: "max_iterations", Message: fmt.Sprintf("must be <= %d, got %d", MaxIterationCeiling, c.MaxIterations)}
	}
	if c.StageTimeout < 0 {
		return &ConfigError{Field: "stage_timeout", Message: "must not be negative"}
	}
	return nil
}

// Outcome summarizes a finished loop
type Outcome struct {
	State       State
	Iterations  int
	ArtifactKey string                // candidate key copied to final_artifact
	Issues      []types.CritiqueIssue // issues of the last critique
}

// Loop is the refinement state machine. It is also a stage.Processor.
type Loop struct {
	name      string
	generator Generator
	critic    Critic
	cfg       Config
	logger    *slog.Logger
}

// NewLoop validates cfg and builds a loop.
func NewLoop(generator Generator, critic Critic, cfg Config) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if generator == nil || critic == nil {
		return nil, &ConfigError{Field: "collaborators", Message: "generator and critic are required"}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{name: LoopStageName, generator: generator, critic: critic, cfg: cfg, logger: logger}, nil
}

// Name returns the stage name.
func (l *Loop) Name() string { return l.name }

// Run executes the loop as a pipeline stage.
func (l *Loop) Run(ctx context.Context, state session.ReadWriter) stage.Result {
	out, err := l.Execute(ctx, state)
	if err != nil {
		return stage.Fail(l.name, err)
	}
	keys := []string{session.KeyFinalArtifact}
	for i := 1; i <= out.Iterations; i++ {
		keys = append(keys, session.CandidateKey(i), session.IssuesKey(i))
	}
	return stage.Success(l.name,
		fmt.Sprintf("%s after %d iteration(s); final artifact from %s", out.State.Phase, out.Iterations, out.ArtifactKey),
		keys...)
}

// Execute drives Generating(i) -> Critiquing(i) until the critique is empty
// (Approved) or the budget is spent (Exhausted). Both terminal states write
// final_artifact. Exhaustion is an outcome, not an error.
func (l *Loop) Execute(ctx context.Context, state session.ReadWriter) (Outcome, error) {
	in, err := l.loadInputs(state)
	if err != nil {
		return Outcome{}, err
	}
	if state.Has(session.KeyFinalArtifact) {
		return Outcome{}, &session.MalformedDataError{Key: session.KeyFinalArtifact, Message: "already written for this session"}
	}

	var (
		previous *types.Resume
		prior    []types.CritiqueIssue
		current  = State{Phase: PhaseGenerating, Iteration: 1}
	)

	for {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		i := current.Iteration

		candidate, err := l.generate(ctx, GenerateInput{
			Iteration:         i,
			Record:            in.record,
			JobDescription:    in.jd,
			Matches:           in.matches,
			PreviousCandidate: previous,
			PriorIssues:       prior,
		})
		if err != nil {
			return Outcome{}, stage.Wrap(GeneratorStageName, err)
		}
		if err := state.SetOnce(session.CandidateKey(i), candidate); err != nil {
			return Outcome{}, stage.Wrap(GeneratorStageName, err)
		}
		current = l.transition(current, State{Phase: PhaseCritiquing, Iteration: i}, 0)

		issues, err := l.critique(ctx, CritiqueInput{
			Iteration:      i,
			Candidate:      candidate,
			Record:         in.record,
			RawText:        in.raw,
			JobDescription: in.jd,
			Matches:        in.matches,
		})
		if err != nil {
			return Outcome{}, stage.Wrap(CriticStageName, err)
		}
		if err := state.SetOnce(session.IssuesKey(i), issues); err != nil {
			return Outcome{}, stage.Wrap(CriticStageName, err)
		}

		var next State
		switch {
		case len(issues) == 0:
			next = State{Phase: PhaseApproved, Iteration: i}
		case i >= l.cfg.MaxIterations:
			next = State{Phase: PhaseExhausted, Iteration: i}
		default:
			next = State{Phase: PhaseGenerating, Iteration: i + 1}
		}
		current = l.transition(current, next, len(issues))

		if current.Terminal() {
			if err := state.SetOnce(session.KeyFinalArtifact, candidate); err != nil {
				return Outcome{}, err
			}
			if current.Phase == PhaseExhausted {
				l.logger.Warn("refinement budget exhausted; publishing last candidate",
					"iterations", i, "open_issues", len(issues))
			}
			return Outcome{State: current, Iterations: i, ArtifactKey: session.CandidateKey(i), Issues: issues}, nil
		}
		previous = candidate
		prior = issues
	}
}

type loopInputs struct {
	record  *types.Resume
	jd      *types.JobDescription
	matches []types.QualificationMatch
	raw     string
}

func (l *Loop) loadInputs(state session.Reader) (loopInputs, error) {
	var in loopInputs
	var err error
	if in.record, err = matching.RequireResume(state); err != nil {
		return in, err
	}
	if in.jd, err = matching.RequireJobDescription(state); err != nil {
		return in, err
	}
	if in.matches, err = session.Require[[]types.QualificationMatch](state, session.KeyMatchConfirmed); err != nil {
		return in, err
	}
	if v, ok := state.Lookup(session.KeyMatchProvisional); ok {
		provisional, ok := v.([]types.QualificationMatch)
		if !ok {
			return in, &session.MalformedDataError{Key: session.KeyMatchProvisional, Message: fmt.Sprintf("unexpected type %T", v)}
		}
		if err := matching.CheckResolved(in.matches, provisional); err != nil {
			return in, err
		}
	}
	if v, ok := state.Lookup(session.RawKey(session.RoleResume)); ok {
		in.raw, _ = v.(string)
	}
	return in, nil
}

func (l *Loop) generate(ctx context.Context, in GenerateInput) (*types.Resume, error) {
	ctx, cancel := l.stageContext(ctx)
	defer cancel()
	candidate, err := l.generator.Generate(ctx, in)
	if err != nil {
		return nil, collaboratorError(ctx, "generator", err)
	}
	if candidate == nil {
		return nil, &OutputError{Collaborator: "generator", Message: "returned no candidate"}
	}
	if err := candidate.Validate(); err != nil {
		return nil, &OutputError{Collaborator: "generator", Message: "candidate fails required fields", Cause: err}
	}
	if extra := addedSections(in.Record, candidate); len(extra) > 0 {
		return nil, &OutputError{Collaborator: "generator", Message: "candidate adds top-level sections " + strings.Join(extra, ", ")}
	}
	return candidate, nil
}

// addedSections lists the candidate's top-level sections missing from record.
func addedSections(record, candidate *types.Resume) []string {
	have := make(map[string]bool)
	for _, s := range record.Sections() {
		have[s] = true
	}
	var extra []string
	for _, s := range candidate.Sections() {
		if !have[s] {
			extra = append(extra, s)
		}
	}
	return extra
}

func (l *Loop) critique(ctx context.Context, in CritiqueInput) ([]types.CritiqueIssue, error) {
	ctx, cancel := l.stageContext(ctx)
	defer cancel()
	issues, err := l.critic.Critique(ctx, in)
	if err != nil {
		return nil, collaboratorError(ctx, "critic", err)
	}
	if issues == nil {
		issues = []types.CritiqueIssue{}
	}
	if err := types.ValidateIssues(issues); err != nil {
		return nil, &OutputError{Collaborator: "critic", Message: "malformed issue list", Cause: err}
	}
	return issues, nil
}

func (l *Loop) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.StageTimeout > 0 {
		return context.WithTimeout(ctx, l.cfg.StageTimeout)
	}
	return context.WithCancel(ctx)
}

func (l *Loop) transition(from, to State, issues int) State {
	l.logger.Debug("refinement transition", "from", from.String(), "to", to.String(), "issues", issues)
	if l.cfg.Observer != nil {
		l.cfg.Observer(Transition{From: from, To: to, Issues: issues})
	}
	return to
}

// collaboratorError prefers the context error when the call ran out of time.
func collaboratorError(ctx context.Context, name string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return &stage.CollaboratorError{Collaborator: name, Cause: err}
}
