package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-refiner/internal/db"
	"github.com/jonathan/resume-refiner/internal/ingestion"
	"github.com/jonathan/resume-refiner/internal/matching"
	"github.com/jonathan/resume-refiner/internal/refine"
	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/stage"
	"github.com/jonathan/resume-refiner/internal/types"
)

// Group names of the refinement workflow
const (
	JobApplicationName         = "job_application"
	ApplicationDocumentsName   = "application_documents"
	ResumeRefinerName          = "resume_refiner"
	QualificationsMatchingName = "qualifications_matching"
)

// archiveTimeout bounds the writes made after a run finishes.
const archiveTimeout = 30 * time.Second

// DefaultRegistry declares the keys read and written by every leaf stage of
// the refinement workflow.
func DefaultRegistry() *Registry {
	rawResume := session.RawKey(session.RoleResume)
	rawJD := session.RawKey(session.RoleJobDescription)
	recResume := session.RecordKey(session.RoleResume)
	recJD := session.RecordKey(session.RoleJobDescription)

	return NewRegistry(
		StageDefinition{
			Name:     ingestion.ResumeStageName,
			Category: CategoryIngestion,
			Optional: []string{rawResume},
			Writes:   []string{rawResume, recResume},
		},
		StageDefinition{
			Name:     ingestion.JobDescriptionStageName,
			Category: CategoryIngestion,
			Optional: []string{rawJD},
			Writes:   []string{rawJD, recJD},
		},
		StageDefinition{
			Name:     matching.MatchStageName,
			Category: CategoryMatching,
			Reads:    []string{recResume, recJD},
			Writes:   []string{session.KeyMatchConfirmed, session.KeyMatchProvisional},
		},
		StageDefinition{
			Name:     matching.ValidateStageName,
			Category: CategoryMatching,
			Reads:    []string{session.KeyMatchConfirmed, session.KeyMatchProvisional},
			Writes:   []string{session.KeyMatchConfirmed, session.KeyMatchProvisional},
		},
		StageDefinition{
			Name:     refine.LoopStageName,
			Category: CategoryRefinement,
			Reads:    []string{recResume, recJD, session.KeyMatchConfirmed},
			Optional: []string{rawResume, session.KeyMatchProvisional},
			Writes:   []string{"candidate_*", "issues_*", session.KeyFinalArtifact},
		},
	)
}

// Archive stores finished runs. *db.DB and *db.SQLite implement it.
type Archive interface {
	CreateRun(ctx context.Context, company, roleTitle, source string) (uuid.UUID, error)
	RecordStep(ctx context.Context, runID uuid.UUID, input *db.RunStepInput) error
	SaveArtifact(ctx context.Context, runID uuid.UUID, key, category string, content any) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string) error
}

// Options configures a refinement run. Only the collaborators are required
// to be set by callers who want something other than the rule engines.
type Options struct {
	// Sources for the two documents. A nil source makes the ingestion stage
	// read raw_<role> from Inputs instead.
	ResumeSource         ingestion.Source
	JobDescriptionSource ingestion.Source
	// Inputs are written to the session before the first stage runs.
	Inputs map[string]any

	Extractor ingestion.Extractor // defaults to JSONExtractor
	Matcher   *matching.Matcher
	Validator *matching.Validator
	Generator refine.Generator // defaults to refine.NewHighlighter()
	Critic    refine.Critic    // defaults to refine.NewReviewer()
	Loop      refine.Config    // zero MaxIterations means the default budget

	Archive    Archive // optional
	Registry   *Registry
	Logger     *slog.Logger
	OnProgress Listener
}

// Report is the result of a run. On failure it still carries the session
// committed before the failing stage.
type Report struct {
	RunID   uuid.UUID // uuid.Nil without an archive
	Outcome refine.Outcome
	Final   *types.Resume
	Session map[string]any
}

// Approved reports whether the final artifact passed critique.
func (r *Report) Approved() bool {
	return r.Outcome.State.Phase == refine.PhaseApproved
}

// withDefaults fills every unset collaborator.
func (opts Options) withDefaults() Options {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	if opts.Extractor == nil {
		opts.Extractor = ingestion.JSONExtractor{}
	}
	if opts.Generator == nil {
		opts.Generator = refine.NewHighlighter()
	}
	if opts.Critic == nil {
		opts.Critic = refine.NewReviewer()
	}
	if opts.Matcher == nil {
		opts.Matcher = matching.NewMatcher(matching.WithLogger(opts.Logger))
	}
	if opts.Validator == nil {
		opts.Validator = matching.NewValidator(nil, opts.Logger)
	}
	if opts.Loop.MaxIterations == 0 {
		opts.Loop.MaxIterations = refine.DefaultMaxIterations
	}
	if opts.Loop.Logger == nil {
		opts.Loop.Logger = opts.Logger
	}
	return opts
}

func (opts Options) groupOptions() []Option {
	return []Option{WithLogger(opts.Logger), WithRegistry(opts.Registry), WithListener(opts.OnProgress)}
}

func (opts Options) documents() *Parallel {
	return NewParallel(ApplicationDocumentsName, []stage.Processor{
		ingestion.NewResumeStage(opts.ResumeSource, opts.Extractor, opts.Logger),
		ingestion.NewJobDescriptionStage(opts.JobDescriptionSource, opts.Extractor, opts.Logger),
	}, opts.groupOptions()...)
}

func (opts Options) qualifications() *Sequence {
	return NewSequence(QualificationsMatchingName, []stage.Processor{
		&matching.MatchStage{Matcher: opts.Matcher},
		&matching.ValidateStage{Validator: opts.Validator},
	}, opts.groupOptions()...)
}

// Build composes the workflow:
//
//	job_application
//	├── application_documents (parallel)
//	│   ├── resume_ingestor
//	│   └── job_description_ingestor
//	└── resume_refiner
//	    ├── qualifications_matching
//	    │   ├── qualifications_matcher
//	    │   └── qualifications_checker
//	    └── resume_publisher
func Build(opts Options) (*Sequence, error) {
	opts = opts.withDefaults()
	loop, err := refine.NewLoop(opts.Generator, opts.Critic, opts.Loop)
	if err != nil {
		return nil, err
	}
	refiner := NewSequence(ResumeRefinerName, []stage.Processor{opts.qualifications(), loop}, opts.groupOptions()...)
	return NewSequence(JobApplicationName, []stage.Processor{opts.documents(), refiner}, opts.groupOptions()...), nil
}

// BuildMatching composes ingestion and qualification matching without the
// refinement loop.
func BuildMatching(opts Options) *Sequence {
	opts = opts.withDefaults()
	return NewSequence(JobApplicationName, []stage.Processor{opts.documents(), opts.qualifications()}, opts.groupOptions()...)
}

// Run executes the workflow on a fresh session. The returned error carries
// the stage chain, e.g. "job_application -> resume_refiner -> ...". Archive
// failures are logged and never fail the run.
func Run(ctx context.Context, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	logger := opts.Logger

	var rec *recorder
	if opts.Archive != nil {
		rec = &recorder{registry: opts.Registry}
		progress := opts.OnProgress
		opts.OnProgress = func(e Event) {
			rec.add(e)
			if progress != nil {
				progress(e)
			}
		}
	}

	var last refine.Transition
	observer := opts.Loop.Observer
	opts.Loop.Observer = func(t refine.Transition) {
		last = t
		if observer != nil {
			observer(t)
		}
	}

	root, err := Build(opts)
	if err != nil {
		return nil, err
	}

	state := session.New()
	for k, v := range opts.Inputs {
		state.Set(k, v)
	}

	logger.Info("pipeline started", "pipeline", root.Name())
	start := time.Now()
	res := root.Run(ctx, state)

	report := &Report{Session: state.Snapshot()}
	if last.To.Terminal() {
		report.Outcome = refine.Outcome{
			State:       last.To,
			Iterations:  last.To.Iteration,
			ArtifactKey: session.CandidateKey(last.To.Iteration),
		}
		report.Outcome.Issues, _ = session.Require[[]types.CritiqueIssue](state, session.IssuesKey(last.To.Iteration))
	}
	if final, err := session.Require[*types.Resume](state, session.KeyFinalArtifact); err == nil {
		report.Final = final
	}

	if rec != nil {
		report.RunID = archiveRun(ctx, opts, rec, report, res.Err)
	}

	if res.Err != nil {
		logger.Error("pipeline failed", "pipeline", root.Name(), "duration", time.Since(start), "error", res.Err)
		return report, res.Err
	}
	logger.Info("pipeline completed", "pipeline", root.Name(), "duration", time.Since(start),
		"state", report.Outcome.State.String(), "iterations", report.Outcome.Iterations)
	return report, nil
}

// recorder buffers stage events until the run is archived. Parallel stages
// report concurrently.
type recorder struct {
	mu       sync.Mutex
	registry *Registry
	steps    []db.RunStepInput
}

func (r *recorder) add(e Event) {
	in := db.RunStepInput{Step: e.Stage, Status: e.Status, Duration: e.Duration}
	if def, ok := r.registry.Definition(e.Stage); ok {
		in.Category = def.Category
	}
	if e.Err != nil {
		in.Error = e.Err.Error()
	}
	r.mu.Lock()
	r.steps = append(r.steps, in)
	r.mu.Unlock()
}

// archiveRun writes the run, its stage history and the session snapshot.
func archiveRun(ctx context.Context, opts Options, rec *recorder, report *Report, runErr error) uuid.UUID {
	logger := opts.Logger
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	var company, role string
	if jd, err := matching.RequireJobDescription(mapReader(report.Session)); err == nil {
		company, role = jd.JobInfo.CompanyName, jd.JobInfo.JobTitle
	}
	source := ""
	if opts.JobDescriptionSource != nil {
		source = opts.JobDescriptionSource.String()
	}

	runID, err := opts.Archive.CreateRun(ctx, company, role, source)
	if err != nil {
		logger.Warn("failed to archive run", "error", err)
		return uuid.Nil
	}

	rec.mu.Lock()
	steps := append([]db.RunStepInput(nil), rec.steps...)
	rec.mu.Unlock()
	for i := range steps {
		if err := opts.Archive.RecordStep(ctx, runID, &steps[i]); err != nil {
			logger.Warn("failed to archive stage", "run_id", runID, "stage", steps[i].Step, "error", err)
		}
	}

	keys := make([]string, 0, len(report.Session))
	for k := range report.Session {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := opts.Archive.SaveArtifact(ctx, runID, k, artifactCategory(k), report.Session[k]); err != nil {
			logger.Warn("failed to archive artifact", "run_id", runID, "key", k, "error", err)
		}
	}

	status := db.RunStatusFailed
	switch {
	case runErr != nil:
	case report.Outcome.State.Phase == refine.PhaseApproved:
		status = db.RunStatusApproved
	case report.Outcome.State.Phase == refine.PhaseExhausted:
		status = db.RunStatusExhausted
	}
	if err := opts.Archive.CompleteRun(ctx, runID, status); err != nil {
		logger.Warn("failed to complete archived run", "run_id", runID, "error", err)
	}
	logger.Info("run archived", "run_id", runID, "status", status, "artifacts", len(keys))
	return runID
}

func artifactCategory(key string) string {
	switch {
	case key == session.KeyFinalArtifact:
		return db.CategoryFinal
	case strings.HasPrefix(key, "record_"):
		return db.CategoryRecord
	case strings.HasPrefix(key, "raw_"):
		return db.CategoryRaw
	case strings.HasPrefix(key, "match_"):
		return db.CategoryMatches
	case strings.HasPrefix(key, "candidate_"):
		return db.CategoryCandidate
	case strings.HasPrefix(key, "issues_"):
		return db.CategoryIssues
	default:
		return ""
	}
}

// mapReader adapts a session snapshot to session.Reader.
type mapReader map[string]any

func (m mapReader) Lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapReader) Get(key string) any { return m[key] }

func (m mapReader) Has(key string) bool {
	_, ok := m[key]
	return ok
}

func (m mapReader) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
