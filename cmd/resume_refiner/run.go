package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-refiner/internal/observability"
	"github.com/jonathan/resume-refiner/internal/pipeline"
	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/types"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full refinement pipeline end-to-end",
		Long: `Orchestrates the whole run: ingestion (resume and job description in parallel) -> qualification matching -> validation -> generate/critique loop.

The final resume is written as JSON to --output, or to stdout. A run that
exhausts its iteration budget still publishes its last candidate.

Configuration can be loaded from a file using --config. Command-line arguments override config file values.`,
		Args: cobra.NoArgs,
		RunE: runRefinement,
	}
	addDocumentFlags(cmd)
	addEngineFlags(cmd)
	addArchiveFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Path for the final resume JSON (default stdout)")
	return cmd
}

func runRefinement(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireDocuments(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger := newLogger(cfg, cmd.ErrOrStderr())
	env, err := newEnvironment(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	printer := observability.NewPrinter(cmd.ErrOrStderr())
	opts := env.options()
	if cfg.Verbose {
		opts.OnProgress = func(e pipeline.Event) {
			if e.Status != pipeline.StatusInProgress {
				printer.PrintStage(e.Stage, e.Status, e.Message)
			}
		}
	}

	start := time.Now()
	report, err := pipeline.Run(ctx, opts)
	if cfg.Verbose && report != nil {
		printReport(printer, report, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	if report.Final == nil {
		return fmt.Errorf("pipeline finished without a final artifact")
	}
	if !report.Approved() {
		logger.Warn("iteration budget exhausted; publishing the last candidate",
			"iterations", report.Outcome.Iterations, "open_issues", len(report.Outcome.Issues))
	}
	return writeJSON(cmd.OutOrStdout(), cfg.Output, report.Final)
}

// printReport prints what the session holds after a run, in pipeline order.
func printReport(p *observability.Printer, report *pipeline.Report, elapsed time.Duration) {
	if jd, ok := report.Session[session.RecordKey(session.RoleJobDescription)].(*types.JobDescription); ok {
		p.PrintJobDescription(jd)
	}
	if confirmed, ok := report.Session[session.KeyMatchConfirmed].([]types.QualificationMatch); ok {
		provisional, _ := report.Session[session.KeyMatchProvisional].([]types.QualificationMatch)
		p.PrintMatches(confirmed, provisional)
	}
	for i := 1; ; i++ {
		issues, ok := report.Session[session.IssuesKey(i)].([]types.CritiqueIssue)
		if !ok {
			break
		}
		p.PrintIssues(i, issues)
	}
	if report.Final != nil {
		p.PrintResume("FINAL RESUME", report.Final)
	}
	if report.Outcome.Iterations == 0 {
		return
	}
	outcome := observability.Outcome{
		State:       report.Outcome.State.String(),
		Iterations:  report.Outcome.Iterations,
		ArtifactKey: report.Outcome.ArtifactKey,
		OpenIssues:  len(report.Outcome.Issues),
		Duration:    elapsed,
	}
	if report.RunID != uuid.Nil {
		outcome.RunID = report.RunID.String()
	}
	p.PrintOutcome(outcome)
}
