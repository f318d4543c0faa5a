package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-refiner/internal/ingestion"
	"github.com/jonathan/resume-refiner/internal/matching"
	"github.com/jonathan/resume-refiner/internal/observability"
	"github.com/jonathan/resume-refiner/internal/refine"
	"github.com/jonathan/resume-refiner/internal/types"
)

func newCritiqueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "critique",
		Short: "Critique one candidate resume against its source record",
		Long: `Runs a single critique pass. --resume and --job are structured JSON
records; --candidate is a tailored resume in the same format as --resume.
Prints the issues as JSON; an empty list means the candidate is approved.`,
		Args: cobra.NoArgs,
		RunE: runCritique,
	}
	addDocumentFlags(cmd)
	addEngineFlags(cmd)
	cmd.Flags().String("candidate", "", "Candidate resume JSON file (required)")
	cmd.Flags().Bool("strict", false, "Exit with an error when any issue is found")
	cmd.Flags().StringP("output", "o", "", "Path for the issues JSON (default stdout)")
	_ = cmd.MarkFlagRequired("candidate")
	return cmd
}

func readRecordFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func runCritique(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireDocuments(cfg); err != nil {
		return err
	}
	candidatePath, _ := cmd.Flags().GetString("candidate")
	strict, _ := cmd.Flags().GetBool("strict")

	rawResume, err := readRecordFile(cfg.Resume)
	if err != nil {
		return err
	}
	record, err := ingestion.ParseResume(rawResume)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	rawJob, err := readRecordFile(cfg.Job)
	if err != nil {
		return err
	}
	jd, err := ingestion.ParseJobDescription(rawJob)
	if err != nil {
		return fmt.Errorf("job description: %w", err)
	}
	rawCandidate, err := readRecordFile(candidatePath)
	if err != nil {
		return err
	}
	candidate, err := ingestion.ParseResume(rawCandidate)
	if err != nil {
		return fmt.Errorf("candidate: %w", err)
	}

	ctx := cmd.Context()
	logger := newLogger(cfg, cmd.ErrOrStderr())
	env, err := newEnvironment(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	found := matching.NewMatcher(matching.WithLogger(logger)).Match(record, jd)
	resolved := env.validator.Resolve(found.Confirmed, found.Provisional)

	issues, err := env.critic.Critique(ctx, refine.CritiqueInput{
		Iteration:      1,
		Candidate:      candidate,
		Record:         record,
		RawText:        string(rawResume),
		JobDescription: jd,
		Matches:        resolved.Confirmed,
	})
	if err != nil {
		return fmt.Errorf("critique failed: %w", err)
	}
	if issues == nil {
		issues = []types.CritiqueIssue{}
	}

	if cfg.Verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintIssues(1, issues)
	}
	if err := writeJSON(cmd.OutOrStdout(), cfg.Output, issues); err != nil {
		return err
	}
	if strict && len(issues) > 0 {
		return fmt.Errorf("%d issue(s) found", len(issues))
	}
	return nil
}
