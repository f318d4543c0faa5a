package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List archived runs, or show the stages and artifacts of one run",
		Long: `Without arguments, lists the most recent archived runs. With a run ID,
shows the run's stage statuses and stored artifacts; --artifact prints one
artifact's JSON content.

Requires --db-url or --sqlite (or the matching config values).`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRuns,
	}
	addArchiveFlags(cmd)
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	cmd.Flags().String("artifact", "", "Print the content of this artifact key")
	return cmd
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("no archive configured: set --db-url or --sqlite")
	}
	defer func() { _ = st.Close() }()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tSTATUS\tCOMPANY\tROLE\tCREATED")
		for _, r := range runs {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Status, r.Company, r.RoleTitle, r.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	}

	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run ID %q: %w", args[0], err)
	}

	if key, _ := cmd.Flags().GetString("artifact"); key != "" {
		content, err := st.GetArtifact(ctx, runID, key)
		if err != nil {
			return err
		}
		if content == nil {
			return fmt.Errorf("artifact %q not found for run %s", key, runID)
		}
		_, err = fmt.Fprintf(out, "%s\n", content)
		return err
	}

	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	steps, err := st.ListRunSteps(ctx, runID)
	if err != nil {
		return err
	}
	artifacts, err := st.ListArtifacts(ctx, runID)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Run %s: %s (%s at %s)\n\n", run.ID, run.Status, run.RoleTitle, run.Company)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tCATEGORY\tSTATUS\tDURATION\tERROR")
	for _, s := range steps {
		duration, errMsg := "-", ""
		if s.DurationMs != nil {
			duration = (time.Duration(*s.DurationMs) * time.Millisecond).String()
		}
		if s.ErrorMessage != nil {
			errMsg = *s.ErrorMessage
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Step, s.Category, s.Status, duration, errMsg)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out, "\nArtifacts:")
	for _, a := range artifacts {
		_, _ = fmt.Fprintf(out, "  %-24s %s\n", a.Key, a.Category)
	}
	return nil
}
