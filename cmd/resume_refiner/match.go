package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-refiner/internal/observability"
	"github.com/jonathan/resume-refiner/internal/pipeline"
	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/types"
)

// matchOutput is what the match command prints.
type matchOutput struct {
	Company     string                     `json:"company"`
	Role        string                     `json:"role"`
	Confirmed   []types.QualificationMatch `json:"confirmed"`
	Provisional []types.QualificationMatch `json:"provisional"`
}

func newMatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match resume qualifications to job requirements without refining",
		Long: `Ingests both documents, matches qualifications and resolves provisional
matches with the promotion policy. Prints the confirmed matches as JSON.`,
		Args: cobra.NoArgs,
		RunE: runMatch,
	}
	addDocumentFlags(cmd)
	addEngineFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Path for the matches JSON (default stdout)")
	return cmd
}

func runMatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireDocuments(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := newLogger(cfg, cmd.ErrOrStderr())
	env, err := newEnvironment(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	state := session.New()
	if res := pipeline.BuildMatching(env.options()).Run(ctx, state); !res.OK() {
		return fmt.Errorf("matching failed: %w", res.Err)
	}

	jd, err := session.Require[*types.JobDescription](state, session.RecordKey(session.RoleJobDescription))
	if err != nil {
		return err
	}
	confirmed, err := session.Require[[]types.QualificationMatch](state, session.KeyMatchConfirmed)
	if err != nil {
		return err
	}
	provisional, _ := session.Require[[]types.QualificationMatch](state, session.KeyMatchProvisional)

	if cfg.Verbose {
		p := observability.NewPrinter(cmd.ErrOrStderr())
		p.PrintJobDescription(jd)
		p.PrintMatches(confirmed, provisional)
	}
	return writeJSON(cmd.OutOrStdout(), cfg.Output, matchOutput{
		Company:     jd.JobInfo.CompanyName,
		Role:        jd.JobInfo.JobTitle,
		Confirmed:   confirmed,
		Provisional: provisional,
	})
}
