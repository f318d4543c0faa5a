package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-refiner/internal/schemas"
	embedded "github.com/jonathan/resume-refiner/schemas"
)

// schemaNames maps the --schema values to embedded schema files.
var schemaNames = map[string]string{
	"resume":                embedded.Resume,
	"job_description":       embedded.JobDescription,
	"qualification_matches": embedded.QualificationMatches,
	"critique_issues":       embedded.CritiqueIssues,
}

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file.json>",
		Short: "Validate a JSON document against one of the record schemas",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	cmd.Flags().StringP("schema", "s", "", "Schema name: "+strings.Join(sortedSchemaNames(), ", ")+" (required)")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func sortedSchemaNames() []string {
	names := make([]string, 0, len(schemaNames))
	for name := range schemaNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runValidate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("schema")
	file, ok := schemaNames[name]
	if !ok {
		return fmt.Errorf("unknown schema %q (want one of %s)", name, strings.Join(sortedSchemaNames(), ", "))
	}

	out := cmd.OutOrStdout()
	err := schemas.ValidateFile(file, args[0])
	var verr *schemas.ValidationError
	if errors.As(err, &verr) {
		_, _ = fmt.Fprintf(out, "Validation failed: %s\n", args[0])
		for _, fe := range verr.Errors {
			_, _ = fmt.Fprintf(out, "  %s: %s\n", fe.Field, fe.Message)
		}
		return fmt.Errorf("%d validation error(s)", len(verr.Errors))
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Validation passed: %s\n", args[0])
	return nil
}
