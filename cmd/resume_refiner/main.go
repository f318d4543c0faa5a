// Package main provides the resume_refiner command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "resume_refiner",
		Short: "Tailor a resume to a job description by iterative critique",
		Long: `resume_refiner ingests a resume and a job description, matches the
candidate's qualifications to the job's requirements, then alternates between
generating a tailored resume and critiquing it until the critique finds no
issues or the iteration budget runs out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to a JSON or YAML config file (values can be overridden by flags)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Print stage progress and intermediate results")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newRunCommand(),
		newMatchCommand(),
		newCritiqueCommand(),
		newValidateCommand(),
		newRunsCommand(),
		newServeCommand(),
	)
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
