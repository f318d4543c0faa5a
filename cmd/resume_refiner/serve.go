package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-refiner/internal/config"
	"github.com/jonathan/resume-refiner/internal/server"
	"github.com/jonathan/resume-refiner/internal/server/ratelimit"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the refinement pipeline over HTTP",
		Long: `Starts the HTTP API:

  POST /run                        run the pipeline, reply with the result
  POST /run/stream                 run the pipeline, stream stage events (SSE)
  GET  /runs                       list archived runs
  GET  /runs/{id}                  one run with its stage statuses
  GET  /runs/{id}/artifacts        stored session keys of a run
  GET  /runs/{id}/artifacts/{key}  one stored session value
  GET  /health

The /runs endpoints require --db-url or --sqlite.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	addEngineFlags(cmd)
	addArchiveFlags(cmd)
	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	cmd.Flags().Bool("rate-limit", true, "Limit requests per client")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg, cmd.ErrOrStderr())
	env, err := newEnvironment(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	srv := server.New(serverConfig(cfg, env))
	return srv.Start(ctx)
}

// serverConfig shares the run collaborators with every request. Documents
// arrive in the request body, so no sources are set.
func serverConfig(cfg *config.Config, env *environment) server.Config {
	opts := env.options()
	opts.ResumeSource = nil
	opts.JobDescriptionSource = nil

	limits := ratelimit.DefaultConfig()
	limits.Enabled = cfg.RateLimit

	sc := server.Config{
		Addr:      cfg.Addr,
		Pipeline:  opts,
		RateLimit: limits,
		Logger:    env.logger,
	}
	if env.store != nil {
		sc.Store = env.store
	}
	return sc
}
