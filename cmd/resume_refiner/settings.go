package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-refiner/internal/config"
	"github.com/jonathan/resume-refiner/internal/db"
	"github.com/jonathan/resume-refiner/internal/fetch"
	"github.com/jonathan/resume-refiner/internal/ingestion"
	"github.com/jonathan/resume-refiner/internal/llm"
	"github.com/jonathan/resume-refiner/internal/matching"
	"github.com/jonathan/resume-refiner/internal/pipeline"
	"github.com/jonathan/resume-refiner/internal/refine"
)

func addDocumentFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("resume", "r", "", "Resume file path or URL")
	cmd.Flags().StringP("job", "j", "", "Job description file path or URL")
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("engine", "", "Refinement engine: rules or llm (default rules)")
	cmd.Flags().Int("max-iterations", 0, "Maximum generate/critique iterations (default 5)")
	cmd.Flags().Duration("stage-timeout", 0, "Timeout for each generate or critique call (0 disables)")
	cmd.Flags().String("policy", "", "Path to a YAML file of provisional match promotion rules")
	cmd.Flags().String("provider", "", "LLM provider: gemini or openai (default gemini)")
	// API key can be passed as a flag, or read from GEMINI_API_KEY / OPENAI_API_KEY
	cmd.Flags().String("api-key", "", "LLM API key (optional, defaults to the provider's env var)")
	cmd.Flags().Bool("extract", false, "Structure plain-text documents with the LLM instead of expecting JSON")
	cmd.Flags().Bool("use-browser", false, "Render URL sources in a headless browser when needed (requires Chrome)")
}

func addArchiveFlags(cmd *cobra.Command) {
	cmd.Flags().String("db-url", "", "PostgreSQL connection URL for the run archive")
	cmd.Flags().String("sqlite", "", "SQLite file for the run archive")
}

// override copies a flag into dst when it was set on the command line.
func override[T any](cmd *cobra.Command, name string, dst *T, get func(string) (T, error)) {
	if !cmd.Flags().Changed(name) {
		return
	}
	if v, err := get(name); err == nil {
		*dst = v
	}
}

// loadConfig merges the config file, REFINER_* variables and explicitly set
// flags, then validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	override(cmd, "resume", &cfg.Resume, flags.GetString)
	override(cmd, "job", &cfg.Job, flags.GetString)
	override(cmd, "engine", &cfg.Engine, flags.GetString)
	override(cmd, "max-iterations", &cfg.MaxIterations, flags.GetInt)
	override(cmd, "stage-timeout", &cfg.StageTimeout, flags.GetDuration)
	override(cmd, "policy", &cfg.PolicyFile, flags.GetString)
	override(cmd, "provider", &cfg.Provider, flags.GetString)
	override(cmd, "api-key", &cfg.APIKey, flags.GetString)
	override(cmd, "extract", &cfg.Extract, flags.GetBool)
	override(cmd, "use-browser", &cfg.UseBrowser, flags.GetBool)
	override(cmd, "db-url", &cfg.DatabaseURL, flags.GetString)
	override(cmd, "sqlite", &cfg.SQLitePath, flags.GetString)
	override(cmd, "output", &cfg.Output, flags.GetString)
	override(cmd, "verbose", &cfg.Verbose, flags.GetBool)
	override(cmd, "log-level", &cfg.LogLevel, flags.GetString)
	override(cmd, "addr", &cfg.Addr, flags.GetString)
	override(cmd, "rate-limit", &cfg.RateLimit, flags.GetBool)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func requireDocuments(cfg *config.Config) error {
	var errs []error
	if cfg.Resume == "" {
		errs = append(errs, fmt.Errorf("--resume is required"))
	}
	if cfg.Job == "" {
		errs = append(errs, fmt.Errorf("--job is required"))
	}
	return errors.Join(errs...)
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	if cfg.Verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// store is the run archive as the CLI uses it. db.DB and db.SQLite both
// implement it, and both double as the fetched page cache.
type store interface {
	pipeline.Archive
	fetch.PageCache
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
	ListRuns(ctx context.Context, limit int) ([]db.Run, error)
	ListRunSteps(ctx context.Context, runID uuid.UUID) ([]db.RunStep, error)
	ListArtifacts(ctx context.Context, runID uuid.UUID) ([]db.Artifact, error)
	GetArtifact(ctx context.Context, runID uuid.UUID, key string) ([]byte, error)
	Close() error
}

var (
	_ store = (*db.DB)(nil)
	_ store = (*db.SQLite)(nil)
)

// openStore opens the configured archive, or returns nil when none is set.
func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	switch {
	case cfg.DatabaseURL != "":
		conn, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := conn.Migrate(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return conn, nil
	case cfg.SQLitePath != "":
		return db.OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, nil
	}
}

// environment holds the collaborators built from a config.
type environment struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     store
	client    llm.Client
	pages     *fetch.CachedFetcher
	extractor ingestion.Extractor
	generator refine.Generator
	critic    refine.Critic
	validator *matching.Validator
}

func newEnvironment(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*environment, error) {
	env := &environment{cfg: cfg, logger: logger}

	policy := matching.DefaultPolicy()
	if cfg.PolicyFile != "" {
		p, err := matching.LoadPolicyFile(cfg.PolicyFile)
		if err != nil {
			return nil, err
		}
		policy = p
	}
	env.validator = matching.NewValidator(policy, logger)

	if cfg.NeedsLLM() {
		apiKey := cfg.ResolveAPIKey()
		if apiKey == "" {
			return nil, fmt.Errorf("an API key is required for the %s provider: set --api-key or the provider's API key environment variable", cfg.Provider)
		}
		llmCfg, err := cfg.LLMConfig()
		if err != nil {
			return nil, err
		}
		client, err := llm.NewClient(ctx, llmCfg, apiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		env.client = client
	}

	env.extractor = ingestion.JSONExtractor{}
	if cfg.Extract {
		env.extractor = ingestion.NewLLMExtractor(env.client)
	}

	switch cfg.Engine {
	case config.EngineLLM:
		env.generator = refine.NewLLMWriter(env.client)
		env.critic = refine.CombinedCritic{refine.NewReviewer(), refine.NewLLMCritic(env.client)}
	default:
		env.generator = refine.NewHighlighter()
		env.critic = refine.NewReviewer()
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.store = st

	var cache fetch.PageCache
	if st != nil {
		cache = st
	}
	env.pages = fetch.NewCachedFetcher(cache, &fetch.CachedFetcherConfig{CacheTTL: cfg.CacheTTL, Logger: logger})
	return env, nil
}

// Close releases the LLM client and the archive.
func (e *environment) Close() {
	if e.client != nil {
		if err := e.client.Close(); err != nil {
			e.logger.Warn("failed to close LLM client", "error", err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Warn("failed to close archive", "error", err)
		}
	}
}

// options builds pipeline options for the configured documents.
func (e *environment) options() pipeline.Options {
	opts := pipeline.Options{
		ResumeSource:         ingestion.SourceFor(e.cfg.Resume, e.pages, e.cfg.UseBrowser),
		JobDescriptionSource: ingestion.SourceFor(e.cfg.Job, e.pages, e.cfg.UseBrowser),
		Extractor:            e.extractor,
		Matcher:              matching.NewMatcher(matching.WithLogger(e.logger)),
		Validator:            e.validator,
		Generator:            e.generator,
		Critic:               e.critic,
		Loop: refine.Config{
			MaxIterations: e.cfg.MaxIterations,
			StageTimeout:  e.cfg.StageTimeout,
			Logger:        e.logger,
		},
		Logger: e.logger,
	}
	if e.store != nil {
		opts.Archive = e.store
	}
	return opts
}

// writeJSON writes v indented to path, or to w when path is empty.
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
