// Package config provides configuration loading and validation for the CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/resume-refiner/internal/db"
	"github.com/jonathan/resume-refiner/internal/llm"
	"github.com/jonathan/resume-refiner/internal/refine"
)

// EnvPrefix prefixes every environment override, e.g. REFINER_MAX_ITERATIONS.
const EnvPrefix = "REFINER"

// Engines that generate and critique candidates
const (
	EngineRules = "rules" // deterministic highlighter and reviewer
	EngineLLM   = "llm"   // model-backed writer and critic
)

// Config represents the CLI configuration. It can be loaded from a JSON or
// YAML file and overridden by REFINER_* environment variables; CLI flags are
// applied on top by the commands.
type Config struct {
	// Documents: file paths or http(s) URLs
	Resume string `mapstructure:"resume"`
	Job    string `mapstructure:"job"`

	// Refinement
	Engine        string        `mapstructure:"engine"`
	MaxIterations int           `mapstructure:"max_iterations"`
	StageTimeout  time.Duration `mapstructure:"stage_timeout"`
	PolicyFile    string        `mapstructure:"policy_file"` // YAML promotion rules

	// LLM
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"` // falls back to GEMINI_API_KEY / OPENAI_API_KEY
	Extract  bool   `mapstructure:"extract"` // structure plain-text documents with the model
	// Models overrides provider defaults per tier (lite, standard, advanced)
	Models map[string]string `mapstructure:"models"`

	// Fetching
	UseBrowser bool          `mapstructure:"use_browser"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`

	// Archive: at most one
	DatabaseURL string `mapstructure:"database_url"`
	SQLitePath  string `mapstructure:"sqlite_path"`

	// Output
	Output   string `mapstructure:"output"` // final artifact path; stdout when empty
	Verbose  bool   `mapstructure:"verbose"`
	LogLevel string `mapstructure:"log_level"`

	// HTTP API
	Addr      string `mapstructure:"addr"`
	RateLimit bool   `mapstructure:"rate_limit"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Engine:        EngineRules,
		MaxIterations: refine.DefaultMaxIterations,
		Provider:      string(llm.ProviderGemini),
		CacheTTL:      db.DefaultPageCacheTTL,
		LogLevel:      "info",
		Addr:          ":8080",
		RateLimit:     true,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("resume", d.Resume)
	v.SetDefault("job", d.Job)
	v.SetDefault("engine", d.Engine)
	v.SetDefault("max_iterations", d.MaxIterations)
	v.SetDefault("stage_timeout", d.StageTimeout)
	v.SetDefault("policy_file", d.PolicyFile)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("extract", d.Extract)
	v.SetDefault("use_browser", d.UseBrowser)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("sqlite_path", d.SQLitePath)
	v.SetDefault("output", d.Output)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("addr", d.Addr)
	v.SetDefault("rate_limit", d.RateLimit)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads defaults, then the file at path (if any), then REFINER_*
// environment variables. The file format follows its extension.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values. Required
// documents are checked by the commands after flags are applied.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("'max_iterations' must be > 0, got %d", c.MaxIterations))
	} else if c.MaxIterations > refine.MaxIterationCeiling {
		errs = append(errs, fmt.Errorf("'max_iterations' must be <= %d, got %d", refine.MaxIterationCeiling, c.MaxIterations))
	}
	if c.StageTimeout < 0 {
		errs = append(errs, fmt.Errorf("'stage_timeout' must not be negative"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("'cache_ttl' must not be negative"))
	}
	switch c.Engine {
	case EngineRules, EngineLLM:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q (want %s or %s)", c.Engine, EngineRules, EngineLLM))
	}
	if _, err := c.LLMConfig(); err != nil {
		errs = append(errs, err)
	}
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		errs = append(errs, fmt.Errorf("'database_url' and 'sqlite_path' are mutually exclusive"))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.PolicyFile != "" {
		if _, err := os.Stat(c.PolicyFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("policy file not found: %s", c.PolicyFile))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// LLMConfig returns the provider's model configuration with any per-tier
// overrides applied.
func (c *Config) LLMConfig() (*llm.Config, error) {
	cfg, err := llm.ConfigFor(llm.Provider(c.Provider))
	if err != nil {
		return nil, err
	}
	for tier, model := range c.Models {
		switch t := llm.ModelTier(tier); t {
		case llm.TierLite, llm.TierStandard, llm.TierAdvanced:
			if model == "" {
				return nil, fmt.Errorf("'models.%s' must not be empty", tier)
			}
			cfg = cfg.WithModel(t, model)
		default:
			return nil, fmt.Errorf("unknown model tier %q (want lite, standard or advanced)", tier)
		}
	}
	return cfg, nil
}

// NeedsLLM reports whether any stage will call a model.
func (c *Config) NeedsLLM() bool {
	return c.Engine == EngineLLM || c.Extract
}

// ResolveAPIKey fills APIKey from the provider's conventional environment
// variable when it is not set.
func (c *Config) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch llm.Provider(c.Provider) {
	case llm.ProviderOpenAI:
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	default:
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return c.APIKey
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
