package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, Defaults(), *cfg)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.Equal(t, EngineRules, cfg.Engine)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"resume": "resume.json",
		"job": "https://example.com/job",
		"max_iterations": 3,
		"stage_timeout": "45s",
		"verbose": true
	}`

	cfg, err := LoadConfig(writeConfig(t, "config.json", content))
	require.NoError(t, err)

	assert.Equal(t, "resume.json", cfg.Resume)
	assert.Equal(t, "https://example.com/job", cfg.Job)
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Equal(t, 45*time.Second, cfg.StageTimeout)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, EngineRules, cfg.Engine, "unset keys keep their defaults")
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	content := "engine: llm\nprovider: openai\nsqlite_path: runs.db\nlog_level: debug\n"

	cfg, err := LoadConfig(writeConfig(t, "config.yaml", content))
	require.NoError(t, err)

	assert.Equal(t, EngineLLM, cfg.Engine)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "runs.db", cfg.SQLitePath)
	assert.True(t, cfg.NeedsLLM())
}

func TestLoadConfig_ModelOverrides(t *testing.T) {
	content := "provider: openai\nmodels:\n  advanced: gpt-5\n"

	cfg, err := LoadConfig(writeConfig(t, "config.yaml", content))
	require.NoError(t, err)

	llmCfg, err := cfg.LLMConfig()
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", llmCfg.GetModel("advanced"))
	assert.Equal(t, "gpt-4o-mini", llmCfg.GetModel("lite"), "other tiers keep provider defaults")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("REFINER_MAX_ITERATIONS", "7")
	t.Setenv("REFINER_ENGINE", "llm")

	cfg, err := LoadConfig(writeConfig(t, "config.json", `{"max_iterations": 2}`))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, EngineLLM, cfg.Engine)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.json", `{ invalid json }`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "ceiling", mutate: func(c *Config) { c.MaxIterations = 20 }},
		{name: "zero iterations", mutate: func(c *Config) { c.MaxIterations = 0 }, wantErr: "'max_iterations' must be > 0"},
		{name: "negative iterations", mutate: func(c *Config) { c.MaxIterations = -3 }, wantErr: "'max_iterations' must be > 0"},
		{name: "above ceiling", mutate: func(c *Config) { c.MaxIterations = 21 }, wantErr: "must be <= 20"},
		{name: "negative timeout", mutate: func(c *Config) { c.StageTimeout = -time.Second }, wantErr: "'stage_timeout'"},
		{name: "unknown engine", mutate: func(c *Config) { c.Engine = "magic" }, wantErr: `unknown engine "magic"`},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "anthropic" }, wantErr: "unsupported LLM provider"},
		{name: "two archives", mutate: func(c *Config) { c.DatabaseURL = "postgres://x"; c.SQLitePath = "x.db" }, wantErr: "mutually exclusive"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "invalid log level"},
		{name: "model override", mutate: func(c *Config) { c.Models = map[string]string{"advanced": "gemini-exp"} }},
		{name: "unknown tier", mutate: func(c *Config) { c.Models = map[string]string{"huge": "x"} }, wantErr: `unknown model tier "huge"`},
		{name: "empty model", mutate: func(c *Config) { c.Models = map[string]string{"lite": ""} }, wantErr: "'models.lite' must not be empty"},
		{name: "missing policy", mutate: func(c *Config) { c.PolicyFile = "/nonexistent/policy.yaml" }, wantErr: "policy file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config error")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.MaxIterations = 0
	cfg.Engine = "magic"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_iterations")
	assert.Contains(t, err.Error(), "magic")
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "oai-key")

	cfg := Defaults()
	assert.Equal(t, "gem-key", cfg.ResolveAPIKey())

	cfg = Defaults()
	cfg.Provider = "openai"
	assert.Equal(t, "oai-key", cfg.ResolveAPIKey())

	cfg.APIKey = "flag-key"
	assert.Equal(t, "flag-key", cfg.ResolveAPIKey())
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}
