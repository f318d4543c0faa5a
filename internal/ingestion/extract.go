package ingestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/resume-refiner/internal/llm"
	"github.com/jonathan/resume-refiner/internal/prompts"
	"github.com/jonathan/resume-refiner/internal/session"
)

const promptFile = "ingest.json"

// Extractor turns cleaned document text into a JSON record for a role.
type Extractor interface {
	Extract(ctx context.Context, role, text string) ([]byte, error)
}

// JSONExtractor accepts documents that are already JSON records, optionally
// wrapped in a markdown fence.
type JSONExtractor struct{}

// Extract returns the JSON body of text.
func (JSONExtractor) Extract(_ context.Context, _ string, text string) ([]byte, error) {
	cleaned := llm.CleanJSONBlock(text)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("document is not a JSON object")
	}
	return []byte(cleaned), nil
}

// LLMExtractor asks a language model to structure the text.
type LLMExtractor struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewLLMExtractor creates a model-backed extractor on the lite tier.
func NewLLMExtractor(client llm.Client) *LLMExtractor {
	return &LLMExtractor{client: client, tier: llm.TierLite}
}

// Extract renders the role's extraction prompt and returns the model's JSON.
func (e *LLMExtractor) Extract(ctx context.Context, role, text string) ([]byte, error) {
	var key string
	var schema llm.ExtractionSchema
	switch role {
	case session.RoleResume:
		key, schema = "extract-resume", llm.ResumeExtractionSchema()
	case session.RoleJobDescription:
		key, schema = "extract-job-description", llm.JobDescriptionExtractionSchema()
	default:
		return nil, fmt.Errorf("no extraction prompt for role %q", role)
	}

	prompt, err := prompts.Render(promptFile, key, map[string]string{
		"Schema": schema.Outline(),
		"Text":   text,
	})
	if err != nil {
		return nil, err
	}
	reply, err := e.client.GenerateJSON(ctx, prompt, e.tier)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", role, err)
	}
	return []byte(llm.CleanJSONBlock(reply)), nil
}
