package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jonathan/resume-refiner/internal/llm"
	"github.com/jonathan/resume-refiner/internal/prompts"
	"github.com/jonathan/resume-refiner/internal/schemas"
	"github.com/jonathan/resume-refiner/internal/types"
	embedded "github.com/jonathan/resume-refiner/schemas"
)

const promptFile = "refine.json"

// LLMWriter generates candidates with a language model.
type LLMWriter struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewLLMWriter creates a model-backed generator on the advanced tier.
func NewLLMWriter(client llm.Client) *LLMWriter {
	return &LLMWriter{client: client, tier: llm.TierAdvanced}
}

// Generate asks the model for a tailored resume and validates the reply
// against the resume schema before decoding it.
func (w *LLMWriter) Generate(ctx context.Context, in GenerateInput) (*types.Resume, error) {
	if in.Record == nil {
		return nil, fmt.Errorf("record is required")
	}
	data := map[string]string{
		"Record":            toJSON(in.Record),
		"JobDescription":    toJSON(in.JobDescription),
		"Matches":           toJSON(in.Matches),
		"PreviousCandidate": "",
		"Issues":            "[]",
	}
	if in.PreviousCandidate != nil {
		data["PreviousCandidate"] = toJSON(in.PreviousCandidate)
	}
	if len(in.PriorIssues) > 0 {
		data["Issues"] = toJSON(in.PriorIssues)
	}
	prompt, err := prompts.Render(promptFile, "write-resume", data)
	if err != nil {
		return nil, err
	}

	text, err := w.client.GenerateJSON(ctx, prompt, w.tier)
	if err != nil {
		return nil, fmt.Errorf("failed to generate candidate: %w", err)
	}
	text = llm.CleanJSONBlock(text)
	if err := schemas.Validate(embedded.Resume, []byte(text)); err != nil {
		return nil, &OutputError{Collaborator: "generator", Message: "reply does not match the resume schema", Cause: err}
	}
	var candidate types.Resume
	if err := json.Unmarshal([]byte(text), &candidate); err != nil {
		return nil, &OutputError{Collaborator: "generator", Message: "reply is not a resume", Cause: err}
	}
	return &candidate, nil
}

// LLMCritic reviews candidates with a language model.
type LLMCritic struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewLLMCritic creates a model-backed critic on the standard tier.
func NewLLMCritic(client llm.Client) *LLMCritic {
	return &LLMCritic{client: client, tier: llm.TierStandard}
}

// Critique asks the model for issues. Issue ids are renumbered so they are
// unique regardless of what the model returned.
func (c *LLMCritic) Critique(ctx context.Context, in CritiqueInput) ([]types.CritiqueIssue, error) {
	if in.Candidate == nil || in.Record == nil {
		return nil, fmt.Errorf("candidate and record are required")
	}
	prompt, err := prompts.Render(promptFile, "critique-resume", map[string]string{
		"RawText":        in.RawText,
		"Record":         toJSON(in.Record),
		"JobDescription": toJSON(in.JobDescription),
		"Matches":        toJSON(in.Matches),
		"Candidate":      toJSON(in.Candidate),
		"Iteration":      strconv.Itoa(in.Iteration),
	})
	if err != nil {
		return nil, err
	}

	text, err := c.client.GenerateJSON(ctx, prompt, c.tier)
	if err != nil {
		return nil, fmt.Errorf("failed to generate critique: %w", err)
	}
	text = llm.CleanJSONBlock(text)
	if err := schemas.Validate(embedded.CritiqueIssues, []byte(text)); err != nil {
		return nil, &OutputError{Collaborator: "critic", Message: "reply does not match the issue schema", Cause: err}
	}
	var issues []types.CritiqueIssue
	if err := json.Unmarshal([]byte(text), &issues); err != nil {
		return nil, &OutputError{Collaborator: "critic", Message: "reply is not an issue list", Cause: err}
	}
	return mergeIssues(issues), nil
}

// CombinedCritic runs several critics and merges their issues.
type CombinedCritic []Critic

// Critique returns the union of every critic's issues, renumbered.
func (cc CombinedCritic) Critique(ctx context.Context, in CritiqueInput) ([]types.CritiqueIssue, error) {
	var all []types.CritiqueIssue
	for _, c := range cc {
		issues, err := c.Critique(ctx, in)
		if err != nil {
			return nil, err
		}
		all = append(all, issues...)
	}
	return mergeIssues(all), nil
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(data)
}
