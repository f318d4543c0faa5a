package ingestion

import (
	"context"

	"github.com/jonathan/resume-refiner/internal/llm"
)

const resumeJSON = `{
  "contact_info": {"name": "Ada Lovelace", "email": "ada@example.com"},
  "work_history": [
    {"job_company": "Difference Engines", "job_title": "Analyst", "job_employment_dates": "2016-2019"},
    {"job_company": "Analytical Engines", "job_title": "Backend Engineer", "job_employment_dates": "2019-Present",
     "job_achievements": ["Built REST APIs in Python"], "job_technologies": ["Python", "PostgreSQL"]}
  ],
  "skills": {"Programming": ["Python", "Go"], "Cloud": ["AWS"], "Databases": ["PostgreSQL"]}
}`

const jobDescriptionJSON = `{
  "job_info": {"company_name": "Acme", "job_title": "Backend Engineer"},
  "responsibilities": ["Operate services on AWS"],
  "qualifications": {"required": {"experience_years": "3+", "technical_skills": ["Python"]}}
}`

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	prompts          []string
	tiers            []llm.ModelTier
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return m.GenerateJSON(ctx, prompt, tier)
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.prompts = append(m.prompts, prompt)
	m.tiers = append(m.tiers, tier)
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "{}", nil
}

func (m *MockLLMClient) GetModel(llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }
