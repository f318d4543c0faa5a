package schemas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	embedded "github.com/jonathan/resume-refiner/schemas"
)

const validResume = `{
	"contact_info": {"name": "Ada Lovelace", "email": "ada@example.com"},
	"work_history": [
		{"job_id": "job_001", "job_company": "Analytical Engines", "job_title": "Engineer",
		 "job_achievements": ["Wrote the first program"]}
	],
	"skills": {"Languages": ["Python", "Go"]}
}`

func TestValidate_ValidResume(t *testing.T) {
	assert.NoError(t, Validate(embedded.Resume, []byte(validResume)))
}

func TestValidate_MissingRequiredField(t *testing.T) {
	err := Validate(embedded.Resume, []byte(`{"contact_info": {"name": "Ada"}}`))
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Equal(t, embedded.Resume, validationErr.Schema)
	assert.NotEmpty(t, validationErr.Errors)
}

func TestValidate_BadJobID(t *testing.T) {
	doc := `{"contact_info": {"name": "Ada", "email": "a@b.c"},
		"work_history": [{"job_id": "first", "job_company": "X", "job_title": "Y"}]}`
	err := Validate(embedded.Resume, []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "work_history.0.job_id")
}

func TestValidate_NullRejected(t *testing.T) {
	doc := `{"contact_info": {"name": "Ada", "email": "a@b.c", "phone": null}}`
	assert.Error(t, Validate(embedded.Resume, []byte(doc)))
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope.schema.json", []byte(`{}`))
	require.Error(t, err)

	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidate_InferredMatchNeedsReasoning(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name:    "exact without reasoning",
			doc:     `[{"requirement": "Python", "requirement_category": "required.technical_skills", "source_path": "skills.Languages", "source_value": "Python", "match_type": "exact"}]`,
			wantErr: false,
		},
		{
			name:    "inferred without reasoning",
			doc:     `[{"requirement": "HTML", "requirement_category": "required.technical_skills", "source_path": "job_001.job_title", "source_value": "Full-stack Web Developer", "match_type": "inferred"}]`,
			wantErr: true,
		},
		{
			name:    "validated with reasoning",
			doc:     `[{"requirement": "HTML", "requirement_category": "required.technical_skills", "source_path": "job_001.job_title", "source_value": "Full-stack Web Developer", "match_type": "validated_inferred", "confidence_reasoning": "full-stack web work uses HTML", "certainty": "certain"}]`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(embedded.QualificationMatches, []byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_CritiqueIssues(t *testing.T) {
	assert.NoError(t, Validate(embedded.CritiqueIssues, []byte(`[]`)))

	bad := `[{"issue_id": "001", "category": "tone", "location": "job_001", "severity": "high", "description": "x"}]`
	assert.Error(t, Validate(embedded.CritiqueIssues, []byte(bad)))
}

func TestValidateValue(t *testing.T) {
	v := map[string]any{
		"job_info": map[string]any{"company_name": "Acme", "job_title": "Engineer"},
	}
	assert.NoError(t, ValidateValue(embedded.JobDescription, v))

	delete(v["job_info"].(map[string]any), "job_title")
	assert.Error(t, ValidateValue(embedded.JobDescription, v))
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.json")
	require.NoError(t, os.WriteFile(path, []byte(validResume), 0644))

	assert.NoError(t, ValidateFile(embedded.Resume, path))

	err := ValidateFile(embedded.Resume, filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be a number"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "validation failed")
	assert.Contains(t, msg, "1. name: is required")
	assert.Contains(t, msg, "2. age: must be a number")
}
