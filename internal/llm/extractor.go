// Package llm - extractor.go describes the structured records the model is
// asked to extract from raw documents.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure of one extracted record.
type ExtractionSchema struct {
	Name   string        // Schema name (e.g., "Resume", "JobDescription")
	Fields []SchemaField // Top-level output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // JSON shape hint, e.g. "string", ["string"] or a nested object
	Description string // Description for the model
	Required    bool   // Whether this field is required
}

// Outline renders the schema as an annotated JSON skeleton for a prompt.
func (s ExtractionSchema) Outline() string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, field := range s.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = `"string"`
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if i < len(s.Fields)-1 {
			sb.WriteString(",")
		}
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// Required returns the names of the required fields.
func (s ExtractionSchema) Required() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// --- Predefined Schemas ---

// ResumeExtractionSchema returns the extraction schema for resumes.
func ResumeExtractionSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "Resume",
		Fields: []SchemaField{
			{
				Name:        "contact_info",
				Type:        `{"name": "string", "email": "string", "address": "string", "phone": "string", "linkedin": "string", "github": "string"}`,
				Description: "name and email are required",
				Required:    true,
			},
			{
				Name:        "profile_summary",
				Type:        `{"professional_summary": "string", "professional_highlights": ["string"]}`,
				Description: "Summary paragraph and highlight bullets verbatim",
			},
			{
				Name:        "work_history",
				Type:        `[{"job_id": "job_001", "job_company": "string", "job_title": "string", "job_operated_as": "string", "job_location": "string", "job_employment_dates": "string", "job_summary": "string", "job_achievements": ["string"], "job_technologies": ["string"], "job_skills": ["string"]}]`,
				Description: "One entry per position in resume order",
			},
			{
				Name:        "skills",
				Type:        `{"<category>": ["string"]}`,
				Description: "Category heading to skills, in resume order",
			},
			{
				Name: "education",
				Type: `[{"institution": "string", "dates": "string", "graduation_year": "string", "diploma": "string"}]`,
			},
			{
				Name: "certifications_licenses",
				Type: `[{"name": "string", "issued_by": "string", "issued_date": "string", "skills": ["string"], "additional_endorsements": ["string"]}]`,
			},
		},
	}
}

// JobDescriptionExtractionSchema returns the extraction schema for job postings.
func JobDescriptionExtractionSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "JobDescription",
		Fields: []SchemaField{
			{
				Name:        "job_info",
				Type:        `{"company_name": "string", "job_title": "string", "location": "string", "employment_type": "string", "about_role": "string", "about_company": "string"}`,
				Description: "company_name and job_title are required",
				Required:    true,
			},
			{
				Name:        "responsibilities",
				Type:        `["string"]`,
				Description: "Job duties, one per item, verbatim",
			},
			{
				Name:        "qualifications",
				Type:        `{"required": {"experience_years": "string", "technical_skills": ["string"], "domain_knowledge": ["string"], "soft_skills": ["string"], "education": ["string"]}, "preferred": {"technical_skills": ["string"], "domain_knowledge": ["string"], "soft_skills": ["string"], "certifications": ["string"], "other": ["string"]}}`,
				Description: "Sorted exactly as the posting separates required from preferred",
			},
			{
				Name: "benefits",
				Type: `["string"]`,
			},
		},
	}
}
