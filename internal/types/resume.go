// Package types provides type definitions for structured data used throughout the resume-refiner system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Resume is the structured record for the resume role. Optional data is
// represented by omission, never by null or empty placeholders.
type Resume struct {
	ContactInfo            ContactInfo     `json:"contact_info" validate:"required"`
	ProfileSummary         *ProfileSummary `json:"profile_summary,omitempty"`
	WorkHistory            []Job           `json:"work_history,omitempty" validate:"dive"`
	Skills                 SkillSet        `json:"skills,omitempty"`
	Education              []Education     `json:"education,omitempty" validate:"dive"`
	CertificationsLicenses []Certification `json:"certifications_licenses,omitempty" validate:"dive"`
}

// ContactInfo holds candidate contact details
type ContactInfo struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

// ProfileSummary holds the free-text profile section
type ProfileSummary struct {
	ProfessionalSummary    string   `json:"professional_summary,omitempty"`
	ProfessionalHighlights []string `json:"professional_highlights,omitempty"`
}

// Job is one work history entry. JobID is job_001 for the oldest position.
type Job struct {
	JobID              string   `json:"job_id" validate:"required,startswith=job_"`
	JobCompany         string   `json:"job_company" validate:"required"`
	JobTitle           string   `json:"job_title" validate:"required"`
	JobOperatedAs      string   `json:"job_operated_as,omitempty"`
	JobLocation        string   `json:"job_location,omitempty"`
	JobEmploymentDates string   `json:"job_employment_dates,omitempty"`
	JobSummary         string   `json:"job_summary,omitempty"`
	JobAchievements    []string `json:"job_achievements,omitempty"`
	JobTechnologies    []string `json:"job_technologies,omitempty"`
	JobSkills          []string `json:"job_skills,omitempty"`
}

// Education is one education entry
type Education struct {
	Institution    string `json:"institution" validate:"required"`
	Dates          string `json:"dates,omitempty"`
	GraduationYear string `json:"graduation_year,omitempty"`
	Diploma        string `json:"diploma,omitempty"`
}

// Certification is one certification or license
type Certification struct {
	Name                   string   `json:"name" validate:"required"`
	IssuedBy               string   `json:"issued_by,omitempty"`
	IssuedDate             string   `json:"issued_date,omitempty"`
	Skills                 []string `json:"skills,omitempty"`
	AdditionalEndorsements []string `json:"additional_endorsements,omitempty"`
}

// SkillCategory is one named group of skills
type SkillCategory struct {
	Name   string
	Skills []string
}

// SkillSet is the skills section. It serializes as a JSON object of
// category -> list and preserves category order in both directions.
type SkillSet []SkillCategory

// MarshalJSON encodes the categories as an ordered JSON object.
func (s SkillSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(cat.Name)
		if err != nil {
			return nil, err
		}
		skills, err := json.Marshal(cat.Skills)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(skills)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of category -> list in document order.
func (s *SkillSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("skills: expected object, got %v", tok)
	}
	var out SkillSet
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("skills: expected category name, got %v", tok)
		}
		var skills []string
		if err := dec.Decode(&skills); err != nil {
			return fmt.Errorf("skills: category %q: %w", name, err)
		}
		out = append(out, SkillCategory{Name: name, Skills: skills})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// Validate checks required fields using struct tags
func (r *Resume) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Sections returns the top-level JSON keys present on the resume, in schema order.
func (r *Resume) Sections() []string {
	sections := []string{"contact_info"}
	if r.ProfileSummary != nil {
		sections = append(sections, "profile_summary")
	}
	if len(r.WorkHistory) > 0 {
		sections = append(sections, "work_history")
	}
	if len(r.Skills) > 0 {
		sections = append(sections, "skills")
	}
	if len(r.Education) > 0 {
		sections = append(sections, "education")
	}
	if len(r.CertificationsLicenses) > 0 {
		sections = append(sections, "certifications_licenses")
	}
	return sections
}

// Job returns the work history entry with the given id, or nil.
func (r *Resume) Job(id string) *Job {
	for i := range r.WorkHistory {
		if r.WorkHistory[i].JobID == id {
			return &r.WorkHistory[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the resume.
func (r *Resume) Clone() (*Resume, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to clone resume: %w", err)
	}
	var out Resume
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to clone resume: %w", err)
	}
	return &out, nil
}
