// Package types provides type definitions for structured data used throughout the resume-refiner system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "github.com/go-playground/validator/v10"

// JobDescription is the structured record for the job description role
type JobDescription struct {
	JobInfo          JobInfo         `json:"job_info" validate:"required"`
	Responsibilities []string        `json:"responsibilities,omitempty"`
	Qualifications   *Qualifications `json:"qualifications,omitempty"`
	Benefits         []string        `json:"benefits,omitempty"`
}

// JobInfo holds the posting header
type JobInfo struct {
	CompanyName    string `json:"company_name" validate:"required"`
	JobTitle       string `json:"job_title" validate:"required"`
	Location       string `json:"location,omitempty"`
	EmploymentType string `json:"employment_type,omitempty"`
	AboutRole      string `json:"about_role,omitempty"`
	AboutCompany   string `json:"about_company,omitempty"`
}

// Qualifications splits requirements into required and preferred tiers
type Qualifications struct {
	Required  *RequiredQualifications  `json:"required,omitempty"`
	Preferred *PreferredQualifications `json:"preferred,omitempty"`
}

// RequiredQualifications lists the hard requirements of a posting
type RequiredQualifications struct {
	ExperienceYears string   `json:"experience_years,omitempty"` // e.g. "5+"
	TechnicalSkills []string `json:"technical_skills,omitempty"`
	DomainKnowledge []string `json:"domain_knowledge,omitempty"`
	SoftSkills      []string `json:"soft_skills,omitempty"`
	Education       []string `json:"education,omitempty"`
}

// PreferredQualifications lists the nice-to-haves of a posting
type PreferredQualifications struct {
	TechnicalSkills []string `json:"technical_skills,omitempty"`
	DomainKnowledge []string `json:"domain_knowledge,omitempty"`
	SoftSkills      []string `json:"soft_skills,omitempty"`
	Certifications  []string `json:"certifications,omitempty"`
	Other           []string `json:"other,omitempty"`
}

// Requirement categories, dotted as they appear in QualificationMatch
const (
	CategoryRequiredExperience     = "required.experience_years"
	CategoryRequiredTechnical      = "required.technical_skills"
	CategoryRequiredDomain         = "required.domain_knowledge"
	CategoryRequiredSoft           = "required.soft_skills"
	CategoryRequiredEducation      = "required.education"
	CategoryPreferredTechnical     = "preferred.technical_skills"
	CategoryPreferredDomain        = "preferred.domain_knowledge"
	CategoryPreferredSoft          = "preferred.soft_skills"
	CategoryPreferredCertification = "preferred.certifications"
	CategoryPreferredOther         = "preferred.other"
)

// Requirement is one qualification statement with its category
type Requirement struct {
	Text     string
	Category string
}

// Requirements flattens the qualifications in document order.
func (jd *JobDescription) Requirements() []Requirement {
	var reqs []Requirement
	add := func(category string, items []string) {
		for _, item := range items {
			reqs = append(reqs, Requirement{Text: item, Category: category})
		}
	}
	if jd.Qualifications == nil {
		return reqs
	}
	if r := jd.Qualifications.Required; r != nil {
		if r.ExperienceYears != "" {
			add(CategoryRequiredExperience, []string{r.ExperienceYears})
		}
		add(CategoryRequiredTechnical, r.TechnicalSkills)
		add(CategoryRequiredDomain, r.DomainKnowledge)
		add(CategoryRequiredSoft, r.SoftSkills)
		add(CategoryRequiredEducation, r.Education)
	}
	if p := jd.Qualifications.Preferred; p != nil {
		add(CategoryPreferredTechnical, p.TechnicalSkills)
		add(CategoryPreferredDomain, p.DomainKnowledge)
		add(CategoryPreferredSoft, p.SoftSkills)
		add(CategoryPreferredCertification, p.Certifications)
		add(CategoryPreferredOther, p.Other)
	}
	return reqs
}

// Validate checks required fields using struct tags
func (jd *JobDescription) Validate() error {
	validate := validator.New()
	return validate.Struct(jd)
}
