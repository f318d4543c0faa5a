// Package types provides type definitions for structured data used throughout the resume-refiner system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MatchType classifies how a requirement was satisfied
type MatchType string

// Match types. Inferred is transient: it exists only before validation.
const (
	MatchExact             MatchType = "exact"
	MatchDirect            MatchType = "direct"
	MatchInferred          MatchType = "inferred"
	MatchValidatedInferred MatchType = "validated_inferred"
)

// Certainty is the strength of an inference rule
type Certainty string

// Certainty tiers
const (
	CertaintyCertain Certainty = "certain"
	CertaintyLikely  Certainty = "likely"
	CertaintyWeak    Certainty = "weak"
)

// QualificationMatch records one piece of resume evidence satisfying one requirement
type QualificationMatch struct {
	Requirement         string    `json:"requirement" validate:"required"`
	RequirementCategory string    `json:"requirement_category" validate:"required"`
	SourcePath          string    `json:"source_path" validate:"required"`
	SourceValue         string    `json:"source_value" validate:"required"`
	MatchType           MatchType `json:"match_type" validate:"required,oneof=exact direct inferred validated_inferred"`
	ConfidenceReasoning string    `json:"confidence_reasoning,omitempty"`
	Certainty           Certainty `json:"certainty,omitempty" validate:"omitempty,oneof=certain likely weak"`
}

// IsInference reports whether the match came from an inference rule
func (m QualificationMatch) IsInference() bool {
	return m.MatchType == MatchInferred || m.MatchType == MatchValidatedInferred
}

// Key identifies a match for deduplication and ordering.
func (m QualificationMatch) Key() string {
	return strings.Join([]string{
		m.RequirementCategory, m.Requirement, m.SourcePath, m.SourceValue, string(m.MatchType),
	}, "\x1f")
}

// Validate checks struct tags and that inferences carry reasoning.
func (m QualificationMatch) Validate() error {
	validate := validator.New()
	if err := validate.Struct(m); err != nil {
		return err
	}
	if m.IsInference() && strings.TrimSpace(m.ConfidenceReasoning) == "" {
		return fmt.Errorf("match %q (%s) requires confidence_reasoning", m.Requirement, m.MatchType)
	}
	return nil
}
