// Package types provides type definitions for structured data used throughout the resume-refiner system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// IssueCategory is the closed set of critique categories
type IssueCategory string

// Issue categories
const (
	IssueOrdering            IssueCategory = "ordering"
	IssueRelevancePruning    IssueCategory = "relevance_pruning"
	IssueStructureCompliance IssueCategory = "structure_compliance"
	IssueFidelityViolation   IssueCategory = "fidelity_violation"
	IssueFabrication         IssueCategory = "fabrication"
	IssueMissingEmphasis     IssueCategory = "missing_emphasis"
)

// Severity ranks critique issues
type Severity string

// Severity levels
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// CritiqueIssue is one problem found in a candidate
type CritiqueIssue struct {
	IssueID     string        `json:"issue_id" validate:"required"`
	Category    IssueCategory `json:"category" validate:"required,oneof=ordering relevance_pruning structure_compliance fidelity_violation fabrication missing_emphasis"`
	Location    string        `json:"location" validate:"required"`
	Severity    Severity      `json:"severity" validate:"required,oneof=critical high medium low"`
	Description string        `json:"description" validate:"required"`
	Suggestion  string        `json:"suggestion,omitempty"`
}

// Validate checks struct tags and that fidelity problems are critical.
func (i CritiqueIssue) Validate() error {
	validate := validator.New()
	if err := validate.Struct(i); err != nil {
		return err
	}
	if (i.Category == IssueFidelityViolation || i.Category == IssueFabrication) && i.Severity != SeverityCritical {
		return fmt.Errorf("issue %s: %s must be critical, got %s", i.IssueID, i.Category, i.Severity)
	}
	return nil
}

// ValidateIssues validates every issue and rejects duplicate ids.
func ValidateIssues(issues []CritiqueIssue) error {
	seen := make(map[string]bool, len(issues))
	for _, issue := range issues {
		if err := issue.Validate(); err != nil {
			return err
		}
		if seen[issue.IssueID] {
			return fmt.Errorf("duplicate issue_id %s", issue.IssueID)
		}
		seen[issue.IssueID] = true
	}
	return nil
}
