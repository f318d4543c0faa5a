package refine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/resume-refiner/internal/types"
)

// Highlighter is the deterministic generator. It never rewrites text: it
// starts from the record, moves matched achievements ahead of the rest, and
// drops certifications that are clearly unrelated to the posting.
type Highlighter struct{}

// NewHighlighter creates the deterministic generator.
func NewHighlighter() *Highlighter {
	return &Highlighter{}
}

// Generate builds a candidate from the record. Prior relevance_pruning issues
// disable pruning for the retry.
func (h *Highlighter) Generate(ctx context.Context, in GenerateInput) (*types.Resume, error) {
	if in.Record == nil {
		return nil, fmt.Errorf("record is required")
	}
	candidate, err := in.Record.Clone()
	if err != nil {
		return nil, err
	}
	rel := newRelevance(in.JobDescription, in.Matches)

	for i := range candidate.WorkHistory {
		job := &candidate.WorkHistory[i]
		path := job.JobID + ".job_achievements"
		job.JobAchievements = matchedFirst(job.JobAchievements, func(a string) bool {
			return rel.matched(path, a)
		})
	}
	if ps := candidate.ProfileSummary; ps != nil {
		ps.ProfessionalHighlights = matchedFirst(ps.ProfessionalHighlights, func(a string) bool {
			return rel.matched("profile_summary.professional_highlights", a)
		})
	}

	if !hasCategory(in.PriorIssues, types.IssueRelevancePruning) {
		kept := candidate.CertificationsLicenses[:0]
		for _, c := range candidate.CertificationsLicenses {
			if rel.cert(c) != certIrrelevant {
				kept = append(kept, c)
			}
		}
		candidate.CertificationsLicenses = kept
		if len(candidate.CertificationsLicenses) == 0 {
			candidate.CertificationsLicenses = nil
		}
	}

	return candidate, nil
}

// matchedFirst stably partitions items so matched ones come first.
func matchedFirst(items []string, matched func(string) bool) []string {
	if len(items) < 2 {
		return items
	}
	out := append([]string(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return matched(out[i]) && !matched(out[j])
	})
	return out
}

func hasCategory(issues []types.CritiqueIssue, category types.IssueCategory) bool {
	for _, issue := range issues {
		if issue.Category == category {
			return true
		}
	}
	return false
}

// describe is a short human label used in issue descriptions.
func describe(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return string(r)
}
