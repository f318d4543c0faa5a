package refine

import (
	"context"
	"testing"

	"github.com/jonathan/resume-refiner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func review(t *testing.T, candidate *types.Resume) []types.CritiqueIssue {
	t.Helper()
	issues, err := NewReviewer().Critique(context.Background(), CritiqueInput{
		Iteration:      1,
		Candidate:      candidate,
		Record:         testRecord(),
		RawText:        rawResume,
		JobDescription: testJD(),
		Matches:        testMatches(),
	})
	require.NoError(t, err)
	require.NoError(t, types.ValidateIssues(issues))
	return issues
}

func highlighted(t *testing.T) *types.Resume {
	t.Helper()
	c, err := NewHighlighter().Generate(context.Background(), GenerateInput{
		Record:         testRecord(),
		JobDescription: testJD(),
		Matches:        testMatches(),
	})
	require.NoError(t, err)
	return c
}

func byCategory(issues []types.CritiqueIssue, category types.IssueCategory) []types.CritiqueIssue {
	var out []types.CritiqueIssue
	for _, i := range issues {
		if i.Category == category {
			out = append(out, i)
		}
	}
	return out
}

func TestReviewer_ApprovesHighlightedCandidate(t *testing.T) {
	assert.Empty(t, review(t, highlighted(t)))
}

func TestReviewer_Ordering(t *testing.T) {
	issues := review(t, testRecord())

	got := byCategory(issues, types.IssueOrdering)
	require.Len(t, got, 2)
	assert.Equal(t, "job_001.job_achievements", got[0].Location)
	assert.Equal(t, types.SeverityMedium, got[0].Severity)
	assert.Equal(t, "profile_summary.professional_highlights", got[1].Location)
}

func TestReviewer_Fabrication(t *testing.T) {
	c := highlighted(t)
	c.WorkHistory[0].JobAchievements = append(c.WorkHistory[0].JobAchievements, "Launched a satellite into orbit")

	got := byCategory(review(t, c), types.IssueFabrication)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityCritical, got[0].Severity)
	assert.Equal(t, "job_001.job_achievements", got[0].Location)
}

func TestReviewer_RewordingIsFidelityViolation(t *testing.T) {
	c := highlighted(t)
	c.WorkHistory[0].JobAchievements[0] = "Built REST APIs with Python"

	issues := review(t, c)
	got := byCategory(issues, types.IssueFidelityViolation)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityCritical, got[0].Severity)
	assert.Empty(t, byCategory(issues, types.IssueFabrication))
}

func TestReviewer_RawTextGroundsValues(t *testing.T) {
	c := highlighted(t)
	c.WorkHistory[0].JobAchievements = append(c.WorkHistory[0].JobAchievements, "Mentored two interns")

	assert.Empty(t, review(t, c))
}

func TestReviewer_ProtectedFields(t *testing.T) {
	c := highlighted(t)
	c.WorkHistory[0].JobTitle = "Principal Engineer"
	c.ContactInfo.Phone = "555-0100"

	got := byCategory(review(t, c), types.IssueFidelityViolation)
	var locations []string
	for _, i := range got {
		locations = append(locations, i.Location)
	}
	assert.ElementsMatch(t, []string{"contact_info", "job_001.job_title"}, locations)
}

func TestReviewer_RelevantCertificationRemoved(t *testing.T) {
	c := highlighted(t)
	c.CertificationsLicenses = []types.Certification{{Name: "Certified Professional"}}

	got := byCategory(review(t, c), types.IssueRelevancePruning)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityHigh, got[0].Severity)
	assert.Contains(t, got[0].Description, "AWS Certified Solutions Architect")
}

func TestReviewer_AmbiguousCertificationRemoved(t *testing.T) {
	c := highlighted(t)
	c.CertificationsLicenses = c.CertificationsLicenses[:1]

	got := byCategory(review(t, c), types.IssueRelevancePruning)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityMedium, got[0].Severity)
}

func TestReviewer_MissingEmphasis(t *testing.T) {
	c := highlighted(t)
	c.WorkHistory[0].JobAchievements = []string{"Organized team lunches"}
	c.Skills = types.SkillSet{{Name: "Languages", Skills: []string{"Go"}}}

	got := byCategory(review(t, c), types.IssueMissingEmphasis)
	require.Len(t, got, 2)
	for _, i := range got {
		assert.Equal(t, types.SeverityHigh, i.Severity)
	}
}

func TestReviewer_Structure(t *testing.T) {
	c := highlighted(t)
	c.WorkHistory = nil

	got := byCategory(review(t, c), types.IssueStructureCompliance)
	require.Len(t, got, 1)
	assert.Equal(t, "job_001", got[0].Location)
}

func TestReviewer_UnknownPosition(t *testing.T) {
	c := highlighted(t)
	c.WorkHistory = append(c.WorkHistory, types.Job{JobID: "job_002", JobCompany: "Elsewhere", JobTitle: "CTO"})

	got := byCategory(review(t, c), types.IssueFabrication)
	require.Len(t, got, 1)
	assert.Equal(t, "job_002", got[0].Location)
}

func TestReviewer_IDsAndSeverityOrder(t *testing.T) {
	c := testRecord()
	c.WorkHistory[0].JobAchievements = append(c.WorkHistory[0].JobAchievements, "Invented the telephone")

	issues := review(t, c)
	require.Len(t, issues, 3)
	for i, issue := range issues {
		assert.Equal(t, []string{"001", "002", "003"}[i], issue.IssueID)
	}
	assert.Equal(t, types.IssueFabrication, issues[0].Category)
	assert.Equal(t, types.SeverityMedium, issues[1].Severity)
	assert.Equal(t, types.SeverityLow, issues[2].Severity)
}

func TestMergeIssues_Dedupes(t *testing.T) {
	a := issue("x", types.IssueOrdering, types.SeverityLow)
	b := issue("y", types.IssueFabrication, types.SeverityCritical)

	got := mergeIssues([]types.CritiqueIssue{a, b, a})
	require.Len(t, got, 2)
	assert.Equal(t, "001", got[0].IssueID)
	assert.Equal(t, types.IssueFabrication, got[0].Category)
	assert.Equal(t, "002", got[1].IssueID)
}
