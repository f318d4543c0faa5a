package refine

import (
	"context"
	"testing"

	"github.com/jonathan/resume-refiner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func certNames(certs []types.Certification) []string {
	var names []string
	for _, c := range certs {
		names = append(names, c.Name)
	}
	return names
}

func TestHighlighter_MatchedFirst(t *testing.T) {
	record := testRecord()
	out, err := NewHighlighter().Generate(context.Background(), GenerateInput{
		Iteration:      1,
		Record:         record,
		JobDescription: testJD(),
		Matches:        testMatches(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Built REST APIs in Python", "Organized team lunches"}, out.WorkHistory[0].JobAchievements)
	assert.Equal(t, []string{"Shipped Python services to production", "Speaker at local meetups"}, out.ProfileSummary.ProfessionalHighlights)

	// the record itself is untouched
	assert.Equal(t, "Organized team lunches", record.WorkHistory[0].JobAchievements[0])
}

func TestHighlighter_PrunesUnrelatedCertifications(t *testing.T) {
	out, err := NewHighlighter().Generate(context.Background(), GenerateInput{
		Record:         testRecord(),
		JobDescription: testJD(),
		Matches:        testMatches(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"AWS Certified Solutions Architect", "Certified Professional"}, certNames(out.CertificationsLicenses))
}

func TestHighlighter_PruningDisputeKeepsEverything(t *testing.T) {
	out, err := NewHighlighter().Generate(context.Background(), GenerateInput{
		Iteration:      2,
		Record:         testRecord(),
		JobDescription: testJD(),
		Matches:        testMatches(),
		PriorIssues:    []types.CritiqueIssue{issue("001", types.IssueRelevancePruning, types.SeverityHigh)},
	})
	require.NoError(t, err)

	assert.Len(t, out.CertificationsLicenses, 3)
}

func TestHighlighter_AllPrunedBecomesNil(t *testing.T) {
	record := testRecord()
	record.CertificationsLicenses = []types.Certification{{Name: "Certified Scuba Diver"}}

	out, err := NewHighlighter().Generate(context.Background(), GenerateInput{
		Record:         record,
		JobDescription: testJD(),
		Matches:        testMatches(),
	})
	require.NoError(t, err)
	assert.Nil(t, out.CertificationsLicenses)
	assert.NotContains(t, out.Sections(), "certifications_licenses")
}

func TestHighlighter_RequiresRecord(t *testing.T) {
	_, err := NewHighlighter().Generate(context.Background(), GenerateInput{})
	assert.Error(t, err)
}

func TestMatchedFirst_Stable(t *testing.T) {
	items := []string{"a1", "b1", "a2", "b2", "a3"}
	got := matchedFirst(items, func(s string) bool { return s[0] == 'a' })
	assert.Equal(t, []string{"a1", "a2", "a3", "b1", "b2"}, got)
	assert.Equal(t, "b1", items[1])
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "short", describe("  short "))

	long := "Designed and operated a multi-region event pipeline handling two billion events per day"
	got := describe(long)
	assert.Len(t, []rune(got), 60)
	assert.True(t, len(got) > 3 && got[len(got)-3:] == "...")
}
