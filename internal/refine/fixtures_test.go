package refine

import (
	"context"
	"sync"

	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/types"
)

const rawResume = `Ada Lovelace
ada@example.com

Experience
Analytical Engines, Backend Engineer, 2019 - Present
- Organized team lunches
- Built REST APIs in Python
- Mentored two interns

Skills
Languages: Python, Go
`

func testRecord() *types.Resume {
	return &types.Resume{
		ContactInfo: types.ContactInfo{Name: "Ada Lovelace", Email: "ada@example.com"},
		ProfileSummary: &types.ProfileSummary{
			ProfessionalSummary:    "Backend engineer.",
			ProfessionalHighlights: []string{"Speaker at local meetups", "Shipped Python services to production"},
		},
		WorkHistory: []types.Job{
			{
				JobID:              "job_001",
				JobCompany:         "Analytical Engines",
				JobTitle:           "Backend Engineer",
				JobEmploymentDates: "2019 - Present",
				JobAchievements:    []string{"Organized team lunches", "Built REST APIs in Python"},
				JobTechnologies:    []string{"Python", "PostgreSQL"},
			},
		},
		Skills: types.SkillSet{
			{Name: "Languages", Skills: []string{"Python", "Go"}},
		},
		Education: []types.Education{{Institution: "University of London", Diploma: "BSc Mathematics"}},
		CertificationsLicenses: []types.Certification{
			{Name: "Certified Scuba Diver"},
			{Name: "AWS Certified Solutions Architect", IssuedBy: "Amazon"},
			{Name: "Certified Professional"},
		},
	}
}

func testJD() *types.JobDescription {
	return &types.JobDescription{
		JobInfo:          types.JobInfo{CompanyName: "Acme", JobTitle: "Backend Engineer"},
		Responsibilities: []string{"Operate services on AWS"},
		Qualifications: &types.Qualifications{
			Required: &types.RequiredQualifications{TechnicalSkills: []string{"Python"}},
		},
	}
}

func testMatches() []types.QualificationMatch {
	return []types.QualificationMatch{
		{
			Requirement:         "Python",
			RequirementCategory: types.CategoryRequiredTechnical,
			SourcePath:          "skills.Languages",
			SourceValue:         "Python",
			MatchType:           types.MatchExact,
		},
	}
}

// seededSession holds everything the loop reads.
func seededSession() *session.Store {
	s := session.New()
	s.Set(session.RecordKey(session.RoleResume), testRecord())
	s.Set(session.RecordKey(session.RoleJobDescription), testJD())
	s.Set(session.KeyMatchConfirmed, testMatches())
	s.Set(session.KeyMatchProvisional, []types.QualificationMatch{})
	s.Set(session.RawKey(session.RoleResume), rawResume)
	return s
}

// recordGenerator returns a copy of the record every time.
type recordGenerator struct {
	mu     sync.Mutex
	inputs []GenerateInput
	err    error
}

func (g *recordGenerator) Generate(_ context.Context, in GenerateInput) (*types.Resume, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inputs = append(g.inputs, in)
	if g.err != nil {
		return nil, g.err
	}
	return in.Record.Clone()
}

func (g *recordGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inputs)
}

// scriptedCritic returns issues per iteration; iterations without a script
// return the fallback.
type scriptedCritic struct {
	script   map[int][]types.CritiqueIssue
	fallback []types.CritiqueIssue
	err      error
	seen     []int
}

func (c *scriptedCritic) Critique(_ context.Context, in CritiqueInput) ([]types.CritiqueIssue, error) {
	c.seen = append(c.seen, in.Iteration)
	if c.err != nil {
		return nil, c.err
	}
	if issues, ok := c.script[in.Iteration]; ok {
		return issues, nil
	}
	return c.fallback, nil
}

func issue(id string, category types.IssueCategory, severity types.Severity) types.CritiqueIssue {
	return types.CritiqueIssue{
		IssueID:     id,
		Category:    category,
		Location:    "job_001.job_achievements",
		Severity:    severity,
		Description: "needs work",
	}
}
