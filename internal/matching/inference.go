package matching

import (
	"fmt"
	"strings"

	"github.com/jonathan/resume-refiner/internal/types"
)

// InferenceRule links resume evidence phrases to skills that evidence implies.
// Only rules whose implication holds for nearly every holder of the evidence
// are marked certain; the default promotion policy promotes nothing else.
type InferenceRule struct {
	Name      string
	Triggers  []string // phrases searched for in resume evidence
	Implies   []string // canonical skills the evidence implies
	Certainty types.Certainty
	Rationale string
}

// DefaultInferenceRules returns the built-in inference table. Broad titles
// such as "software engineer" or "team member" deliberately have no rule.
func DefaultInferenceRules() []InferenceRule {
	return []InferenceRule{
		{
			Name:      "full_stack_web",
			Triggers:  []string{"full-stack web developer", "full stack web developer", "full-stack developer", "full stack developer", "front-end developer", "frontend developer", "web developer"},
			Implies:   []string{"html", "css", "javascript"},
			Certainty: types.CertaintyCertain,
			Rationale: "web development work requires HTML, CSS and JavaScript",
		},
		{
			Name:      "responsive_web",
			Triggers:  []string{"responsive web", "responsive design", "responsive layouts"},
			Implies:   []string{"css"},
			Certainty: types.CertaintyCertain,
			Rationale: "responsive layouts are built with CSS",
		},
		{
			Name:      "devops",
			Triggers:  []string{"devops engineer", "devops"},
			Implies:   []string{"ci/cd", "linux", "scripting"},
			Certainty: types.CertaintyCertain,
			Rationale: "DevOps roles operate CI/CD pipelines on Linux with scripting",
		},
		{
			Name:      "site_reliability",
			Triggers:  []string{"site reliability engineer", "sre"},
			Implies:   []string{"linux", "monitoring"},
			Certainty: types.CertaintyLikely,
			Rationale: "reliability engineering usually involves Linux operations and monitoring",
		},
		{
			Name:      "data_scientist",
			Triggers:  []string{"data scientist"},
			Implies:   []string{"python", "statistics", "machine learning"},
			Certainty: types.CertaintyCertain,
			Rationale: "data science work relies on Python, statistics and machine learning",
		},
		{
			Name:      "backend_developer",
			Triggers:  []string{"backend developer", "back-end developer", "backend engineer"},
			Implies:   []string{"sql", "rest apis"},
			Certainty: types.CertaintyLikely,
			Rationale: "backend roles commonly involve SQL and REST APIs",
		},
		{
			Name:      "people_leadership",
			Triggers:  []string{"led a team", "led the team", "managed a team", "team lead", "tech lead", "engineering manager", "mentored"},
			Implies:   []string{"leadership"},
			Certainty: types.CertaintyCertain,
			Rationale: "leading or mentoring people demonstrates leadership",
		},
		{
			Name:      "collaboration",
			Triggers:  []string{"cross-functional", "collaborated with", "partnered with"},
			Implies:   []string{"collaboration", "teamwork"},
			Certainty: types.CertaintyLikely,
			Rationale: "cross-team work suggests collaboration",
		},
		{
			Name:      "communication",
			Triggers:  []string{"presented to", "technical writing", "authored documentation", "stakeholder presentations"},
			Implies:   []string{"communication"},
			Certainty: types.CertaintyLikely,
			Rationale: "presenting and writing for others suggests communication skills",
		},
	}
}

// evidence is one resume field value that inference rules may fire on
type evidence struct {
	path  string
	value string
}

// infer returns inferred matches for requirement from the evidence, at most one
// per (rule, evidence) pair. Evidence must be in deterministic order.
func infer(rules []InferenceRule, req types.Requirement, ev []evidence) []types.QualificationMatch {
	var out []types.QualificationMatch
	for _, rule := range rules {
		implied := ""
		for _, skill := range rule.Implies {
			if mentionsSkill(req.Text, skill) {
				implied = skill
				break
			}
		}
		if implied == "" {
			continue
		}
		for _, e := range ev {
			trigger := firstTrigger(rule, e.value)
			if trigger == "" {
				continue
			}
			out = append(out, types.QualificationMatch{
				Requirement:         req.Text,
				RequirementCategory: req.Category,
				SourcePath:          e.path,
				SourceValue:         e.value,
				MatchType:           types.MatchInferred,
				Certainty:           rule.Certainty,
				ConfidenceReasoning: fmt.Sprintf("%q indicates %s: %s (rule %s)", trigger, req.Text, rule.Rationale, rule.Name),
			})
		}
	}
	return out
}

func firstTrigger(rule InferenceRule, text string) string {
	for _, t := range rule.Triggers {
		if containsPhrase(text, t) {
			return strings.TrimSpace(t)
		}
	}
	return ""
}
