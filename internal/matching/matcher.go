// Package matching compares a structured resume against a structured job
// description and resolves inferred matches through a promotion policy.
package matching

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/resume-refiner/internal/types"
)

// Matcher produces qualification matches. It is deterministic for a fixed
// clock: the same records always yield the same sorted match sets.
type Matcher struct {
	rules  []InferenceRule
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Matcher
type Option func(*Matcher)

// WithInferenceRules replaces the built-in inference table.
func WithInferenceRules(rules []InferenceRule) Option {
	return func(m *Matcher) { m.rules = rules }
}

// WithClock sets the reference time used for "Present" in employment dates.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

// NewMatcher creates a matcher with the default inference rules.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		rules:  DefaultInferenceRules(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MatchResult holds matcher output before validation
type MatchResult struct {
	Confirmed   []types.QualificationMatch // exact and direct
	Provisional []types.QualificationMatch // inferred
}

// Match compares every requirement of jd against the resume. Inferred matches
// are produced only for requirements with no exact or direct match.
func (m *Matcher) Match(resume *types.Resume, jd *types.JobDescription) MatchResult {
	var res MatchResult
	idx := indexResume(resume)

	for _, req := range jd.Requirements() {
		var found []types.QualificationMatch
		switch req.Category {
		case types.CategoryRequiredTechnical, types.CategoryPreferredTechnical:
			found = matchValues(req, idx.technical)
		case types.CategoryRequiredDomain, types.CategoryPreferredDomain, types.CategoryPreferredOther:
			found = matchNarrative(req, idx.narrative)
		case types.CategoryRequiredSoft, types.CategoryPreferredSoft:
			found = matchNarrative(req, idx.soft)
		case types.CategoryRequiredEducation:
			found = matchEducation(req, idx.education)
		case types.CategoryPreferredCertification:
			found = matchValues(req, idx.certifications)
		case types.CategoryRequiredExperience:
			found = m.matchExperience(req, resume)
		}

		if len(found) > 0 {
			res.Confirmed = append(res.Confirmed, found...)
			continue
		}
		if inferable(req.Category) {
			res.Provisional = append(res.Provisional, infer(m.rules, req, idx.inference)...)
		}
	}

	res.Confirmed = sortMatches(res.Confirmed)
	res.Provisional = sortMatches(res.Provisional)
	m.logger.Debug("qualification matching complete",
		"requirements", len(jd.Requirements()),
		"confirmed", len(res.Confirmed),
		"provisional", len(res.Provisional))
	return res
}

func inferable(category string) bool {
	switch category {
	case types.CategoryRequiredTechnical, types.CategoryPreferredTechnical,
		types.CategoryRequiredSoft, types.CategoryPreferredSoft:
		return true
	}
	return false
}

// resumeIndex groups resume fields by the requirement families they can satisfy
type resumeIndex struct {
	technical      []evidence
	narrative      []evidence
	soft           []evidence
	education      []evidence
	certifications []evidence
	inference      []evidence
}

func indexResume(r *types.Resume) resumeIndex {
	var idx resumeIndex
	add := func(dst *[]evidence, path string, values ...string) {
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				*dst = append(*dst, evidence{path: path, value: v})
			}
		}
	}

	for _, cat := range r.Skills {
		add(&idx.technical, "skills."+cat.Name, cat.Skills...)
	}
	for _, job := range r.WorkHistory {
		add(&idx.technical, job.JobID+".job_technologies", job.JobTechnologies...)
		add(&idx.technical, job.JobID+".job_skills", job.JobSkills...)
	}
	for i, cert := range r.CertificationsLicenses {
		add(&idx.technical, fmt.Sprintf("certifications_licenses[%d].skills", i), cert.Skills...)
		add(&idx.certifications, fmt.Sprintf("certifications_licenses[%d].name", i), cert.Name)
	}
	for i, edu := range r.Education {
		add(&idx.education, fmt.Sprintf("education[%d].diploma", i), edu.Diploma)
	}

	if ps := r.ProfileSummary; ps != nil {
		add(&idx.narrative, "profile_summary.professional_summary", ps.ProfessionalSummary)
		add(&idx.narrative, "profile_summary.professional_highlights", ps.ProfessionalHighlights...)
		add(&idx.soft, "profile_summary.professional_highlights", ps.ProfessionalHighlights...)
		add(&idx.inference, "profile_summary.professional_summary", ps.ProfessionalSummary)
		add(&idx.inference, "profile_summary.professional_highlights", ps.ProfessionalHighlights...)
	}
	for _, job := range r.WorkHistory {
		add(&idx.narrative, job.JobID+".job_summary", job.JobSummary)
		add(&idx.narrative, job.JobID+".job_achievements", job.JobAchievements...)
		add(&idx.soft, job.JobID+".job_operated_as", job.JobOperatedAs)
		add(&idx.soft, job.JobID+".job_achievements", job.JobAchievements...)
		add(&idx.inference, job.JobID+".job_title", job.JobTitle)
		add(&idx.inference, job.JobID+".job_operated_as", job.JobOperatedAs)
		add(&idx.inference, job.JobID+".job_summary", job.JobSummary)
		add(&idx.inference, job.JobID+".job_achievements", job.JobAchievements...)
	}
	return idx
}

// matchValues compares a requirement against discrete skill-like values.
func matchValues(req types.Requirement, ev []evidence) []types.QualificationMatch {
	var out []types.QualificationMatch
	target := normalizeText(req.Text)
	for _, e := range ev {
		switch {
		case normalizeText(e.value) == target:
			out = append(out, newMatch(req, e, types.MatchExact))
		case skillEquivalent(req.Text, e.value):
			out = append(out, newMatch(req, e, types.MatchDirect))
		}
	}
	return out
}

// matchNarrative looks for the requirement stated in free text.
func matchNarrative(req types.Requirement, ev []evidence) []types.QualificationMatch {
	var out []types.QualificationMatch
	target := normalizeText(req.Text)
	for _, e := range ev {
		switch {
		case normalizeText(e.value) == target:
			out = append(out, newMatch(req, e, types.MatchExact))
		case containsPhrase(e.value, req.Text), coversContent(e.value, req.Text):
			out = append(out, newMatch(req, e, types.MatchDirect))
		}
	}
	return out
}

// matchEducation compares degree level and field of study.
func matchEducation(req types.Requirement, ev []evidence) []types.QualificationMatch {
	var out []types.QualificationMatch
	target := normalizeText(req.Text)
	wantLevel := degreeLevel(req.Text)
	field := degreeField(req.Text)
	for _, e := range ev {
		if normalizeText(e.value) == target {
			out = append(out, newMatch(req, e, types.MatchExact))
			continue
		}
		have := degreeLevel(e.value)
		if wantLevel == 0 || have < wantLevel {
			continue
		}
		if field == "" || coversContent(e.value, field) {
			out = append(out, newMatch(req, e, types.MatchDirect))
		}
	}
	return out
}

// matchExperience compares required years against employment date spans.
func (m *Matcher) matchExperience(req types.Requirement, r *types.Resume) []types.QualificationMatch {
	want, ok := requiredYears(req.Text)
	if !ok {
		return nil
	}
	now := m.now()
	var spans []span
	var ids []string
	for _, job := range r.WorkHistory {
		if s, ok := parseEmploymentDates(job.JobEmploymentDates, now); ok {
			spans = append(spans, s)
			ids = append(ids, job.JobID)
		}
	}
	got := totalYears(spans)
	if len(spans) == 0 || got < want {
		return nil
	}
	return []types.QualificationMatch{{
		Requirement:         req.Text,
		RequirementCategory: req.Category,
		SourcePath:          "work_history.job_employment_dates",
		SourceValue:         fmt.Sprintf("%.1f years across %s", got, strings.Join(ids, ", ")),
		MatchType:           types.MatchDirect,
	}}
}

func newMatch(req types.Requirement, e evidence, mt types.MatchType) types.QualificationMatch {
	return types.QualificationMatch{
		Requirement:         req.Text,
		RequirementCategory: req.Category,
		SourcePath:          e.path,
		SourceValue:         e.value,
		MatchType:           mt,
	}
}

// sortMatches deduplicates and orders matches by their key.
func sortMatches(in []types.QualificationMatch) []types.QualificationMatch {
	if len(in) == 0 {
		return []types.QualificationMatch{}
	}
	seen := make(map[string]bool, len(in))
	out := make([]types.QualificationMatch, 0, len(in))
	for _, m := range in {
		k := m.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

var degreeLevels = []struct {
	level   int
	markers []string
}{
	{3, []string{"phd", "ph d", "doctorate", "doctoral"}},
	{2, []string{"master", "masters", "msc", "ms", "m s", "ma", "mba", "meng"}},
	{1, []string{"bachelor", "bachelors", "bsc", "bs", "b s", "ba", "b a", "beng", "undergraduate"}},
}

// degreeLevel ranks a degree mention: 1 bachelor, 2 master, 3 doctorate, 0 unknown.
func degreeLevel(s string) int {
	for _, d := range degreeLevels {
		for _, marker := range d.markers {
			if containsPhrase(s, marker) {
				return d.level
			}
		}
	}
	return 0
}

// degreeField extracts the field of study after "in", e.g. "Computer Science".
func degreeField(s string) string {
	i := indexASCIIFold(s, " in ")
	if i < 0 {
		return ""
	}
	field := s[i+4:]
	for _, stop := range []string{" or ", ",", ";", "("} {
		if j := indexASCIIFold(field, stop); j >= 0 {
			field = field[:j]
		}
	}
	return strings.TrimSpace(field)
}

// indexASCIIFold is strings.Index ignoring ASCII case. sub must be ASCII, so
// offsets stay valid in s whatever else it contains.
func indexASCIIFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}
