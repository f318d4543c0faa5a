package refine

import (
	"context"
	"fmt"
	"sort"

	"github.com/jonathan/resume-refiner/internal/types"
)

// Reviewer is the deterministic two-pass critic. The structural pass checks
// ordering, schema compliance, pruning and emphasis against the validated
// matches. The fidelity pass checks every candidate value against the raw
// resume text, which wins over the structured record when they disagree.
type Reviewer struct {
	// NearMatchThreshold is the word-overlap ratio above which an ungrounded
	// value counts as a rewording of a record value rather than a fabrication.
	NearMatchThreshold float64
}

// NewReviewer creates the deterministic critic.
func NewReviewer() *Reviewer {
	return &Reviewer{NearMatchThreshold: 0.5}
}

// Critique runs both passes and returns the merged, numbered issue list.
func (rv *Reviewer) Critique(ctx context.Context, in CritiqueInput) ([]types.CritiqueIssue, error) {
	if in.Candidate == nil || in.Record == nil {
		return nil, fmt.Errorf("candidate and record are required")
	}
	rel := newRelevance(in.JobDescription, in.Matches)

	var issues []types.CritiqueIssue
	issues = append(issues, rv.structuralPass(in, rel)...)
	issues = append(issues, rv.fidelityPass(in)...)
	return mergeIssues(issues), nil
}

func (rv *Reviewer) structuralPass(in CritiqueInput, rel *relevance) []types.CritiqueIssue {
	var issues []types.CritiqueIssue
	add := func(cat types.IssueCategory, sev types.Severity, loc, desc, sugg string) {
		issues = append(issues, types.CritiqueIssue{Category: cat, Severity: sev, Location: loc, Description: desc, Suggestion: sugg})
	}
	cand, rec := in.Candidate, in.Record

	recordSections := make(map[string]bool)
	for _, s := range rec.Sections() {
		recordSections[s] = true
	}
	for _, s := range cand.Sections() {
		if !recordSections[s] {
			add(types.IssueStructureCompliance, types.SeverityHigh, s,
				fmt.Sprintf("section %s does not exist in the source record", s),
				"remove sections that are not in the source record")
		}
	}
	if err := cand.Validate(); err != nil {
		add(types.IssueStructureCompliance, types.SeverityHigh, "(root)",
			fmt.Sprintf("candidate is missing required fields: %v", err), "restore required fields from the record")
	}

	recordJobs := make(map[string]bool)
	var recordOrder []string
	for _, j := range rec.WorkHistory {
		recordJobs[j.JobID] = true
		recordOrder = append(recordOrder, j.JobID)
	}
	var candOrder []string
	for _, j := range cand.WorkHistory {
		if recordJobs[j.JobID] {
			candOrder = append(candOrder, j.JobID)
		}
	}
	for _, j := range rec.WorkHistory {
		if cand.Job(j.JobID) == nil {
			add(types.IssueStructureCompliance, types.SeverityHigh, j.JobID,
				fmt.Sprintf("position %s at %s was removed", j.JobID, j.JobCompany), "keep every position from the record")
		}
	}
	if len(candOrder) == len(recordOrder) && !equalStrings(candOrder, recordOrder) {
		add(types.IssueStructureCompliance, types.SeverityMedium, "work_history",
			"work history entries were reordered", "keep positions in their original order")
	}

	for _, job := range cand.WorkHistory {
		path := job.JobID + ".job_achievements"
		if !rel.orderedMatchedFirst(path, job.JobAchievements) {
			add(types.IssueOrdering, types.SeverityMedium, path,
				"achievements backing matched requirements are not listed first", "move matched achievements to the top, keeping their relative order")
		}
	}
	if ps := cand.ProfileSummary; ps != nil {
		path := "profile_summary.professional_highlights"
		if !rel.orderedMatchedFirst(path, ps.ProfessionalHighlights) {
			add(types.IssueOrdering, types.SeverityLow, path,
				"highlights backing matched requirements are not listed first", "move matched highlights to the top")
		}
	}

	for _, rj := range rec.WorkHistory {
		cj := cand.Job(rj.JobID)
		if cj == nil {
			continue
		}
		path := rj.JobID + ".job_achievements"
		have := toSet(cj.JobAchievements)
		for _, a := range rj.JobAchievements {
			if rel.matched(path, a) && !have[a] {
				add(types.IssueMissingEmphasis, types.SeverityHigh, path,
					fmt.Sprintf("matched achievement %q was dropped", describe(a)), "restore achievements that back matched requirements")
			}
		}
	}
	candSkills := make(map[string]bool)
	for _, c := range cand.Skills {
		for _, s := range c.Skills {
			candSkills[s] = true
		}
	}
	for _, c := range rec.Skills {
		path := "skills." + c.Name
		for _, s := range c.Skills {
			if rel.sources[path+"\x1f"+s] && !candSkills[s] {
				add(types.IssueMissingEmphasis, types.SeverityHigh, path,
					fmt.Sprintf("matched skill %q was dropped", s), "restore skills that back matched requirements")
			}
		}
	}

	candCerts := make(map[string]bool)
	for _, c := range cand.CertificationsLicenses {
		candCerts[c.Name] = true
	}
	for _, c := range rec.CertificationsLicenses {
		if candCerts[c.Name] {
			continue
		}
		switch rel.cert(c) {
		case certRelevant:
			add(types.IssueRelevancePruning, types.SeverityHigh, "certifications_licenses",
				fmt.Sprintf("relevant certification %q was removed", c.Name), "restore the certification")
		case certAmbiguous:
			add(types.IssueRelevancePruning, types.SeverityMedium, "certifications_licenses",
				fmt.Sprintf("certification %q was removed although its relevance is unclear", c.Name), "keep certifications when relevance is uncertain")
		}
	}
	return issues
}

func (rv *Reviewer) fidelityPass(in CritiqueInput) []types.CritiqueIssue {
	var issues []types.CritiqueIssue
	cand, rec := in.Candidate, in.Record
	recordTexts := collectTexts(rec)

	critical := func(cat types.IssueCategory, loc, desc, sugg string) {
		issues = append(issues, types.CritiqueIssue{Category: cat, Severity: types.SeverityCritical, Location: loc, Description: desc, Suggestion: sugg})
	}
	check := func(loc, value string, allowed []string) {
		if rv.grounded(value, allowed, in.RawText) {
			return
		}
		if rv.nearMatch(value, recordTexts) {
			critical(types.IssueFidelityViolation, loc,
				fmt.Sprintf("%q rewords the source text", describe(value)), "use the original wording verbatim")
			return
		}
		critical(types.IssueFabrication, loc,
			fmt.Sprintf("%q does not appear in the source resume", describe(value)), "remove content that is not in the source resume")
	}
	protected := func(loc, got, want string) {
		if got != want {
			critical(types.IssueFidelityViolation, loc,
				fmt.Sprintf("protected field changed from %q to %q", want, got), "restore the original value")
		}
	}

	if cand.ContactInfo != rec.ContactInfo {
		critical(types.IssueFidelityViolation, "contact_info", "contact information differs from the source record", "restore contact information unchanged")
	}

	if ps := cand.ProfileSummary; ps != nil {
		var recSummary string
		var recHighlights []string
		if rec.ProfileSummary != nil {
			recSummary = rec.ProfileSummary.ProfessionalSummary
			recHighlights = rec.ProfileSummary.ProfessionalHighlights
		}
		if ps.ProfessionalSummary != "" {
			check("profile_summary.professional_summary", ps.ProfessionalSummary, []string{recSummary})
		}
		for _, h := range ps.ProfessionalHighlights {
			check("profile_summary.professional_highlights", h, recHighlights)
		}
	}

	for _, cj := range cand.WorkHistory {
		rj := rec.Job(cj.JobID)
		if rj == nil {
			critical(types.IssueFabrication, cj.JobID,
				fmt.Sprintf("position %s at %s is not in the source record", cj.JobID, cj.JobCompany), "remove the position")
			continue
		}
		protected(cj.JobID+".job_company", cj.JobCompany, rj.JobCompany)
		protected(cj.JobID+".job_title", cj.JobTitle, rj.JobTitle)
		protected(cj.JobID+".job_employment_dates", cj.JobEmploymentDates, rj.JobEmploymentDates)
		protected(cj.JobID+".job_location", cj.JobLocation, rj.JobLocation)
		protected(cj.JobID+".job_operated_as", cj.JobOperatedAs, rj.JobOperatedAs)
		if cj.JobSummary != "" {
			check(cj.JobID+".job_summary", cj.JobSummary, []string{rj.JobSummary})
		}
		for _, a := range cj.JobAchievements {
			check(cj.JobID+".job_achievements", a, rj.JobAchievements)
		}
		for _, t := range cj.JobTechnologies {
			check(cj.JobID+".job_technologies", t, rj.JobTechnologies)
		}
		for _, s := range cj.JobSkills {
			check(cj.JobID+".job_skills", s, rj.JobSkills)
		}
	}

	var recSkills []string
	for _, c := range rec.Skills {
		recSkills = append(recSkills, c.Skills...)
	}
	for _, c := range cand.Skills {
		for _, s := range c.Skills {
			check("skills."+c.Name, s, recSkills)
		}
	}

	for i, e := range cand.Education {
		loc := fmt.Sprintf("education[%d]", i)
		if containsEducation(rec.Education, e) {
			continue
		}
		if sameInstitution(rec.Education, e.Institution) {
			critical(types.IssueFidelityViolation, loc,
				fmt.Sprintf("education entry for %s differs from the source record", e.Institution), "restore the entry unchanged")
		} else {
			critical(types.IssueFabrication, loc,
				fmt.Sprintf("education entry for %s is not in the source record", e.Institution), "remove the entry")
		}
	}

	recCerts := make(map[string]types.Certification)
	for _, c := range rec.CertificationsLicenses {
		recCerts[c.Name] = c
	}
	for i, c := range cand.CertificationsLicenses {
		loc := fmt.Sprintf("certifications_licenses[%d]", i)
		rc, ok := recCerts[c.Name]
		if !ok {
			critical(types.IssueFabrication, loc,
				fmt.Sprintf("certification %q is not in the source record", c.Name), "remove the certification")
			continue
		}
		protected(loc+".issued_by", c.IssuedBy, rc.IssuedBy)
		protected(loc+".issued_date", c.IssuedDate, rc.IssuedDate)
	}
	return issues
}

// grounded reports whether value appears verbatim in the record field it came
// from, or as a word sequence anywhere in the raw text.
func (rv *Reviewer) grounded(value string, allowed []string, raw string) bool {
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return raw != "" && containsWords(raw, value)
}

// nearMatch reports whether value shares most of its words with a record text.
func (rv *Reviewer) nearMatch(value string, texts []string) bool {
	vw := toSet(specificWords(value))
	if len(vw) == 0 {
		return false
	}
	for _, t := range texts {
		tw := toSet(specificWords(t))
		if len(tw) == 0 {
			continue
		}
		shared := 0
		for w := range vw {
			if tw[w] {
				shared++
			}
		}
		union := len(vw) + len(tw) - shared
		if float64(shared)/float64(union) >= rv.NearMatchThreshold {
			return true
		}
	}
	return false
}

// mergeIssues drops duplicates, orders by severity (stable), and numbers ids.
func mergeIssues(in []types.CritiqueIssue) []types.CritiqueIssue {
	seen := make(map[string]bool)
	out := make([]types.CritiqueIssue, 0, len(in))
	for _, issue := range in {
		key := string(issue.Category) + "\x1f" + issue.Location + "\x1f" + issue.Description
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, issue)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return severityRank(out[i].Severity) < severityRank(out[j].Severity)
	})
	for i := range out {
		out[i].IssueID = fmt.Sprintf("%03d", i+1)
	}
	return out
}

func severityRank(s types.Severity) int {
	switch s {
	case types.SeverityCritical:
		return 0
	case types.SeverityHigh:
		return 1
	case types.SeverityMedium:
		return 2
	default:
		return 3
	}
}

func collectTexts(r *types.Resume) []string {
	var out []string
	if ps := r.ProfileSummary; ps != nil {
		out = append(out, ps.ProfessionalSummary)
		out = append(out, ps.ProfessionalHighlights...)
	}
	for _, j := range r.WorkHistory {
		out = append(out, j.JobSummary)
		out = append(out, j.JobAchievements...)
		out = append(out, j.JobTechnologies...)
		out = append(out, j.JobSkills...)
	}
	for _, c := range r.Skills {
		out = append(out, c.Skills...)
	}
	return out
}

func containsEducation(list []types.Education, e types.Education) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}

func sameInstitution(list []types.Education, institution string) bool {
	for _, x := range list {
		if x.Institution == institution {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
