package refine

import (
	"strings"
	"unicode"

	"github.com/jonathan/resume-refiner/internal/types"
)

// genericWords carry no signal about what a certification or achievement is about
var genericWords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "of": true, "in": true, "for": true,
	"to": true, "with": true, "on": true, "by": true, "at": true, "or": true,
	"certified": true, "certification": true, "certificate": true, "professional": true,
	"associate": true, "license": true, "licensed": true, "level": true, "course": true,
	"program": true, "training": true, "foundation": true, "foundations": true,
	"experience": true, "skills": true, "strong": true, "ability": true, "work": true,
	"team": true, "years": true, "including": true, "using": true,
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

func specificWords(s string) []string {
	var out []string
	for _, w := range words(s) {
		if len(w) > 1 && !genericWords[w] {
			out = append(out, w)
		}
	}
	return out
}

// containsWords reports whether needle's word sequence occurs in haystack.
func containsWords(haystack, needle string) bool {
	h, n := words(haystack), words(needle)
	if len(n) == 0 || len(n) > len(h) {
		return false
	}
outer:
	for i := 0; i+len(n) <= len(h); i++ {
		for j := range n {
			if h[i+j] != n[j] {
				continue outer
			}
		}
		return true
	}
	return false
}

// certRelevance classifies a certification against the job description
type certRelevance int

const (
	certIrrelevant certRelevance = iota
	certAmbiguous
	certRelevant
)

// relevance answers "does this resume item support the job description"
// from the validated matches and the job description text.
type relevance struct {
	requirements []string
	sources      map[string]bool // path + "\x1f" + value for every cited value
	jdWords      map[string]bool
}

func newRelevance(jd *types.JobDescription, matches []types.QualificationMatch) *relevance {
	r := &relevance{sources: make(map[string]bool), jdWords: make(map[string]bool)}
	seen := make(map[string]bool)
	for _, m := range matches {
		r.sources[m.SourcePath+"\x1f"+m.SourceValue] = true
		if !seen[m.Requirement] {
			seen[m.Requirement] = true
			r.requirements = append(r.requirements, m.Requirement)
		}
	}
	if jd != nil {
		texts := []string{jd.JobInfo.JobTitle, jd.JobInfo.AboutRole}
		texts = append(texts, jd.Responsibilities...)
		for _, req := range jd.Requirements() {
			texts = append(texts, req.Text)
		}
		for _, t := range texts {
			for _, w := range specificWords(t) {
				r.jdWords[w] = true
			}
		}
	}
	return r
}

// matched reports whether the value at path backs a matched requirement,
// either as cited evidence or by stating a requirement verbatim.
func (r *relevance) matched(path, text string) bool {
	if r.sources[path+"\x1f"+text] {
		return true
	}
	for _, req := range r.requirements {
		if containsWords(text, req) {
			return true
		}
	}
	return false
}

// cert classifies a certification. Relevant: cited by a match or sharing a
// specific word with the job description. Irrelevant: has specific words and
// none overlap. Ambiguous: nothing specific to judge by.
func (r *relevance) cert(c types.Certification) certRelevance {
	for key := range r.sources {
		if strings.HasSuffix(key, "\x1f"+c.Name) {
			return certRelevant
		}
	}
	for _, s := range c.Skills {
		for key := range r.sources {
			if strings.HasSuffix(key, "\x1f"+s) {
				return certRelevant
			}
		}
	}

	text := c.Name + " " + strings.Join(c.Skills, " ")
	specific := specificWords(text)
	if len(specific) == 0 {
		return certAmbiguous
	}
	for _, w := range specific {
		if r.jdWords[w] {
			return certRelevant
		}
	}
	return certIrrelevant
}

// orderedMatchedFirst reports whether every matched item precedes every
// unmatched one.
func (r *relevance) orderedMatchedFirst(path string, items []string) bool {
	seenUnmatched := false
	for _, a := range items {
		if r.matched(path, a) {
			if seenUnmatched {
				return false
			}
			continue
		}
		seenUnmatched = true
	}
	return true
}
