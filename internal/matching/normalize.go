package matching

import (
	"strings"
	"unicode"
)

// skillAliases maps common skill name variants to a canonical lowercase form
var skillAliases = map[string]string{
	"golang":                 "go",
	"go lang":                "go",
	"javascript":             "javascript",
	"js":                     "javascript",
	"ecmascript":             "javascript",
	"typescript":             "typescript",
	"ts":                     "typescript",
	"k8s":                    "kubernetes",
	"react.js":               "react",
	"reactjs":                "react",
	"vue.js":                 "vue",
	"vuejs":                  "vue",
	"node":                   "node.js",
	"nodejs":                 "node.js",
	"postgres":               "postgresql",
	"psql":                   "postgresql",
	"python3":                "python",
	"python 3":               "python",
	"html5":                  "html",
	"css3":                   "css",
	"ci cd":                  "ci/cd",
	"ci/cd pipelines":        "ci/cd",
	"continuous integration": "ci/cd",
	"amazon web services":    "aws",
	"google cloud":           "gcp",
	"google cloud platform":  "gcp",
	"ml":                     "machine learning",
	"statistical analysis":   "statistics",
	"shell scripting":        "scripting",
	"bash scripting":         "scripting",
	"team leadership":        "leadership",
}

// stopWords are ignored when comparing narrative text
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "or": true, "the": true, "of": true,
	"in": true, "on": true, "with": true, "for": true, "to": true, "at": true,
	"by": true, "as": true, "is": true, "be": true, "experience": true,
	"knowledge": true, "understanding": true, "strong": true, "proven": true,
	"ability": true, "skills": true, "skill": true, "familiarity": true,
	"working": true, "solid": true, "excellent": true, "using": true,
}

// normalizeText lowercases and collapses whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// canonicalSkill maps a skill to its canonical lowercase form.
func canonicalSkill(s string) string {
	n := normalizeText(s)
	if c, ok := skillAliases[n]; ok {
		return c
	}
	return n
}

// tokenize splits text into lowercase word tokens. '+' and '#' stay inside a
// token so "c++" and "c#" are not reduced to "c".
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

// contentWords returns tokens with stop words removed.
func contentWords(s string) []string {
	var out []string
	for _, tok := range tokenize(s) {
		if !stopWords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// containsPhrase reports whether the token sequence of needle occurs in haystack.
func containsPhrase(haystack, needle string) bool {
	h := tokenize(haystack)
	n := tokenize(needle)
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

// coversContent reports whether every content word of needle appears in haystack.
func coversContent(haystack, needle string) bool {
	words := contentWords(needle)
	if len(words) == 0 {
		return false
	}
	have := make(map[string]bool)
	for _, tok := range tokenize(haystack) {
		have[tok] = true
	}
	for _, w := range words {
		if !have[w] {
			return false
		}
	}
	return true
}

// skillEquivalent reports whether requirement and value name the same skill:
// same canonical alias, or one contains the other as a whole phrase.
func skillEquivalent(requirement, value string) bool {
	cr, cv := canonicalSkill(requirement), canonicalSkill(value)
	if cr == "" || cv == "" {
		return false
	}
	if cr == cv {
		return true
	}
	return containsPhrase(cr, cv) || containsPhrase(cv, cr)
}

// mentionsSkill reports whether requirement text names skill, allowing aliases.
func mentionsSkill(requirement, skill string) bool {
	if canonicalSkill(requirement) == skill || containsPhrase(requirement, skill) {
		return true
	}
	for alias, canonical := range skillAliases {
		if canonical == skill && containsPhrase(requirement, alias) {
			return true
		}
	}
	return false
}
