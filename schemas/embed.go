// Package schemas embeds the JSON Schemas for every artifact the pipeline
// reads or writes.
package schemas

import "embed"

// Schema file names
const (
	Resume               = "resume.schema.json"
	JobDescription       = "job_description.schema.json"
	QualificationMatches = "qualification_matches.schema.json"
	CritiqueIssues       = "critique_issues.schema.json"
)

// FS holds the schema files.
//
//go:embed *.schema.json
var FS embed.FS

// All lists the embedded schema names.
func All() []string {
	return []string{Resume, JobDescription, QualificationMatches, CritiqueIssues}
}
