package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const resumeJSON = `{
  "contact_info": {"name": "Ada Lovelace", "email": "ada@example.com"},
  "work_history": [
    {"job_company": "Analytical Engines", "job_title": "Backend Engineer", "job_employment_dates": "2019 - Present",
     "job_achievements": ["Organized team lunches", "Built REST APIs in Python"], "job_technologies": ["Python", "PostgreSQL"]}
  ],
  "skills": {"Languages": ["Python", "Go"]}
}`

const jobJSON = `{
  "job_info": {"company_name": "Acme", "job_title": "Backend Engineer"},
  "responsibilities": ["Operate services on AWS"],
  "qualifications": {"required": {"technical_skills": ["Python"]}}
}`

// writeFile writes content to name in a per-test temp dir and returns the path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the CLI in-process and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
