// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/resume-refiner/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintJobDescription outputs a summary of the structured job description.
func (p *Printer) PrintJobDescription(jd *types.JobDescription) {
	if jd == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", jd.JobInfo.CompanyName))
	sb.WriteString(fmt.Sprintf("Role:     %s\n", jd.JobInfo.JobTitle))

	reqs := jd.Requirements()
	if len(reqs) > 0 {
		sb.WriteString("\nRequirements:\n")
		count := min(len(reqs), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s (%s)\n", reqs[i].Text, reqs[i].Category))
		}
		if len(reqs) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(reqs)-maxItemsToShow))
		}
	}

	p.printBox("JOB DESCRIPTION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResume outputs the sections and positions of a resume record.
func (p *Printer) PrintResume(title string, r *types.Resume) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Candidate: %s\n", r.ContactInfo.Name))
	sb.WriteString(fmt.Sprintf("Sections:  %s\n", strings.Join(r.Sections(), ", ")))

	if len(r.WorkHistory) > 0 {
		sb.WriteString("\nPositions:\n")
		count := min(len(r.WorkHistory), maxItemsToShow)
		for i := 0; i < count; i++ {
			job := r.WorkHistory[i]
			sb.WriteString(fmt.Sprintf("  %s  %s, %s\n", job.JobID, job.JobTitle, job.JobCompany))
			if len(job.JobAchievements) > 0 {
				sb.WriteString(fmt.Sprintf("    first: %s\n", job.JobAchievements[0]))
			}
		}
		if len(r.WorkHistory) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(r.WorkHistory)-maxItemsToShow))
		}
	}

	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMatches outputs confirmed and provisional qualification matches.
func (p *Printer) PrintMatches(confirmed, provisional []types.QualificationMatch) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Confirmed: %d   Provisional: %d\n", len(confirmed), len(provisional)))

	writeMatches := func(label string, matches []types.QualificationMatch) {
		if len(matches) == 0 {
			return
		}
		sb.WriteString(fmt.Sprintf("\n%s:\n", label))
		count := min(len(matches), maxItemsToShow)
		for i := 0; i < count; i++ {
			m := matches[i]
			sb.WriteString(fmt.Sprintf("  • %s ← %s [%s]\n", m.Requirement, m.SourceValue, m.MatchType))
			if m.Certainty != "" {
				sb.WriteString(fmt.Sprintf("    %s: %s\n", m.Certainty, m.ConfidenceReasoning))
			}
		}
		if len(matches) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(matches)-maxItemsToShow))
		}
	}
	writeMatches("Confirmed", confirmed)
	writeMatches("Provisional", provisional)

	p.printBox("QUALIFICATION MATCHES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintIssues outputs the critique of one iteration.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintIssues(iteration int, issues []types.CritiqueIssue) {
	if len(issues) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, fmt.Sprintf("✅ ITERATION %d: NO ISSUES FOUND", iteration))
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d issues:\n\n", len(issues)))
	for i, issue := range issues {
		sb.WriteString(fmt.Sprintf("⚠ %s [%s] %s\n", issue.IssueID, issue.Severity, issue.Category))
		sb.WriteString(fmt.Sprintf("  %s: %s\n", issue.Location, issue.Description))
		if i < len(issues)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(fmt.Sprintf("CRITIQUE (iteration %d)", iteration), sb.String())
}

// Outcome is what PrintOutcome reports about a finished run.
type Outcome struct {
	State       string
	Iterations  int
	ArtifactKey string
	OpenIssues  int
	RunID       string
	Duration    time.Duration
}

// PrintOutcome outputs the terminal state of a run.
func (p *Printer) PrintOutcome(o Outcome) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("State:       %s\n", o.State))
	sb.WriteString(fmt.Sprintf("Iterations:  %d\n", o.Iterations))
	sb.WriteString(fmt.Sprintf("Artifact:    %s\n", o.ArtifactKey))
	if o.OpenIssues > 0 {
		sb.WriteString(fmt.Sprintf("Open issues: %d\n", o.OpenIssues))
	}
	if o.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run:         %s\n", o.RunID))
	}
	if o.Duration > 0 {
		sb.WriteString(fmt.Sprintf("Duration:    %s\n", o.Duration.Round(time.Millisecond)))
	}
	p.printBox("REFINEMENT RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStage outputs a one-line stage status.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintStage(name, status, message string) {
	icon := "…"
	switch status {
	case "completed":
		icon = "✓"
	case "failed":
		icon = "✗"
	}
	if message == "" {
		fmt.Fprintf(p.out, "%s %s\n", icon, name)
		return
	}
	fmt.Fprintf(p.out, "%s %s: %s\n", icon, name, message)
}
