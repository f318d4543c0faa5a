// Package ingestion turns raw resume and job description documents into
// validated structured records in the session.
package ingestion

import "strings"

// CleanText normalizes line endings and whitespace while keeping the line
// structure the extractor and the fidelity review rely on. Headings lose
// their indentation, bullets and other lines keep it, runs of spaces inside
// ordinary lines collapse, and at most one blank line separates blocks.
func CleanText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	var b strings.Builder
	blank := false
	for _, line := range strings.Split(content, "\n") {
		line = cleanLine(line)
		if line == "" {
			blank = b.Len() > 0
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
			if blank {
				b.WriteByte('\n')
			}
		}
		blank = false
		b.WriteString(line)
	}
	return b.String()
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	body := strings.TrimLeft(line, " \t")
	if body == "" {
		return ""
	}
	indent := strings.Repeat(" ", len(line)-len(body))

	switch {
	case strings.HasPrefix(body, "#"):
		return body
	case strings.HasPrefix(body, "- "), strings.HasPrefix(body, "* "):
		return indent + body
	default:
		return indent + strings.Join(strings.Fields(body), " ")
	}
}
