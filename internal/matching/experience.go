package matching

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	yearPattern     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	presentPattern  = regexp.MustCompile(`(?i)\b(present|current|now|today)\b`)
	minYearsPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	monthPattern    = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+((?:19|20)\d{2})\b`)
)

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

type span struct {
	start, end int // months since year 0
}

// parseEmploymentDates parses strings like "Jan 2018 - Mar 2021",
// "2015 - Present" or "2019-2021" into a month span. ok is false when the
// string has no recognizable start year.
func parseEmploymentDates(s string, now time.Time) (span, bool) {
	type point struct {
		pos   int
		month int
	}
	var points []point

	claimed := make(map[int]bool)
	for _, m := range monthPattern.FindAllStringSubmatchIndex(s, -1) {
		mon := monthIndex[strings.ToLower(s[m[2] : m[2]+3])]
		year, _ := strconv.Atoi(s[m[4]:m[5]])
		points = append(points, point{pos: m[0], month: year*12 + int(mon) - 1})
		claimed[m[4]] = true
	}
	for _, m := range yearPattern.FindAllStringIndex(s, -1) {
		if claimed[m[0]] {
			continue
		}
		year, _ := strconv.Atoi(s[m[0]:m[1]])
		points = append(points, point{pos: m[0], month: year * 12})
	}
	if loc := presentPattern.FindStringIndex(s); loc != nil {
		points = append(points, point{pos: loc[0], month: now.Year()*12 + int(now.Month()) - 1})
	}
	if len(points) == 0 {
		return span{}, false
	}
	sort.Slice(points, func(i, j int) bool { return points[i].pos < points[j].pos })

	start := points[0].month
	end := start + 12 // a lone year counts as one year
	if len(points) > 1 {
		end = points[len(points)-1].month
	}
	if end < start {
		return span{}, false
	}
	return span{start: start, end: end}, true
}

// totalYears merges overlapping spans and returns the covered years.
func totalYears(spans []span) float64 {
	if len(spans) == 0 {
		return 0
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	months := 0
	cur := spans[0]
	for _, s := range spans[1:] {
		if s.start <= cur.end {
			if s.end > cur.end {
				cur.end = s.end
			}
			continue
		}
		months += cur.end - cur.start
		cur = s
	}
	months += cur.end - cur.start
	return float64(months) / 12
}

// requiredYears extracts the minimum number of years from text like "5+" or
// "3-5 years". ok is false when no number is present.
func requiredYears(s string) (float64, bool) {
	m := minYearsPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
