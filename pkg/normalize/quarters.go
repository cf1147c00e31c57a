// Package normalize rewrites relative quarter phrasing into absolute
// "Q<index>" tokens before a question is parsed.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	nextYearPattern      = regexp.MustCompile(`(?i)\b(q[1-4])(?:\s+of)?\s+(?:next|coming|following)\s+year\b`)
	relativePattern      = regexp.MustCompile(`(?i)\b(next|second|third|fourth)\s+quarter\b`)
	quartersAheadPattern = regexp.MustCompile(`(?i)\bin\s+(\d+)\s+quarters?\b`)
)

var quarterOffsets = map[string]int{
	"next":   1,
	"second": 2,
	"third":  3,
	"fourth": 4,
}

// Quarters rewrites relative quarter references against maxPeriod, the
// highest period index present in the data. Each rule rewrites its first
// match only; text outside a rewritten span keeps its casing.
func Quarters(question string, maxPeriod int) string {
	question = replaceFirst(question, nextYearPattern, func(groups []string) (int, bool) {
		n, err := strconv.Atoi(groups[1][1:])
		if err != nil {
			return 0, false
		}
		return ahead(maxPeriod-maxPeriod%4, n+4)
	})

	question = replaceFirst(question, relativePattern, func(groups []string) (int, bool) {
		offset, ok := quarterOffsets[strings.ToLower(groups[1])]
		if !ok {
			return 0, false
		}
		return ahead(maxPeriod, offset)
	})

	question = replaceFirst(question, quartersAheadPattern, func(groups []string) (int, bool) {
		n, err := strconv.Atoi(groups[1])
		if err != nil {
			return 0, false
		}
		return ahead(maxPeriod, n)
	})

	return question
}

// ahead adds n quarters to base, refusing sums that do not fit an int
func ahead(base, n int) (int, bool) {
	if n < 0 || n > math.MaxInt-base {
		return 0, false
	}
	return base + n, true
}

func replaceFirst(s string, re *regexp.Regexp, index func(groups []string) (int, bool)) string {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	groups := make([]string, len(loc)/2)
	for i := range groups {
		if loc[2*i] >= 0 {
			groups[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	n, ok := index(groups)
	if !ok {
		return s
	}
	return s[:loc[0]] + "Q" + strconv.Itoa(n) + s[loc[1]:]
}
