package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Period is a canonical time-bucket code such as "q1" or "sum value"
type Period string

const (
	PeriodQ1    Period = "q1"
	PeriodQ2    Period = "q2"
	PeriodQ3    Period = "q3"
	PeriodQ4    Period = "q4"
	PeriodQ5    Period = "q5" // next cycle
	PeriodTotal Period = "sum value"
)

// KnownPeriods lists the observed quarters in series order
var KnownPeriods = []Period{PeriodQ1, PeriodQ2, PeriodQ3, PeriodQ4}

// IsValid reports whether p is one of the canonical period codes
func (p Period) IsValid() bool {
	switch p {
	case PeriodQ1, PeriodQ2, PeriodQ3, PeriodQ4, PeriodQ5, PeriodTotal:
		return true
	}
	return false
}

// Label returns the display token, e.g. "Q3"
func (p Period) Label() string {
	return strings.ToUpper(string(p))
}

// Index returns the numeric part of a "q<N>" period
func (p Period) Index() (int, error) {
	s := string(p)
	if !strings.HasPrefix(s, "q") {
		return 0, fmt.Errorf("period %q has no quarter index", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, fmt.Errorf("period %q has no quarter index: %w", s, err)
	}
	return n, nil
}

// QuarterPeriod builds the "q<N>" period for index n
func QuarterPeriod(n int) Period {
	return Period("q" + strconv.Itoa(n))
}
