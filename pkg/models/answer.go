package models

import "time"

// Intent is the handler chosen for a question
type Intent string

const (
	IntentLookup     Intent = "lookup"
	IntentForecast   Intent = "forecast"
	IntentYesNo      Intent = "yes_no"
	IntentGrowth     Intent = "growth"
	IntentComparison Intent = "comparison"
	IntentFallback   Intent = "fallback"
)

// FailureKind classifies an unsuccessful answer
type FailureKind string

const (
	FailureNone              FailureKind = ""
	FailureTopic             FailureKind = "unknown_topic"
	FailurePeriod            FailureKind = "unknown_period"
	FailureNotFound          FailureKind = "not_found"
	FailureInvalid           FailureKind = "invalid_data"
	FailureNoModel           FailureKind = "no_model"
	FailureUnsupportedPeriod FailureKind = "unsupported_period"
)

// FailureMarker prefixes every failure message
const FailureMarker = "❌"

// Answer is the structured result of one question
type Answer struct {
	Question   string      `json:"question"`
	Normalized string      `json:"normalized"`
	Text       string      `json:"answer"`
	Intent     Intent      `json:"intent"`
	Failure    FailureKind `json:"failure,omitempty"`
	Entity     string      `json:"entity,omitempty"`
	Periods    []Period    `json:"periods,omitempty"`
}

// Failed reports whether the answer carries a failure
func (a *Answer) Failed() bool {
	return a.Failure != FailureNone
}

// Outcome is the metric label for the answer
func (a *Answer) Outcome() string {
	if a.Failure == FailureNone {
		return "ok"
	}
	return string(a.Failure)
}

// QueryRecord is a persisted answered question
type QueryRecord struct {
	ID         string      `json:"id"`
	Question   string      `json:"question"`
	Normalized string      `json:"normalized"`
	Answer     string      `json:"answer"`
	Intent     Intent      `json:"intent"`
	Failure    FailureKind `json:"failure,omitempty"`
	Entity     string      `json:"entity,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// AskRequest is the body of POST /api/ask
type AskRequest struct {
	Question string `json:"question"`
}
