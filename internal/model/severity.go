// Package model holds the data types shared across every Argus pipeline
// stage: severities, verdicts, obligations, assumed inputs, and the
// summaries/outcomes that stages exchange. Types here are immutable once
// constructed; stages read them, they never mutate them in place.
package model

// Severity is an ordered enumeration of obligation/finding severities.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

var severityOrder = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:      1,
	SeverityMedium:    2,
	SeverityLow:       3,
}

// Valid reports whether s is one of the four recognized severities.
func (s Severity) Valid() bool {
	_, ok := severityOrder[s]
	return ok
}

// AtLeast reports whether s is at least as severe as threshold (lower
// ordinal = more severe).
func (s Severity) AtLeast(threshold Severity) bool {
	sv, ok := severityOrder[s]
	if !ok {
		return false
	}
	tv, ok := severityOrder[threshold]
	if !ok {
		return false
	}
	return sv <= tv
}

// ParseSeverity coerces a free-form string into a Severity, defaulting to
// medium for anything unrecognized. Used by Invariant Discovery (spec
// §4.2) when an LLM proposer supplies a severity that doesn't match one
// of the four known values.
func ParseSeverity(s string) Severity {
	candidate := Severity(s)
	if candidate.Valid() {
		return candidate
	}
	return SeverityMedium
}
