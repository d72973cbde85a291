package model

// ObligationCategory classifies the kind of safety property an
// Obligation encodes. The Obligation Policy (spec §4.1) only ever
// emits these five categories.
type ObligationCategory string

const (
	CategoryNonNegativity ObligationCategory = "non_negativity"
	CategoryBounds        ObligationCategory = "bounds"
	CategoryUniqueness    ObligationCategory = "uniqueness"
	CategoryLoopInvariant ObligationCategory = "loop_invariant"
	CategoryStateTransition ObligationCategory = "state_transition"
)

// Obligation is an immutable, policy-derived, canonically hashed safety
// property a verifier must discharge. The Obligation Policy is the only
// producer; every later stage treats Obligation as read-only.
type Obligation struct {
	ID          string             `json:"id"`
	Property    string             `json:"property"`
	Category    ObligationCategory `json:"category"`
	Description string             `json:"description"`
	Severity    Severity           `json:"severity"`
	Source      string             `json:"source"`
}

// NewObligation fills in the default severity (high) and source
// ("policy") used throughout spec §4.1's obligation table, letting
// callers override only what differs.
func NewObligation(id, property string, category ObligationCategory, description string, severity Severity) Obligation {
	if severity == "" {
		severity = SeverityHigh
	}
	return Obligation{
		ID:          id,
		Property:    property,
		Category:    category,
		Description: description,
		Severity:    severity,
		Source:      "policy",
	}
}

// AssumedInputSourceType enumerates where an assumed input's evidence
// came from. The Assumption Evidence Validator (spec §4.3) rejects any
// value outside this set.
type AssumedInputSourceType string

const (
	SourceTypeAPISchema    AssumedInputSourceType = "api_schema"
	SourceTypeDBConstraint AssumedInputSourceType = "db_constraint"
	SourceTypeValidator    AssumedInputSourceType = "validator"
	SourceTypePolicy       AssumedInputSourceType = "policy"
	SourceTypeRuntimeGuard AssumedInputSourceType = "runtime_guard"
)

// AllowedSourceTypes is the fixed set of source types the evidence
// validator recognizes (spec §4.3).
var AllowedSourceTypes = map[AssumedInputSourceType]bool{
	SourceTypeAPISchema:    true,
	SourceTypeDBConstraint: true,
	SourceTypeValidator:    true,
	SourceTypePolicy:       true,
	SourceTypeRuntimeGuard: true,
}

// AssumedInput is an immutable precondition proposed by the LLM
// proposer, admitted only once it carries complete evidence metadata.
// It is never produced by the deterministic policy and never consulted
// by the Verdict Contract directly — only its validity (validated by
// the Assumption Evidence Validator) feeds the verdict.
type AssumedInput struct {
	Property     string                 `json:"property" validate:"required"`
	Description  string                 `json:"description"`
	Justification string                `json:"justification" validate:"required"`
	SourceType   AssumedInputSourceType `json:"source_type" validate:"required"`
	SourceRef    string                 `json:"source_ref" validate:"required"`
	EvidenceID   string                 `json:"evidence_id" validate:"required"`
	Severity     Severity               `json:"severity"`
}

// ObligationResult pairs an Obligation with the outcome of checking it
// against a particular verifier invocation. One is emitted per
// obligation per verification (spec §3); all results from a single
// verifier call share that call's verified flag, since the engines
// prove the artifact as a whole (spec §4.7).
type ObligationResult struct {
	Obligation Obligation `json:"obligation"`
	Verified  bool        `json:"verified"`
	Engine    string      `json:"engine"`
	Message   string      `json:"message"`
}
