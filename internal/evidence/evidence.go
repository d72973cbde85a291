// Package evidence implements the Assumption Evidence Validator (spec
// §4.3): every AssumedInput an LLM proposer surfaces must carry
// complete, well-formed evidence metadata before Invariant Discovery
// treats it as valid, since an assumption with no evidence trail would
// let a verdict rest on something nobody can audit.
package evidence

import (
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/go-playground/validator/v10"

	"github.com/argusverify/argus/internal/model"
)

var structValidator = validator.New()

// Issue is one defect found in a single AssumedInput. Property echoes
// the assumption's property field ("<empty>" when the property itself
// is what's missing) so a human reading the discovery trace can match
// an issue back to its assumption even when the property is the thing
// that's wrong.
type Issue struct {
	Property string `json:"property"`
	Message  string `json:"message"`
}

// Validate checks every assumption in assumptions for complete
// evidence metadata. It returns (true, nil) only when every assumption
// passes every check; an empty or nil assumptions slice is trivially
// valid (Invariant Discovery may propose none).
func Validate(assumptions []model.AssumedInput) (bool, []Issue) {
	var issues []Issue
	seenProperty := make(map[string]bool, len(assumptions))

	for _, a := range assumptions {
		property := a.Property
		if property == "" {
			property = "<empty>"
			issues = append(issues, Issue{Property: property, Message: "Missing property"})
			continue
		}

		if seenProperty[a.Property] {
			issues = append(issues, Issue{Property: property, Message: "Duplicate assumption property"})
		}
		seenProperty[a.Property] = true

		if !model.AllowedSourceTypes[a.SourceType] {
			issues = append(issues, Issue{Property: property, Message: fmt.Sprintf("Unsupported source_type %q", a.SourceType)})
		}
		if a.Justification == "" {
			issues = append(issues, Issue{Property: property, Message: "Missing justification"})
		}
		if a.SourceRef == "" {
			issues = append(issues, Issue{Property: property, Message: "Missing source_ref"})
		}
		if a.EvidenceID == "" {
			issues = append(issues, Issue{Property: property, Message: "Missing evidence_id"})
		} else if err := structValidator.Var(a.EvidenceID, "required"); err == nil {
			validateEvidenceIDFormat(a.EvidenceID, property, &issues)
		}
	}

	return len(issues) == 0, issues
}

// validateEvidenceIDFormat flags an evidence_id that isn't a
// well-formed UUID. This is stricter than the original Python
// validator (which accepts any non-blank string) — SPEC_FULL.md's
// domain-stack table names go-openapi/strfmt for checking evidence_id
// as a UUID-shaped string. Malformed IDs are reported as an issue rather than
// silently accepted.
func validateEvidenceIDFormat(evidenceID, property string, issues *[]Issue) {
	if !strfmt.IsUUID(evidenceID) {
		*issues = append(*issues, Issue{Property: property, Message: "evidence_id is not a well-formed UUID"})
	}
}
