// Package verdict implements the Verdict Contract (spec §4.9): a pure
// function reducing a VerificationSummary to exactly one of the five
// terminal verdicts, evaluated in a fixed, fail-closed order. No stage
// upstream of this package ever assigns a verdict itself.
package verdict

import (
	"sort"
	"strings"

	"github.com/argusverify/argus/internal/model"
)

// Decision is the Verdict Contract's output: a terminal Verdict and
// the human-readable reason it was reached.
type Decision struct {
	Verdict model.Verdict `json:"verdict"`
	Reason  string        `json:"reason"`
}

// Compute applies the fixed evaluation order: verifier/runtime errors
// first, then unsupported constructs, then assumption evidence, then
// the semantic guard, then the obligation results themselves. Each
// check fails closed to UNVERIFIED or ERROR rather than falling
// through to VULNERABLE, so a tooling gap never gets silently
// classified as "proven safe" or "proven unsafe".
func Compute(summary model.VerificationSummary) Decision {
	if summary.VerificationError {
		return Decision{model.VerdictError, "Verification runtime/tooling error"}
	}

	if len(summary.UnsupportedConstructs) > 0 {
		sorted := append([]string(nil), summary.UnsupportedConstructs...)
		sort.Strings(sorted)
		return Decision{model.VerdictUnverified, "Unsupported constructs encountered: " + strings.Join(sorted, ", ")}
	}

	if !summary.AssumptionsValid {
		return Decision{model.VerdictUnverified, "Assumption evidence validation failed"}
	}

	if !summary.SemanticGuardPassed {
		return Decision{model.VerdictUnverified, "Semantic guard checks failed"}
	}

	if summary.AllObligationsPassed() {
		if summary.Repaired {
			return Decision{model.VerdictFixed, "All obligations passed after repair"}
		}
		return Decision{model.VerdictVerified, "All obligations passed"}
	}

	return Decision{model.VerdictVulnerable, "One or more canonical obligations failed"}
}
