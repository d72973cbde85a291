package verdict

import (
	"testing"

	"github.com/argusverify/argus/internal/model"
	"github.com/stretchr/testify/require"
)

func passingObligationResults() []model.ObligationResult {
	return []model.ObligationResult{
		{Obligation: model.NewObligation("f:non_negative_result", "f(...) >= 0", model.CategoryNonNegativity, "d", model.SeverityCritical), Verified: true},
	}
}

func TestComputePrioritizesVerificationError(t *testing.T) {
	summary := model.VerificationSummary{
		VerificationError:     true,
		UnsupportedConstructs: []string{"async_function"},
	}
	decision := Compute(summary)
	require.Equal(t, model.VerdictError, decision.Verdict)
}

func TestComputeUnsupportedConstructsBeatsEverythingElse(t *testing.T) {
	summary := model.VerificationSummary{
		UnsupportedConstructs: []string{"class_definition", "async_function"},
		AssumptionsValid:      false,
		SemanticGuardPassed:   false,
	}
	decision := Compute(summary)
	require.Equal(t, model.VerdictUnverified, decision.Verdict)
	require.Contains(t, decision.Reason, "async_function, class_definition")
}

func TestComputeUnverifiedOnBadAssumptions(t *testing.T) {
	summary := model.VerificationSummary{AssumptionsValid: false, ObligationResults: passingObligationResults()}
	decision := Compute(summary)
	require.Equal(t, model.VerdictUnverified, decision.Verdict)
	require.Equal(t, "Assumption evidence validation failed", decision.Reason)
}

func TestComputeUnverifiedOnFailedGuard(t *testing.T) {
	summary := model.VerificationSummary{AssumptionsValid: true, SemanticGuardPassed: false, ObligationResults: passingObligationResults()}
	decision := Compute(summary)
	require.Equal(t, model.VerdictUnverified, decision.Verdict)
}

func TestComputeVerifiedWhenAllObligationsPass(t *testing.T) {
	summary := model.VerificationSummary{
		AssumptionsValid:    true,
		SemanticGuardPassed: true,
		ObligationResults:   passingObligationResults(),
	}
	decision := Compute(summary)
	require.Equal(t, model.VerdictVerified, decision.Verdict)
}

func TestComputeFixedWhenRepairedAndAllObligationsPass(t *testing.T) {
	summary := model.VerificationSummary{
		AssumptionsValid:    true,
		SemanticGuardPassed: true,
		ObligationResults:   passingObligationResults(),
		Repaired:            true,
	}
	decision := Compute(summary)
	require.Equal(t, model.VerdictFixed, decision.Verdict)
}

func TestComputeVulnerableWhenAnObligationFails(t *testing.T) {
	summary := model.VerificationSummary{
		AssumptionsValid:    true,
		SemanticGuardPassed: true,
		ObligationResults: []model.ObligationResult{
			{Obligation: model.NewObligation("f:non_negative_result", "f(...) >= 0", model.CategoryNonNegativity, "d", model.SeverityCritical), Verified: false},
		},
	}
	decision := Compute(summary)
	require.Equal(t, model.VerdictVulnerable, decision.Verdict)
}

func TestComputeVulnerableWhenNoObligationsRecorded(t *testing.T) {
	summary := model.VerificationSummary{AssumptionsValid: true, SemanticGuardPassed: true}
	decision := Compute(summary)
	require.Equal(t, model.VerdictVulnerable, decision.Verdict)
}
