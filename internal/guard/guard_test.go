package guard

import (
	"context"
	"testing"

	"github.com/argusverify/argus/internal/model"
	"github.com/stretchr/testify/require"
)

func TestRunPassesWithWellFormedArtifact(t *testing.T) {
	src := []byte("def withdraw(balance, amount):\n    return balance - amount\n")
	artifact := "def withdraw (balance : Int) (amount : Int) : Int :=\n  (balance - amount)\n\ntheorem withdraw_non_negative_result : True := by\n  trivial\n  -- OBLIGATION: withdraw(...) >= 0\n"
	obligations := []model.Obligation{
		model.NewObligation("withdraw:non_negative_result", "withdraw(...) >= 0", model.CategoryNonNegativity, "d", model.SeverityCritical),
	}
	result := Run(context.Background(), src, artifact, obligations)
	require.True(t, result.Passed)
	require.Empty(t, result.Issues)
}

func TestRunFlagsSorryOutsideComments(t *testing.T) {
	src := []byte("def withdraw(balance, amount):\n    return balance - amount\n")
	artifact := "def withdraw (balance : Int) (amount : Int) : Int := balance - amount\n\ntheorem withdraw_ok : True := by sorry\n"
	obligations := []model.Obligation{
		model.NewObligation("withdraw:non_negative_result", "withdraw(...) >= 0", model.CategoryNonNegativity, "d", model.SeverityCritical),
	}
	result := Run(context.Background(), src, artifact, obligations)
	require.False(t, result.Passed)
	require.Contains(t, issueCodes(result.Issues), "PROOF_SORRY")
}

func TestRunIgnoresSorryMentionedOnlyInAComment(t *testing.T) {
	src := []byte("def withdraw(balance, amount):\n    return balance - amount\n")
	artifact := "def withdraw (balance : Int) (amount : Int) : Int := balance - amount\n\ntheorem withdraw_non_negative_result : True := by\n  trivial\n  -- OBLIGATION: withdraw(...) >= 0\n  -- do not use sorry here\n"
	obligations := []model.Obligation{
		model.NewObligation("withdraw:non_negative_result", "withdraw(...) >= 0", model.CategoryNonNegativity, "d", model.SeverityCritical),
	}
	result := Run(context.Background(), src, artifact, obligations)
	require.NotContains(t, issueCodes(result.Issues), "PROOF_SORRY")
}

func TestRunFlagsMissingFunctionSymbol(t *testing.T) {
	src := []byte("def withdraw(balance, amount):\n    return balance - amount\n")
	artifact := "def deposit (balance : Int) : Int := balance\n"
	result := Run(context.Background(), src, artifact, nil)
	require.False(t, result.Passed)
	codes := issueCodes(result.Issues)
	require.Contains(t, codes, "MISSING_FUNCTION_SYMBOL")
	require.Contains(t, codes, "NO_OBLIGATIONS")
}

func TestRunFlagsWeakEncodingPerCategory(t *testing.T) {
	src := []byte("def f(items, balance):\n    return balance\n")
	artifact := "def f (items : Int) (balance : Int) : Int := balance\n"
	obligations := []model.Obligation{
		model.NewObligation("f:non_negative_result", "f(...) >= 0", model.CategoryNonNegativity, "d", model.SeverityCritical),
		model.NewObligation("f:bounds_safe_access", "All index operations are bounds-safe", model.CategoryBounds, "d", model.SeverityCritical),
		model.NewObligation("f:preserve_uniqueness", "Collection updates preserve uniqueness where required", model.CategoryUniqueness, "d", model.SeverityHigh),
	}
	result := Run(context.Background(), src, artifact, obligations)
	codes := issueCodes(result.Issues)
	require.Contains(t, codes, "WEAK_NONNEG_ENCODING")
	require.Contains(t, codes, "WEAK_BOUNDS_ENCODING")
	require.Contains(t, codes, "WEAK_UNIQUENESS_ENCODING")
}

func issueCodes(issues []Issue) []string {
	codes := make([]string, len(issues))
	for i, issue := range issues {
		codes[i] = issue.Code
	}
	return codes
}
