package model

import "testing"

import "github.com/stretchr/testify/require"

func TestCanonicalHashDeterministic(t *testing.T) {
	obligations := []Obligation{
		NewObligation("withdraw:non_negative_result", "withdraw(...) >= 0", CategoryNonNegativity, "desc", SeverityCritical),
		NewObligation("withdraw:bounds_safe_access", "bounds ok", CategoryBounds, "desc", SeverityCritical),
	}

	first, err := CanonicalHash(obligations)
	require.NoError(t, err)

	reversed := []Obligation{obligations[1], obligations[0]}
	second, err := CanonicalHash(reversed)
	require.NoError(t, err)

	require.Equal(t, first, second, "hash must not depend on input ordering")

	third, err := CanonicalHash(obligations)
	require.NoError(t, err)
	require.Equal(t, first, third, "hash must be stable across invocations")
}

func TestSeverityAtLeast(t *testing.T) {
	require.True(t, SeverityCritical.AtLeast(SeverityHigh))
	require.False(t, SeverityLow.AtLeast(SeverityHigh))
	require.True(t, SeverityHigh.AtLeast(SeverityHigh))
}

func TestVerdictPassing(t *testing.T) {
	require.True(t, VerdictVerified.Passing())
	require.True(t, VerdictFixed.Passing())
	require.False(t, VerdictVulnerable.Passing())
}

func TestAllObligationsPassedEmptyIsFalse(t *testing.T) {
	s := VerificationSummary{}
	require.False(t, s.AllObligationsPassed())
}
