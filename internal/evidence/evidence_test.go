package evidence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/argusverify/argus/internal/model"
)

func validAssumption() model.AssumedInput {
	return model.AssumedInput{
		Property:      "amount",
		Description:   "amount is validated upstream",
		Justification: "API schema enforces amount >= 0",
		SourceType:    model.SourceTypeAPISchema,
		SourceRef:     "openapi.yaml#/components/schemas/Withdraw",
		EvidenceID:    "3fa85f64-5717-4562-b3fc-2c963f66afa6",
		Severity:      model.SeverityMedium,
	}
}

func TestValidateAcceptsCompleteAssumption(t *testing.T) {
	valid, issues := Validate([]model.AssumedInput{validAssumption()})
	require.True(t, valid)
	require.Empty(t, issues)
}

func TestValidateFlagsMissingProperty(t *testing.T) {
	a := validAssumption()
	a.Property = ""
	valid, issues := Validate([]model.AssumedInput{a})
	require.False(t, valid)
	require.Len(t, issues, 1)
	require.Equal(t, "<empty>", issues[0].Property)
}

func TestValidateFlagsDuplicateProperty(t *testing.T) {
	a := validAssumption()
	valid, issues := Validate([]model.AssumedInput{a, a})
	require.False(t, valid)
	found := false
	for _, issue := range issues {
		if issue.Message == "Duplicate assumption property" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateFlagsUnsupportedSourceType(t *testing.T) {
	a := validAssumption()
	a.SourceType = "guesswork"
	valid, issues := Validate([]model.AssumedInput{a})
	require.False(t, valid)
	require.Contains(t, issues[0].Message, "Unsupported source_type")
}

func TestValidateFlagsBlankFields(t *testing.T) {
	a := validAssumption()
	a.Justification = ""
	a.SourceRef = ""
	a.EvidenceID = ""
	valid, issues := Validate([]model.AssumedInput{a})
	require.False(t, valid)
	require.Len(t, issues, 3)
}

func TestValidateFlagsMalformedEvidenceID(t *testing.T) {
	a := validAssumption()
	a.EvidenceID = "not-a-uuid"
	valid, issues := Validate([]model.AssumedInput{a})
	require.False(t, valid)
	require.Contains(t, issues[0].Message, "UUID")
}

func TestValidateEmptyIsValid(t *testing.T) {
	valid, issues := Validate(nil)
	require.True(t, valid)
	require.Empty(t, issues)
}
