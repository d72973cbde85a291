package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/argusverify/argus/internal/model"
)

type fakeLLMClient struct {
	response string
	err      error
}

func (f fakeLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func TestDiscoverWithoutLLMHasNoAssumptionsAndIsValid(t *testing.T) {
	src := []byte("def withdraw(balance, amount):\n    return balance - amount\n")
	result, err := Discover(context.Background(), nil, true, src)
	require.NoError(t, err)
	require.Empty(t, result.AssumedInputs)
	require.True(t, result.AssumptionsValid)
	require.NotEmpty(t, result.Obligations)
}

func TestDiscoverParsesFencedProposal(t *testing.T) {
	client := fakeLLMClient{response: "```json\n" +
		`[{"property":"amount","description":"validated upstream","justification":"schema enforces amount>=0","source_type":"api_schema","source_ref":"openapi.yaml","evidence_id":"3fa85f64-5717-4562-b3fc-2c963f66afa6"}]` +
		"\n```"}

	src := []byte("def withdraw(balance, amount):\n    return balance - amount\n")
	result, err := Discover(context.Background(), client, true, src)
	require.NoError(t, err)
	require.Len(t, result.AssumedInputs, 1)
	require.Equal(t, model.SourceTypeAPISchema, result.AssumedInputs[0].SourceType)
	require.True(t, result.AssumptionsValid)
}

func TestDiscoverTreatsMalformedProposalAsNoAssumptions(t *testing.T) {
	client := fakeLLMClient{response: "not json at all"}
	src := []byte("def withdraw(balance, amount):\n    return balance - amount\n")
	result, err := Discover(context.Background(), client, true, src)
	require.NoError(t, err)
	require.Empty(t, result.AssumedInputs)
	require.True(t, result.AssumptionsValid)
}

func TestDiscoverSkipsLLMWhenDisabled(t *testing.T) {
	client := fakeLLMClient{response: `[{"property":"amount","justification":"x","source_type":"policy","source_ref":"y","evidence_id":"3fa85f64-5717-4562-b3fc-2c963f66afa6"}]`}
	src := []byte("def withdraw(balance, amount):\n    return balance - amount\n")
	result, err := Discover(context.Background(), client, false, src)
	require.NoError(t, err)
	require.Empty(t, result.AssumedInputs)
}

func TestDiscoverIncompleteAssumptionIsInvalid(t *testing.T) {
	client := fakeLLMClient{response: `[{"property":"amount"}]`}
	src := []byte("def withdraw(balance, amount):\n    return balance - amount\n")
	result, err := Discover(context.Background(), client, true, src)
	require.NoError(t, err)
	require.False(t, result.AssumptionsValid)
	require.NotEmpty(t, result.AssumptionIssues)
}
