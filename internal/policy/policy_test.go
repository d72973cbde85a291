package policy

import (
	"context"
	"sort"
	"testing"

	"github.com/argusverify/argus/internal/model"
	"github.com/stretchr/testify/require"
)

func TestDeriveNonLoopWithdraw(t *testing.T) {
	src := []byte(`
def withdraw(balance, amount):
    if amount > balance:
        return balance
    return balance - amount
`)
	result, err := Derive(context.Background(), src)
	require.NoError(t, err)
	require.Empty(t, result.UnsupportedConstructs)

	ids := obligationIDs(result.Obligations)
	require.Contains(t, ids, "withdraw:non_negative_result")
	require.NotContains(t, ids, "withdraw:bounds_safe_access")
	require.NotContains(t, ids, "withdraw:loop_progress_and_safety")
}

func TestDeriveLoopBearingFunction(t *testing.T) {
	src := []byte(`
def sum_positive(items):
    total = 0
    for item in items:
        if item > 0:
            total = total + item
    return total
`)
	result, err := Derive(context.Background(), src)
	require.NoError(t, err)
	require.Empty(t, result.UnsupportedConstructs)

	ids := obligationIDs(result.Obligations)
	require.Contains(t, ids, "sum_positive:loop_progress_and_safety")
}

func TestDeriveBoundsAndUniqueness(t *testing.T) {
	src := []byte(`
def collect_unique(items, index):
    seen = []
    value = items[index]
    seen.append(value)
    return seen
`)
	result, err := Derive(context.Background(), src)
	require.NoError(t, err)

	ids := obligationIDs(result.Obligations)
	require.Contains(t, ids, "collect_unique:bounds_safe_access")
	require.Contains(t, ids, "collect_unique:preserve_uniqueness")
}

func TestDeriveStateHint(t *testing.T) {
	src := []byte(`
def transition(state, event):
    return state
`)
	result, err := Derive(context.Background(), src)
	require.NoError(t, err)

	ids := obligationIDs(result.Obligations)
	require.Contains(t, ids, "transition:valid_state_transition")
}

func TestDeriveUnsupportedConstructs(t *testing.T) {
	src := []byte(`
class Account:
    async def deposit(self, amount):
        await self.ledger.write(amount)
        yield amount
`)
	result, err := Derive(context.Background(), src)
	require.NoError(t, err)
	require.Contains(t, result.UnsupportedConstructs, "class_definition")
	require.Contains(t, result.UnsupportedConstructs, "async_function")
	require.Contains(t, result.UnsupportedConstructs, "await_expression")
	require.Contains(t, result.UnsupportedConstructs, "generator_yield")
	require.Empty(t, result.Obligations, "async def is not a top-level FunctionDef and yields no obligations")
}

func TestDeriveSyntaxErrorYieldsOnlySyntaxErrorMarker(t *testing.T) {
	src := []byte("def broken(:\n    return\n")
	result, err := Derive(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, []string{"syntax_error"}, result.UnsupportedConstructs)
	require.Empty(t, result.Obligations)
	require.NotEmpty(t, result.CanonicalHash)
}

func TestDeriveIsDeterministicAndOrderIndependent(t *testing.T) {
	src := []byte(`
def process(balance, items, index, state):
    value = items[index]
    balance = balance - value
    result = []
    result.append(value)
    while balance > 0:
        balance = balance - 1
    return balance, result, state
`)
	first, err := Derive(context.Background(), src)
	require.NoError(t, err)
	second, err := Derive(context.Background(), src)
	require.NoError(t, err)

	require.Equal(t, first.CanonicalHash, second.CanonicalHash)
	require.True(t, sortedByID(first.Obligations))
}

func obligationIDs(obligations []model.Obligation) []string {
	ids := make([]string, len(obligations))
	for i, o := range obligations {
		ids[i] = o.ID
	}
	return ids
}

func sortedByID(obligations []model.Obligation) bool {
	return sort.SliceIsSorted(obligations, func(i, j int) bool {
		return obligations[i].ID < obligations[j].ID
	})
}
