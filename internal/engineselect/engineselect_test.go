package engineselect

import (
	"context"
	"testing"

	"github.com/argusverify/argus/internal/model"
	"github.com/stretchr/testify/require"
)

func TestSelectNonLoopCode(t *testing.T) {
	src := []byte(`
def withdraw(balance, amount):
    return balance - amount
`)
	selection := Select(context.Background(), src)
	require.Equal(t, model.EngineLean, selection.Engine)
	require.Equal(t, "non_loop_code", selection.Reason)
}

func TestSelectLoopBearingCode(t *testing.T) {
	src := []byte(`
def total(xs):
    s = 0
    for x in xs:
        s += x
    return s
`)
	selection := Select(context.Background(), src)
	require.Equal(t, model.EngineDafny, selection.Engine)
	require.Equal(t, "loop_detected", selection.Reason)
}

func TestSelectWhileLoopCode(t *testing.T) {
	src := []byte(`
def countdown(n):
    while n > 0:
        n -= 1
    return n
`)
	selection := Select(context.Background(), src)
	require.Equal(t, model.EngineDafny, selection.Engine)
}

func TestSelectSyntaxErrorFallsBackToLean(t *testing.T) {
	src := []byte("def broken(:\n    return\n")
	selection := Select(context.Background(), src)
	require.Equal(t, model.EngineLean, selection.Engine)
	require.Equal(t, "syntax_error_fallback", selection.Reason)
}
