package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/argusverify/argus/internal/model"
	"github.com/stretchr/testify/require"
)

func TestASTTranslatorEmitsLeanDefAndTheorems(t *testing.T) {
	src := []byte(`
def withdraw(balance, amount):
    if amount > balance:
        return balance
    return balance - amount
`)
	obligations := []model.Obligation{
		model.NewObligation("withdraw:non_negative_result", "withdraw(...) >= 0", model.CategoryNonNegativity, "d", model.SeverityCritical),
	}
	outcome := NewASTTranslator().Translate(context.Background(), src, obligations, nil)
	require.True(t, outcome.Success)
	require.Equal(t, model.LanguageLean, outcome.Language)
	require.Equal(t, model.TranslatorAST, outcome.Translator)
	require.False(t, outcome.UsedLLM)
	require.Contains(t, outcome.Code, "def withdraw")
	require.Contains(t, outcome.Code, "-- OBLIGATION: withdraw(...) >= 0")
	require.Contains(t, outcome.Code, "if amount > balance then")
}

func TestASTTranslatorRejectsLoops(t *testing.T) {
	src := []byte(`
def total(xs):
    s = 0
    for x in xs:
        s = s + x
    return s
`)
	outcome := NewASTTranslator().Translate(context.Background(), src, nil, nil)
	require.False(t, outcome.Success)
	require.Contains(t, outcome.Error, "loop")
}

func TestASTTranslatorRejectsSyntaxError(t *testing.T) {
	outcome := NewASTTranslator().Translate(context.Background(), []byte("def broken(:\n"), nil, nil)
	require.False(t, outcome.Success)
}

func TestDafnyTranslatorEmitsMethodSkeletonWithoutTitleCase(t *testing.T) {
	src := []byte(`
def sum_positive(items):
    total = 0
    for item in items:
        total = total + item
    return total
`)
	obligations := []model.Obligation{
		model.NewObligation("sum_positive:loop_progress_and_safety", "Loop preserves invariants and terminates", model.CategoryLoopInvariant, "d", model.SeverityHigh),
	}
	outcome := NewDafnyTranslator().Translate(context.Background(), src, obligations, nil)
	require.True(t, outcome.Success)
	require.Equal(t, model.LanguageDafny, outcome.Language)
	require.Contains(t, outcome.Code, "method sum_positive(")
	require.NotContains(t, outcome.Code, "method Sum_positive(")
	require.Contains(t, outcome.Code, "// OBLIGATION: Loop preserves invariants and terminates")
	require.Contains(t, outcome.Code, "invariant")
}

type stubLLMClient struct {
	text string
	err  error
}

func (s stubLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	return s.text, s.err
}

func TestLLMTranslatorAlwaysReportsUsedLLM(t *testing.T) {
	ok := NewLLMTranslator(stubLLMClient{text: "theorem stub"}, "")
	outcome := ok.Translate(context.Background(), []byte("def f(): return 0"), nil, nil)
	require.True(t, outcome.Success)
	require.True(t, outcome.UsedLLM)

	failing := NewLLMTranslator(stubLLMClient{err: errors.New("boom")}, "")
	outcome = failing.Translate(context.Background(), []byte("def f(): return 0"), nil, nil)
	require.False(t, outcome.Success)
	require.True(t, outcome.UsedLLM)
}

func TestLLMTranslatorFailsWithoutClient(t *testing.T) {
	outcome := NewLLMTranslator(nil, "").Translate(context.Background(), []byte("def f(): return 0"), nil, nil)
	require.False(t, outcome.Success)
	require.True(t, outcome.UsedLLM)
}

func TestRouterPicksDafnyDirectlyForLoopEngine(t *testing.T) {
	router := NewRouter(NewASTTranslator(), NewDafnyTranslator(), nil)
	src := []byte(`
def total(xs):
    s = 0
    for x in xs:
        s = s + x
    return s
`)
	outcome := router.Translate(context.Background(), model.EngineDafny, src, nil, nil)
	require.True(t, outcome.Success)
	require.Equal(t, model.TranslatorDafny, outcome.Translator)
}

func TestRouterFallsBackToLLMOnlyWhenASTFails(t *testing.T) {
	router := NewRouter(NewASTTranslator(), NewDafnyTranslator(), NewLLMTranslator(stubLLMClient{text: "fallback"}, ""))

	leanSrc := []byte("def withdraw(balance, amount):\n    return balance - amount\n")
	outcome := router.Translate(context.Background(), model.EngineLean, leanSrc, nil, nil)
	require.True(t, outcome.Success)
	require.Equal(t, model.TranslatorAST, outcome.Translator, "AST translator succeeds, so the LLM must not run")

	// Async code the AST translator refuses forces the LLM fallback.
	asyncSrc := []byte("async def withdraw(balance, amount):\n    return balance - amount\n")
	outcome = router.Translate(context.Background(), model.EngineLean, asyncSrc, nil, nil)
	require.True(t, outcome.Success)
	require.Equal(t, model.TranslatorLLM, outcome.Translator)
}
