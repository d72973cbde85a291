// Package translate turns a derived obligation set and a Python
// source file into a proof artifact in Lean or Dafny (spec §4.4). The
// Router picks a translator per the engine the Verifier Router already
// selected (internal/engineselect) — a file's engine is decided once
// and never reconsidered after a translation or verification failure.
package translate

import (
	"context"

	"github.com/argusverify/argus/internal/model"
)

// Translator produces a TranslationOutcome for one source file. All
// three implementations (AST, Dafny, LLM) share this shape so the
// Router can try them in sequence without type-switching on the
// concrete translator.
type Translator interface {
	Translate(ctx context.Context, src []byte, obligations []model.Obligation, assumptions []model.AssumedInput) model.TranslationOutcome
}

// Router selects and runs the translator chain for a file's already
// chosen engine (spec §4.4, §4.6): the loop engine goes straight to
// Dafny; the Lean engine tries the deterministic AST translator first
// and only reaches for the LLM translator when the AST translator
// cannot handle the source.
type Router struct {
	ast   Translator
	dafny Translator
	llm   Translator
}

// NewRouter wires the three translators. llm may be nil (or wrap a
// no-credential llmclient.Client) when no LLM is configured — the
// Router then simply returns the AST translator's failed outcome for
// Lean-engine files it cannot handle deterministically.
func NewRouter(ast, dafny, llm Translator) *Router {
	return &Router{ast: ast, dafny: dafny, llm: llm}
}

// Translate runs the chain for engine and returns the first successful
// outcome, or the last attempted outcome if every translator in the
// chain failed.
func (r *Router) Translate(ctx context.Context, engine model.Engine, src []byte, obligations []model.Obligation, assumptions []model.AssumedInput) model.TranslationOutcome {
	if engine == model.EngineDafny {
		return r.dafny.Translate(ctx, src, obligations, assumptions)
	}

	astOutcome := r.ast.Translate(ctx, src, obligations, assumptions)
	if astOutcome.Success {
		return astOutcome
	}
	if r.llm == nil {
		return astOutcome
	}
	return r.llm.Translate(ctx, src, obligations, assumptions)
}
