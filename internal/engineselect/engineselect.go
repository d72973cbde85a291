// Package engineselect implements the Verifier Router's engine
// selection (spec §4.6): a pure function from Python source to one of
// the two proof engines, consulted exactly once per file. The
// Translator Router (spec §4.4) consumes the same selection — "the
// router picks an engine from the source shape (see 4.6)" — so the
// decision lives here, in its own leaf package, rather than inside
// either the translate or verify package, keeping neither dependent on
// the other for something both need. No caller may recompute or
// override a selection after a verification failure; that invariant is
// enforced by callers treating model.EngineSelection as a one-shot
// value threaded through translation and verification, not by anything
// in this package itself.
package engineselect

import (
	"context"

	"github.com/argusverify/argus/internal/model"
	"github.com/argusverify/argus/internal/pyparse"
)

// Select parses src and chooses the loop-oriented engine (Dafny) when
// the source contains a for/while loop, otherwise the theorem-prover
// engine (Lean). A source that fails to parse falls back to the
// theorem-prover engine with reason "syntax_error_fallback" — the
// Obligation Policy is what turns a genuine syntax error into an
// UNVERIFIED verdict; this selector just needs somewhere safe to point
// so downstream stages have an engine to report against.
func Select(ctx context.Context, src []byte) model.EngineSelection {
	tree, err := pyparse.Parse(ctx, src)
	if err != nil {
		return model.EngineSelection{Engine: model.EngineLean, Reason: "syntax_error_fallback"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return model.EngineSelection{Engine: model.EngineLean, Reason: "syntax_error_fallback"}
	}

	if pyparse.HasDescendantOfType(root, pyparse.NodeForStatement, pyparse.NodeWhileStatement) {
		return model.EngineSelection{Engine: model.EngineDafny, Reason: "loop_detected"}
	}
	return model.EngineSelection{Engine: model.EngineLean, Reason: "non_loop_code"}
}
