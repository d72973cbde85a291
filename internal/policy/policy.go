// Package policy implements the Obligation Policy (spec §4.1): a
// deterministic tree-sitter walk over Python source that derives a
// canonical set of safety obligations and flags constructs the rest of
// the pipeline cannot reason about. Nothing here calls an LLM; the same
// source always yields the same obligations, sorted by ID, hashable via
// model.CanonicalHash for the reproducibility and obligation-policy CI
// gates (spec §4.12).
package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/argusverify/argus/internal/model"
	"github.com/argusverify/argus/internal/pyparse"
)

// numericHintNames are parameter names the policy treats as carrying a
// numeric, decrementable quantity, triggering the non_negative_result
// obligation even absent an explicit subtraction on that name.
var numericHintNames = map[string]bool{
	"balance": true,
	"amount":  true,
	"total":   true,
	"count":   true,
	"value":   true,
}

// stateHintNames are parameter names that suggest the function
// participates in a state machine, triggering the
// valid_state_transition obligation.
var stateHintNames = map[string]bool{
	"state":  true,
	"status": true,
	"level":  true,
}

// Result is what Derive returns: the canonical obligation set for every
// top-level, non-async function in the source, plus any unsupported
// constructs found anywhere in the module.
type Result struct {
	Obligations           []model.Obligation
	UnsupportedConstructs []string
	CanonicalHash         string
}

// Derive walks src and produces its Result. A source tree-sitter cannot
// parse without error yields empty obligations and unsupported
// constructs of exactly ["syntax_error"] (spec §4.1) rather than a Go
// error — PolicyParseError is a data outcome the rest of the pipeline
// routes to UNVERIFIED, not an exceptional condition. Derive itself
// only returns a non-nil error for a genuine tooling failure (parser
// construction, context cancellation).
func Derive(ctx context.Context, src []byte) (Result, error) {
	tree, err := pyparse.Parse(ctx, src)
	if err != nil {
		return Result{}, fmt.Errorf("policy: parse python: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		hash, err := model.CanonicalHash(nil)
		if err != nil {
			return Result{}, fmt.Errorf("policy: canonical hash: %w", err)
		}
		return Result{UnsupportedConstructs: []string{"syntax_error"}, CanonicalHash: hash}, nil
	}

	unsupported := detectUnsupportedConstructs(root, src)

	var obligations []model.Obligation
	for _, fn := range topLevelFunctionDefs(root) {
		if isAsyncFunctionDef(fn) {
			continue
		}
		obligations = append(obligations, deriveForFunction(fn, src)...)
	}
	obligations = dedupByID(obligations)
	sort.Slice(obligations, func(i, j int) bool { return obligations[i].ID < obligations[j].ID })

	hash, err := model.CanonicalHash(obligations)
	if err != nil {
		return Result{}, fmt.Errorf("policy: canonical hash: %w", err)
	}

	return Result{
		Obligations:           obligations,
		UnsupportedConstructs: unsupported,
		CanonicalHash:         hash,
	}, nil
}

// detectUnsupportedConstructs scans the whole tree (not just top-level
// functions) for constructs the translators and verifiers cannot
// reason about: async defs, classes, yield, and await.
func detectUnsupportedConstructs(root *sitterNode, src []byte) []string {
	seen := map[string]bool{}
	var found []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			found = append(found, name)
		}
	}

	walk(root, func(n *sitterNode) {
		switch n.Type() {
		case nodeFunctionDefinition:
			if isAsyncFunctionDef(n) {
				add("async_function")
			}
		case nodeClassDefinition:
			add("class_definition")
		case nodeYield:
			add("generator_yield")
		case nodeAwait:
			add("await_expression")
		}
	})

	sort.Strings(found)
	return found
}

// deriveForFunction applies the five obligation templates to a single
// top-level function, in the fixed order the original policy emits
// them: non_negative_result, bounds_safe_access, preserve_uniqueness,
// loop_progress_and_safety, valid_state_transition.
func deriveForFunction(fn *sitterNode, src []byte) []model.Obligation {
	name := functionName(fn, src)
	params := functionParamNames(fn, src)

	hasNumericHint := false
	for _, p := range params {
		if numericHintNames[strings.ToLower(p)] {
			hasNumericHint = true
			break
		}
	}
	hasStateHint := false
	for _, p := range params {
		if stateHintNames[strings.ToLower(p)] {
			hasStateHint = true
			break
		}
	}

	var obligations []model.Obligation

	if hasSubtraction(fn, src) || hasNumericHint {
		obligations = append(obligations, model.NewObligation(
			name+":non_negative_result",
			fmt.Sprintf("%s(...) >= 0", name),
			model.CategoryNonNegativity,
			"Result should remain non-negative under validated inputs",
			model.SeverityCritical,
		))
	}

	if hasDescendantOfType(fn, nodeSubscript) {
		obligations = append(obligations, model.NewObligation(
			name+":bounds_safe_access",
			"All index operations are bounds-safe",
			model.CategoryBounds,
			"Indexing operations must not access out-of-range elements",
			model.SeverityCritical,
		))
	}

	if hasListAppendCall(fn, src) || hasConcatAppend(fn, src) {
		obligations = append(obligations, model.NewObligation(
			name+":preserve_uniqueness",
			"Collection updates preserve uniqueness where required",
			model.CategoryUniqueness,
			"List/set update patterns should avoid duplicate insertion",
			model.SeverityHigh,
		))
	}

	if hasDescendantOfType(fn, nodeForStatement, nodeWhileStatement) {
		obligations = append(obligations, model.NewObligation(
			name+":loop_progress_and_safety",
			"Loop preserves invariants and terminates",
			model.CategoryLoopInvariant,
			"Loop variables should stay in valid ranges with valid progress",
			model.SeverityHigh,
		))
	}

	if hasStateHint {
		obligations = append(obligations, model.NewObligation(
			name+":valid_state_transition",
			"State transitions remain within policy",
			model.CategoryStateTransition,
			"State-like values must follow allowed transition rules",
			model.SeverityHigh,
		))
	}

	return obligations
}

func dedupByID(obligations []model.Obligation) []model.Obligation {
	seen := make(map[string]bool, len(obligations))
	out := make([]model.Obligation, 0, len(obligations))
	for _, o := range obligations {
		if seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		out = append(out, o)
	}
	return out
}
