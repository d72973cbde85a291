// Package guard implements the Semantic Guard (spec §4.5): a
// translation-independent sanity check that a proof artifact actually
// engages with the obligations it claims to discharge, run after
// translation and before the artifact ever reaches a verifier. It
// never calls an LLM and never runs a subprocess — every check is a
// string or regex match over the translated artifact plus a
// tree-sitter walk over the original source's function names.
package guard

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/argusverify/argus/internal/model"
	"github.com/argusverify/argus/internal/pyparse"
)

// Issue is a single guard failure.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the guard's verdict: Passed is true only when Issues is
// empty.
type Result struct {
	Passed bool    `json:"passed"`
	Issues []Issue `json:"issues"`
}

var sorryCommentPattern = regexp.MustCompile(`--.*`)
var sorryWordPattern = regexp.MustCompile(`\bsorry\b`)

// Run checks translatedCode against pythonSrc and obligations,
// returning every issue found rather than stopping at the first one —
// the CI integrity suite's semantic-guard-gate (spec §4.12) reports
// the full issue list, not just a boolean.
func Run(ctx context.Context, pythonSrc []byte, translatedCode string, obligations []model.Obligation) Result {
	var issues []Issue

	if len(obligations) == 0 {
		issues = append(issues, Issue{Code: "NO_OBLIGATIONS", Message: "Canonical obligation set is empty"})
	}

	if containsSorry(translatedCode) {
		issues = append(issues, Issue{Code: "PROOF_SORRY", Message: "Translated proof contains `sorry`"})
	}

	if strings.Contains(strings.ToLower(translatedCode), "unsupported") {
		issues = append(issues, Issue{Code: "UNSUPPORTED_MARKER", Message: "Translated artifact contains unsupported marker"})
	}

	for _, fn := range extractPythonFunctionNames(ctx, pythonSrc) {
		if !containsFunctionSymbol(translatedCode, fn) {
			issues = append(issues, Issue{
				Code:    "MISSING_FUNCTION_SYMBOL",
				Message: fmt.Sprintf("Translated artifact missing function symbol '%s'", fn),
			})
		}
	}

	for _, o := range obligations {
		switch o.Category {
		case model.CategoryUniqueness:
			if !strings.Contains(translatedCode, "Nodup") && !strings.Contains(translatedCode, "no_duplicates") {
				issues = append(issues, weakEncodingIssue("WEAK_UNIQUENESS_ENCODING", o.ID))
			}
		case model.CategoryBounds:
			hasComparison := strings.Contains(translatedCode, "<") || strings.Contains(translatedCode, "≤")
			if !hasComparison && !strings.Contains(translatedCode, "index") {
				issues = append(issues, weakEncodingIssue("WEAK_BOUNDS_ENCODING", o.ID))
			}
		case model.CategoryNonNegativity:
			if !strings.Contains(translatedCode, "≥ 0") && !strings.Contains(translatedCode, ">= 0") {
				issues = append(issues, weakEncodingIssue("WEAK_NONNEG_ENCODING", o.ID))
			}
		}
	}

	return Result{Passed: len(issues) == 0, Issues: issues}
}

func weakEncodingIssue(code, obligationID string) Issue {
	return Issue{Code: code, Message: fmt.Sprintf("Obligation '%s' appears unencoded in proof artifact", obligationID)}
}

// extractPythonFunctionNames mirrors the original's
// `_extract_python_function_names`: only top-level, non-async
// function defs count, and an unparseable source yields no names
// rather than an error (the guard treats that as nothing to check,
// since the unsupported-construct short-circuit already handles
// syntax errors upstream).
func extractPythonFunctionNames(ctx context.Context, src []byte) []string {
	tree, err := pyparse.Parse(ctx, src)
	if err != nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil
	}

	seen := map[string]bool{}
	var names []string
	for _, fn := range pyparse.TopLevelFunctionDefs(root) {
		if pyparse.IsAsyncFunctionDef(fn) {
			continue
		}
		name := pyparse.FunctionName(fn, src)
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func containsFunctionSymbol(translatedCode, fn string) bool {
	pattern := regexp.MustCompile(`\b(def|theorem|lemma|method)\s+` + regexp.QuoteMeta(fn) + `\b`)
	return pattern.MatchString(translatedCode)
}

// containsSorry strips Lean line comments before looking for a bare
// `sorry` token, so a comment that merely mentions `sorry` (e.g. in an
// ASSUMED INPUT note) never trips PROOF_SORRY.
func containsSorry(code string) bool {
	stripped := sorryCommentPattern.ReplaceAllString(code, "")
	return sorryWordPattern.MatchString(stripped)
}
