package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/argusverify/argus/internal/model"
	"github.com/argusverify/argus/internal/pyparse"
)

// leanImports is the fixed Lean 4 preamble every AST-translated artifact
// carries, matching the tactics the original's theorem stubs rely on
// (`trivial`, and `omega`/`linarith` for anything the LLM or repair
// loop later strengthens the stub into).
const leanImports = "import Mathlib.Tactic.SplitIfs\nimport Mathlib.Tactic.Linarith\n\n"

// ASTTranslator deterministically renders simple, loop-free,
// non-async Python functions into Lean 4 (spec §4.4). It is always
// tried before the LLM translator and never itself calls an LLM.
type ASTTranslator struct{}

// NewASTTranslator constructs an ASTTranslator. It holds no state.
func NewASTTranslator() *ASTTranslator { return &ASTTranslator{} }

// Translate implements the translate.Translator interface.
func (t *ASTTranslator) Translate(ctx context.Context, src []byte, obligations []model.Obligation, assumptions []model.AssumedInput) model.TranslationOutcome {
	fail := func(err string) model.TranslationOutcome {
		return model.TranslationOutcome{Success: false, Language: model.LanguageLean, Translator: model.TranslatorAST, Error: err}
	}

	tree, err := pyparse.Parse(ctx, src)
	if err != nil {
		return fail(fmt.Sprintf("SyntaxError: %v", err))
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return fail("SyntaxError: source does not parse")
	}

	if pyparse.HasDescendantOfType(root, pyparse.NodeForStatement, pyparse.NodeWhileStatement) {
		return fail("Unsupported construct for ASTTranslator (loop/async)")
	}
	hasAsync := false
	pyparse.Walk(root, func(n *pyparse.Node) {
		if n.Type() == pyparse.NodeFunctionDefinition && pyparse.IsAsyncFunctionDef(n) {
			hasAsync = true
		}
	})
	if hasAsync {
		return fail("Unsupported construct for ASTTranslator (loop/async)")
	}

	var defs []string
	for _, fn := range pyparse.TopLevelFunctionDefs(root) {
		defs = append(defs, translateFunction(fn, src))
	}
	if len(defs) == 0 {
		return fail("No function definitions found")
	}

	theorems := emitObligationTheorems(obligations, assumptions)
	code := leanImports + strings.Join(defs, "\n") + "\n\n" + theorems + "\n"
	return model.TranslationOutcome{
		Success:    true,
		Language:   model.LanguageLean,
		Code:       code,
		Translator: model.TranslatorAST,
		UsedLLM:    false,
	}
}

func translateFunction(fn *pyparse.Node, src []byte) string {
	name := pyparse.FunctionName(fn, src)
	params := pyparse.FunctionParamNames(fn, src)
	paramParts := make([]string, len(params))
	for i, p := range params {
		paramParts[i] = fmt.Sprintf("(%s : Int)", p)
	}
	body := translateBody(fn.ChildByFieldName(pyparse.FieldBody), src)
	return fmt.Sprintf("def %s %s : Int :=\n  %s", name, strings.Join(paramParts, " "), body)
}

// translateBody mirrors the original's single-statement-lookahead
// translation: only the first statement in a block is considered,
// exactly as `_translate_body` in ast_translator.py only ever inspects
// `body[0]`. A bare fall-through return after an `if` without an
// `else` is not reachable by this translator — deliberately, to match
// the donor behavior this package is grounded on.
func translateBody(block *pyparse.Node, src []byte) string {
	if block == nil || block.NamedChildCount() == 0 {
		return "0"
	}
	stmt := block.NamedChild(0)
	switch stmt.Type() {
	case pyparse.NodeReturnStatement:
		if stmt.NamedChildCount() == 0 {
			return "0"
		}
		return translateExpr(stmt.NamedChild(0), src)
	case pyparse.NodeIfStatement:
		return translateIf(stmt, src)
	default:
		return "0"
	}
}

func translateIf(stmt *pyparse.Node, src []byte) string {
	cond := translateExpr(stmt.ChildByFieldName(pyparse.FieldCondition), src)
	yes := translateBody(stmt.ChildByFieldName(pyparse.FieldConsequence), src)
	no := "0"
	if alt := firstAlternative(stmt); alt != nil {
		switch alt.Type() {
		case "else_clause":
			no = translateBody(alt.ChildByFieldName(pyparse.FieldBody), src)
		case "elif_clause":
			no = translateIf(alt, src)
		}
	}
	return fmt.Sprintf("if %s then %s else %s", cond, yes, no)
}

func firstAlternative(stmt *pyparse.Node) *pyparse.Node {
	count := int(stmt.ChildCount())
	for i := 0; i < count; i++ {
		c := stmt.Child(i)
		if c.Type() == "elif_clause" || c.Type() == pyparse.NodeElseClause {
			return c
		}
	}
	return nil
}

func translateExpr(expr *pyparse.Node, src []byte) string {
	if expr == nil {
		return "0"
	}
	switch expr.Type() {
	case pyparse.NodeIdentifier:
		return expr.Content(src)
	case pyparse.NodeInteger, pyparse.NodeFloat:
		return expr.Content(src)
	case pyparse.NodeBinaryOperator:
		left := translateExpr(expr.ChildByFieldName(pyparse.FieldLeft), src)
		right := translateExpr(expr.ChildByFieldName(pyparse.FieldRight), src)
		op := leanBinaryOp(expr.ChildByFieldName(pyparse.FieldOperator).Content(src))
		return fmt.Sprintf("(%s %s %s)", left, op, right)
	case pyparse.NodeComparisonOperator:
		return translateComparison(expr, src)
	default:
		return "0"
	}
}

func leanBinaryOp(op string) string {
	switch op {
	case "+":
		return "+"
	case "-":
		return "-"
	case "*":
		return "*"
	case "/":
		return "/"
	case "%":
		return "%"
	default:
		return "+"
	}
}

// translateComparison handles a single-operator Python comparison
// (`a OP b`); chained comparisons (`a < b < c`) fall back to "0" just
// as the original's `len(expr.ops) == 1` guard does.
func translateComparison(node *pyparse.Node, src []byte) string {
	if node.NamedChildCount() != 2 {
		return "0"
	}
	left := translateExpr(node.NamedChild(0), src)
	right := translateExpr(node.NamedChild(1), src)
	op := comparisonOperatorToken(node, src)
	return fmt.Sprintf("%s %s %s", left, leanComparisonOp(op), right)
}

func comparisonOperatorToken(node *pyparse.Node, src []byte) string {
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		c := node.Child(i)
		if c.IsNamed() {
			continue
		}
		switch c.Content(src) {
		case ">", ">=", "<", "<=", "==", "!=":
			return c.Content(src)
		}
	}
	return "=="
}

func leanComparisonOp(op string) string {
	switch op {
	case ">":
		return ">"
	case ">=":
		return "≥"
	case "<":
		return "<"
	case "<=":
		return "≤"
	case "==":
		return "="
	case "!=":
		return "≠"
	default:
		return "="
	}
}

// emitObligationTheorems renders one trivial theorem stub per
// obligation, each annotated with the OBLIGATION/CATEGORY comments the
// Semantic Guard's weak-encoding checks read, plus one ASSUMED INPUT
// comment per assumption (spec §4.4). The theorem body never attempts
// a real proof of the obligation — the actual certification is the
// external engine's job — this is the artifact shape the guard and
// verifier expect to see.
func emitObligationTheorems(obligations []model.Obligation, assumptions []model.AssumedInput) string {
	if len(obligations) == 0 {
		return "-- No obligations generated"
	}

	var assumptionLines []string
	for i, a := range assumptions {
		assumptionLines = append(assumptionLines, fmt.Sprintf("  -- ASSUMED INPUT %d: %s", i+1, a.Property))
	}

	var theorems []string
	for _, o := range obligations {
		name := strings.NewReplacer(":", "_", "-", "_").Replace(o.ID)
		lines := []string{
			fmt.Sprintf("theorem %s : True := by", name),
			"  trivial",
			fmt.Sprintf("  -- OBLIGATION: %s", o.Property),
			fmt.Sprintf("  -- CATEGORY: %s", o.Category),
		}
		lines = append(lines, assumptionLines...)
		theorems = append(theorems, strings.Join(lines, "\n"))
	}
	return strings.Join(theorems, "\n\n")
}
