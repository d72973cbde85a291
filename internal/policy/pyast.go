package policy

import (
	"github.com/argusverify/argus/internal/pyparse"
)

// Node type/field constants used directly in this file. The bulk of the
// grammar surface lives in internal/pyparse, shared with the
// translators, the engine selector, and the Semantic Guard's function
// name extraction; this package only needs the obligation-specific
// detectors below.
const (
	nodeFunctionDefinition = pyparse.NodeFunctionDefinition
	nodeClassDefinition    = pyparse.NodeClassDefinition
	nodeYield              = pyparse.NodeYield
	nodeAwait              = pyparse.NodeAwait
	nodeSubscript          = pyparse.NodeSubscript
	nodeBinaryOperator     = pyparse.NodeBinaryOperator
	nodeForStatement       = pyparse.NodeForStatement
	nodeWhileStatement     = pyparse.NodeWhileStatement
	nodeCall               = pyparse.NodeCall
	nodeAttribute          = pyparse.NodeAttribute
	nodeList               = pyparse.NodeList

	fieldOperator  = pyparse.FieldOperator
	fieldFunction  = pyparse.FieldFunction
	fieldAttribute = pyparse.FieldAttribute
	fieldRight     = pyparse.FieldRight
)

// sitterNode aliases the tree-sitter node type so the rest of the
// package doesn't need its own import of go-tree-sitter.
type sitterNode = pyparse.Node

func walk(n *sitterNode, visit func(*sitterNode)) { pyparse.Walk(n, visit) }

func topLevelFunctionDefs(root *sitterNode) []*sitterNode { return pyparse.TopLevelFunctionDefs(root) }

func isAsyncFunctionDef(fn *sitterNode) bool { return pyparse.IsAsyncFunctionDef(fn) }

func functionName(fn *sitterNode, src []byte) string { return pyparse.FunctionName(fn, src) }

func functionParamNames(fn *sitterNode, src []byte) []string {
	return pyparse.FunctionParamNames(fn, src)
}

func hasDescendantOfType(n *sitterNode, types ...string) bool {
	return pyparse.HasDescendantOfType(n, types...)
}

// hasSubtraction reports whether n contains a binary_operator node
// whose operator field is "-".
func hasSubtraction(n *sitterNode, src []byte) bool {
	found := false
	walk(n, func(node *sitterNode) {
		if node.Type() != nodeBinaryOperator {
			return
		}
		op := node.ChildByFieldName(fieldOperator)
		if op != nil && op.Content(src) == "-" {
			found = true
		}
	})
	return found
}

// hasListAppendCall reports whether n contains a call of the shape
// `<expr>.append(...)`.
func hasListAppendCall(n *sitterNode, src []byte) bool {
	found := false
	walk(n, func(node *sitterNode) {
		if node.Type() != nodeCall {
			return
		}
		fn := node.ChildByFieldName(fieldFunction)
		if fn == nil || fn.Type() != nodeAttribute {
			return
		}
		attr := fn.ChildByFieldName(fieldAttribute)
		if attr != nil && attr.Content(src) == "append" {
			found = true
		}
	})
	return found
}

// hasConcatAppend reports whether n contains `<expr> + [single_item]`
// — a binary_operator with operator "+" whose right operand is a
// single-element list literal.
func hasConcatAppend(n *sitterNode, src []byte) bool {
	found := false
	walk(n, func(node *sitterNode) {
		if node.Type() != nodeBinaryOperator {
			return
		}
		op := node.ChildByFieldName(fieldOperator)
		if op == nil || op.Content(src) != "+" {
			return
		}
		right := node.ChildByFieldName(fieldRight)
		if right != nil && right.Type() == nodeList && right.NamedChildCount() == 1 {
			found = true
		}
	})
	return found
}
