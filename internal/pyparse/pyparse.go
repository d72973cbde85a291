// Package pyparse is the shared tree-sitter-Python parsing layer used by
// every stage that needs to walk Python source as a concrete syntax
// tree: the Obligation Policy, the engine selector, the deterministic
// translators, and the Semantic Guard's function-name extraction. Each
// caller does its own node-kind dispatch over the tree this package
// hands back — there is no shared "visitor" abstraction beyond the walk
// itself, matching the donor's own parser-construction pattern in
// services/trace/ast.
package pyparse

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Node type and field-name constants for the subset of the Python
// grammar Argus inspects. Named the way tree-sitter-python's grammar.js
// itself names them so a reader can cross-reference the grammar
// directly.
const (
	NodeModule                = "module"
	NodeFunctionDefinition    = "function_definition"
	NodeAsyncKeyword          = "async"
	NodeClassDefinition       = "class_definition"
	NodeYield                 = "yield"
	NodeAwait                 = "await"
	NodeParameters            = "parameters"
	NodeIdentifier            = "identifier"
	NodeTypedParameter        = "typed_parameter"
	NodeDefaultParameter      = "default_parameter"
	NodeTypedDefaultParameter = "typed_default_parameter"
	NodeSubscript             = "subscript"
	NodeBinaryOperator        = "binary_operator"
	NodeForStatement          = "for_statement"
	NodeWhileStatement        = "while_statement"
	NodeCall                  = "call"
	NodeAttribute             = "attribute"
	NodeList                  = "list"
	NodeReturnStatement       = "return_statement"
	NodeIfStatement           = "if_statement"
	NodeElseClause            = "else_clause"
	NodeComparisonOperator    = "comparison_operator"
	NodeInteger               = "integer"
	NodeFloat                 = "float"
	NodeBlock                 = "block"

	FieldOperator  = "operator"
	FieldFunction  = "function"
	FieldAttribute = "attribute"
	FieldLeft      = "left"
	FieldRight     = "right"
	FieldName      = "name"
	FieldBody      = "body"
	FieldCondition = "condition"
	FieldConsequence = "consequence"
	FieldAlternative = "alternative"
)

// Node aliases the tree-sitter node type so callers don't need their
// own import of go-tree-sitter.
type Node = sitter.Node

// Tree aliases the tree-sitter parse tree.
type Tree = sitter.Tree

// Parse parses src with the tree-sitter Python grammar. The caller owns
// the returned tree and must call Close() on it.
func Parse(ctx context.Context, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return parser.ParseCtx(ctx, nil, src)
}

// Walk calls visit for node and every descendant, depth-first. This is
// the "explicit node-kind dispatch, no reflection" traversal every
// caller builds on: switch on n.Type() inside visit.
func Walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		Walk(n.Child(i), visit)
	}
}

// TopLevelFunctionDefs returns the function_definition nodes that are
// direct named children of the module node (top-level only, no nested
// defs, no class methods). Async defs are function_definition nodes
// too and are included; callers that mirror Python's ast.FunctionDef
// filter them out with IsAsyncFunctionDef.
func TopLevelFunctionDefs(root *Node) []*Node {
	var defs []*Node
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		child := root.NamedChild(i)
		if child.Type() == NodeFunctionDefinition {
			defs = append(defs, child)
		}
	}
	return defs
}

// IsAsyncFunctionDef reports whether a function_definition node carries
// a leading `async` keyword child.
func IsAsyncFunctionDef(fn *Node) bool {
	count := int(fn.ChildCount())
	for i := 0; i < count; i++ {
		c := fn.Child(i)
		if c.Type() == NodeAsyncKeyword {
			return true
		}
		if c.Type() == "def" {
			return false
		}
	}
	return false
}

// FunctionName returns the identifier in the `name` field of a
// function_definition node.
func FunctionName(fn *Node, src []byte) string {
	name := fn.ChildByFieldName(FieldName)
	if name == nil {
		return ""
	}
	return name.Content(src)
}

// FunctionParamNames extracts parameter identifiers from a
// function_definition's parameters node, covering bare identifiers and
// typed/default/typed-default parameter forms.
func FunctionParamNames(fn *Node, src []byte) []string {
	params := FieldOrFirstOfType(fn, NodeParameters)
	if params == nil {
		return nil
	}
	var names []string
	count := int(params.NamedChildCount())
	for i := 0; i < count; i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case NodeIdentifier:
			names = append(names, p.Content(src))
		case NodeTypedParameter:
			if p.NamedChildCount() > 0 {
				names = append(names, p.NamedChild(0).Content(src))
			}
		case NodeDefaultParameter, NodeTypedDefaultParameter:
			if n := p.ChildByFieldName(FieldName); n != nil {
				names = append(names, n.Content(src))
			}
		}
	}
	return names
}

// FieldOrFirstOfType returns the first direct child of n with the given
// type. Used where tree-sitter-python doesn't expose a field name for
// the child Argus needs (e.g. the bare `parameters` node).
func FieldOrFirstOfType(n *Node, typ string) *Node {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c.Type() == typ {
			return c
		}
	}
	return nil
}

// HasDescendantOfType reports whether any descendant of n (n included)
// has one of the given types.
func HasDescendantOfType(n *Node, types ...string) bool {
	found := false
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	Walk(n, func(node *Node) {
		if set[node.Type()] {
			found = true
		}
	})
	return found
}
