package treesitterhelper

import (
	"slices"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// PHP patterns shared by the declaration and reference passes
var (
	// PHPFunctionCallPattern matches a call of one of the given global functions
	PHPFunctionCallPattern = func(functionNames ...string) Pattern {
		return And(
			NodeKind("function_call_expression"),
			FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
				function := node.ChildByFieldName("function")
				if function == nil {
					return false
				}

				name := strings.TrimPrefix(function.Utf8Text(content), "\\")
				return slices.ContainsFunc(functionNames, func(candidate string) bool {
					return strings.EqualFold(candidate, name)
				})
			}),
		)
	}

	// PHPDefineCallPattern matches define('NAME', value)
	PHPDefineCallPattern = And(
		PHPFunctionCallPattern("define"),
		HasChild(And(
			NodeKind("arguments"),
			FuncPattern(func(node *tree_sitter.Node, _ []byte) bool {
				return node.NamedChildCount() >= 2
			}),
		)),
	)

	// PHPDocCommentPattern matches a /** doc comment
	PHPDocCommentPattern = And(
		NodeKind("comment"),
		FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
			return strings.HasPrefix(node.Utf8Text(content), "/**")
		}),
	)

	// PHPAttributePattern matches the #[...] attributes between a doc comment
	// and the declaration it documents
	PHPAttributePattern = AnyNodeKind("attribute_list", "attribute_group")

	// PHPWriteTargetPattern matches variables that are written by an
	// assignment or destructuring, excluding the array and object a
	// subscript or member target writes through
	PHPWriteTargetPattern = And(
		NodeKind("variable_name"),
		Not(Parent(AnyNodeKind(
			"subscript_expression",
			"member_access_expression",
			"nullsafe_member_access_expression",
			"scoped_property_access_expression",
		))),
	)
)

// Pattern is matched against a tree-sitter node
type Pattern interface {
	Matches(node *tree_sitter.Node, content []byte) bool
}

// FuncPattern adapts a plain function to a Pattern
type FuncPattern func(node *tree_sitter.Node, content []byte) bool

func (f FuncPattern) Matches(node *tree_sitter.Node, content []byte) bool {
	return node != nil && f(node, content)
}

// And matches when every pattern matches
func And(patterns ...Pattern) Pattern {
	return FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
		for _, pattern := range patterns {
			if !pattern.Matches(node, content) {
				return false
			}
		}
		return true
	})
}

// Or matches when any pattern matches
func Or(patterns ...Pattern) Pattern {
	return FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
		for _, pattern := range patterns {
			if pattern.Matches(node, content) {
				return true
			}
		}
		return false
	})
}

// Not negates a pattern
func Not(pattern Pattern) Pattern {
	return FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
		return !pattern.Matches(node, content)
	})
}

// NodeKind matches nodes of kind
func NodeKind(kind string) Pattern {
	return FuncPattern(func(node *tree_sitter.Node, _ []byte) bool {
		return node.Kind() == kind
	})
}

// AnyNodeKind matches nodes of one of kinds
func AnyNodeKind(kinds ...string) Pattern {
	return FuncPattern(func(node *tree_sitter.Node, _ []byte) bool {
		return slices.Contains(kinds, node.Kind())
	})
}

// Parent matches nodes whose direct parent matches pattern
func Parent(pattern Pattern) Pattern {
	return FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
		parent := node.Parent()
		return parent != nil && pattern.Matches(parent, content)
	})
}

// HasChildOfKind matches nodes with a direct child, named or not, of kind
func HasChildOfKind(kind string) Pattern {
	return FuncPattern(func(node *tree_sitter.Node, _ []byte) bool {
		return GetFirstNodeOfKind(node, kind) != nil
	})
}

// HasChild matches nodes with a named child matching pattern
func HasChild(pattern Pattern) Pattern {
	return FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
		return slices.ContainsFunc(NamedChildren(node), func(child *tree_sitter.Node) bool {
			return pattern.Matches(child, content)
		})
	})
}

// FindAll returns every node below and including root that matches pattern,
// in document order
func FindAll(root *tree_sitter.Node, pattern Pattern, content []byte) []*tree_sitter.Node {
	var results []*tree_sitter.Node

	var visit func(node *tree_sitter.Node)
	visit = func(node *tree_sitter.Node) {
		if pattern.Matches(node, content) {
			results = append(results, node)
		}
		for _, child := range NamedChildren(node) {
			visit(child)
		}
	}

	if root != nil {
		visit(root)
	}
	return results
}
