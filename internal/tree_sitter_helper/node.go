package treesitterhelper

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// GetFirstNodeOfKind returns the first direct child of node with the given kind.
func GetFirstNodeOfKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// GetNamedChildrenOfKind returns the named children of node with one of the given kinds.
func GetNamedChildrenOfKind(node *tree_sitter.Node, kinds ...string) []*tree_sitter.Node {
	if node == nil {
		return nil
	}

	var result []*tree_sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(uint(i))
		if child == nil {
			continue
		}
		for _, kind := range kinds {
			if child.Kind() == kind {
				result = append(result, child)
				break
			}
		}
	}
	return result
}

// NamedChildren returns all named children of node.
func NamedChildren(node *tree_sitter.Node) []*tree_sitter.Node {
	if node == nil {
		return nil
	}

	children := make([]*tree_sitter.Node, 0, node.NamedChildCount())
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(uint(i)); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// HasChildToken reports whether node has an anonymous child token with the given text,
// e.g. "function" in "use function Foo\bar;".
func HasChildToken(node *tree_sitter.Node, token string) bool {
	if node == nil {
		return false
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child != nil && !child.IsNamed() && strings.EqualFold(child.Kind(), token) {
			return true
		}
	}
	return false
}

// GetNodeText returns the text of node with surrounding quotes removed.
func GetNodeText(node *tree_sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return strings.Trim(strings.Trim(node.Utf8Text(content), "\""), "'")
}

// FieldText returns the text of the child stored under field, or "".
func FieldText(node *tree_sitter.Node, field string, content []byte) string {
	if node == nil {
		return ""
	}
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Utf8Text(content)
}

// IsMalformed reports whether node is an ERROR node or a node inserted by
// error recovery.
func IsMalformed(node *tree_sitter.Node) bool {
	return node == nil || node.IsError() || node.IsMissing()
}

// PrecedingDocComment returns the /** doc comment directly in front of node,
// skipping attribute groups. Plain comments stop the search.
func PrecedingDocComment(node *tree_sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}

	prev := node.PrevSibling()
	for prev != nil && PHPAttributePattern.Matches(prev, content) {
		prev = prev.PrevSibling()
	}
	if PHPDocCommentPattern.Matches(prev, content) {
		return prev.Utf8Text(content)
	}
	return ""
}

// SameNode reports whether a and b denote the same syntax node.
func SameNode(a, b *tree_sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Id() == b.Id()
}
