package treesitterhelper

import (
	"fmt"
	"io"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// PrintAllNodes writes one line per named node with its field name, kind,
// position and, for leaves, its text.
func PrintAllNodes(w io.Writer, node *tree_sitter.Node, content []byte, indent string) {
	printNode(w, node, content, indent, "")
}

func printNode(w io.Writer, node *tree_sitter.Node, content []byte, indent, field string) {
	if node == nil {
		return
	}

	rng := NodeRange(node)
	line := fmt.Sprintf("%s%s%s [%d:%d-%d:%d]", indent, field, node.Kind(),
		rng.Start.Line, rng.Start.Character, rng.End.Line, rng.End.Character)

	if node.NamedChildCount() == 0 {
		line += fmt.Sprintf(" %q", node.Utf8Text(content))
	}
	if node.IsError() {
		line += " ERROR"
	}
	if node.IsMissing() {
		line += " MISSING"
	}

	fmt.Fprintln(w, line)

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child == nil || !child.IsNamed() {
			continue
		}

		name := ""
		if fieldName := node.FieldNameForChild(uint32(i)); fieldName != "" {
			name = fieldName + ": "
		}
		printNode(w, child, content, indent+"  ", name)
	}
}
