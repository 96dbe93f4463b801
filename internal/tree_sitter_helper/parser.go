package treesitterhelper

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

// ScannedFileTypes are the file extensions handled by the index.
var ScannedFileTypes = []string{
	".php",
}

// NewPHPParser creates a parser for PHP sources. A parser must not be shared
// between goroutines; callers close it when done.
func NewPHPParser() (*tree_sitter.Parser, error) {
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())); err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	return parser, nil
}

// ParsePHP parses content with a throwaway parser.
func ParsePHP(content []byte) (*tree_sitter.Tree, error) {
	parser, err := NewPHPParser()
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse document")
	}

	return tree, nil
}
