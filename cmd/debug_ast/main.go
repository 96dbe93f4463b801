package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/shopware/phpsymbols/internal/reference"
	"github.com/shopware/phpsymbols/internal/symbol"
	treesitterhelper "github.com/shopware/phpsymbols/internal/tree_sitter_helper"
	"github.com/shopware/phpsymbols/internal/workspace"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/debug_ast/main.go <php_file_path> [ast|symbols|references]")
		os.Exit(1)
	}

	filePath := os.Args[1]
	section := ""
	if len(os.Args) > 2 {
		section = os.Args[2]
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		log.Fatalf("Failed to read file: %v", err)
	}

	tree, err := treesitterhelper.ParsePHP(content)
	if err != nil {
		log.Fatalf("Failed to parse file: %v", err)
	}
	defer tree.Close()

	uri := workspace.PathToURI(absPath)
	table := symbol.Read(uri, content, tree.RootNode())
	store := symbol.NewStore()
	store.Add(table)
	references := reference.Read(table, content, tree.RootNode(), store)

	out := os.Stdout
	if section == "" || section == "ast" {
		fmt.Fprintf(out, "Syntax tree of %s\n\n", filePath)
		treesitterhelper.PrintAllNodes(out, tree.RootNode(), content, "")
		fmt.Fprintln(out)
	}
	if section == "" || section == "symbols" {
		fmt.Fprintf(out, "Symbols (%d)\n\n", len(table.Find(nil)))
		printSymbol(out, table.Root, "")
		fmt.Fprintln(out)
	}
	if section == "" || section == "references" {
		fmt.Fprintln(out, "References")
		fmt.Fprintln(out)
		printScope(out, references.Root, "")
	}
}

func printSymbol(w io.Writer, sym *symbol.Symbol, indent string) {
	if sym == nil {
		return
	}

	line := fmt.Sprintf("%s%s %s", indent, sym.Kind, sym.Name)
	if sym.Modifiers != 0 {
		line += " [" + sym.Modifiers.String() + "]"
	}
	if sym.Type != "" {
		line += " : " + sym.Type
	}
	if sym.Scope != "" {
		line += " in " + sym.Scope
	}
	for _, associated := range sym.Associated {
		line += fmt.Sprintf(" <%s %s>", associated.Kind, associated.Name)
	}
	if sym.Location != nil {
		line += " " + formatRange(sym.Location.Range)
	}
	fmt.Fprintln(w, line)

	for _, child := range sym.Children {
		printSymbol(w, child, indent+"  ")
	}
}

func printScope(w io.Writer, scope *reference.Scope, indent string) {
	if scope == nil {
		return
	}

	fmt.Fprintf(w, "%sscope %s\n", indent, formatRange(scope.Location.Range))
	for _, child := range scope.Children {
		if child.Scope != nil {
			printScope(w, child.Scope, indent+"  ")
			continue
		}

		ref := child.Reference
		line := fmt.Sprintf("%s  %s %s", indent, ref.Kind, ref.Name)
		if ref.AltName != "" {
			line += " (" + ref.AltName + ")"
		}
		if ref.Scope != "" {
			line += " on " + ref.Scope
		}
		if ref.Type != "" {
			line += " : " + ref.Type
		}
		fmt.Fprintln(w, line+" "+formatRange(ref.Location.Range))
	}
}

func formatRange(r treesitterhelper.Range) string {
	return fmt.Sprintf("[%d:%d-%d:%d]", r.Start.Line, r.Start.Character, r.End.Line, r.End.Character)
}
