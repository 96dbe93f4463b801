package symbol

import (
	"iter"
	"slices"

	treesitterhelper "github.com/shopware/phpsymbols/internal/tree_sitter_helper"
)

// Table is the symbol tree of one file.
type Table struct {
	URI string `msgpack:"u"`
	// Hash is the xxhash of the file content the table was read from
	Hash uint64  `msgpack:"h"`
	Root *Symbol `msgpack:"r"`
}

// Symbols yields every symbol of the table depth first, root included.
func (t *Table) Symbols() iter.Seq[*Symbol] {
	return func(yield func(*Symbol) bool) {
		if t.Root == nil {
			return
		}

		stack := []*Symbol{t.Root}
		for len(stack) > 0 {
			sym := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(sym) {
				return
			}

			for i := len(sym.Children) - 1; i >= 0; i-- {
				stack = append(stack, sym.Children[i])
			}
		}
	}
}

// Find returns the symbols of the table matching predicate.
func (t *Table) Find(predicate Predicate) []*Symbol {
	var result []*Symbol
	for sym := range t.Symbols() {
		if matches(predicate, sym) {
			result = append(result, sym)
		}
	}
	return result
}

// ScopeAt returns the innermost function, method or closure whose location
// contains rng, or nil.
func (t *Table) ScopeAt(rng treesitterhelper.Range) *Symbol {
	var scope *Symbol

	var visit func(sym *Symbol)
	visit = func(sym *Symbol) {
		for _, child := range sym.Children {
			if child.Location == nil || !child.Location.Range.Contains(rng) {
				continue
			}
			if child.Kind.IsFunctionLike() && !child.IsMagic() {
				scope = child
			}
			visit(child)
		}
	}

	if t.Root != nil {
		visit(t.Root)
	}

	return scope
}

// ClassAt returns the innermost class-like containing pos, or nil.
func (t *Table) ClassAt(pos treesitterhelper.Position) *Symbol {
	var class *Symbol
	for sym := range t.Symbols() {
		if sym.Kind.IsClassLike() && sym.Location != nil && sym.Location.Range.ContainsPosition(pos) {
			class = sym
		}
	}
	return class
}

// PruneLocals removes the variable children of functions and methods. They
// are only needed while a file is open.
func (t *Table) PruneLocals() {
	for sym := range t.Symbols() {
		if !sym.Kind.IsFunctionLike() {
			continue
		}
		sym.Children = slices.DeleteFunc(sym.Children, func(child *Symbol) bool {
			return child.Kind == KindVariable
		})
	}
}

// IsScopeSymbol reports whether sym opens a lexical scope the reference pass
// re-enters, in the same order the declaration pass created them.
func IsScopeSymbol(sym *Symbol) bool {
	if sym.IsMagic() {
		return false
	}
	switch sym.Kind {
	case KindNamespace, KindClass, KindInterface, KindTrait, KindEnum, KindFunction, KindMethod:
		return true
	}
	return false
}

// ScopeSymbols returns the scope-opening symbols of the table in declaration order.
func (t *Table) ScopeSymbols() []*Symbol {
	var result []*Symbol
	for sym := range t.Symbols() {
		if IsScopeSymbol(sym) {
			result = append(result, sym)
		}
	}
	return result
}
