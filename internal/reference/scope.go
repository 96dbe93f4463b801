// Package reference holds the reference model of the index: every occurrence
// of a name in source, grouped into lexical scopes, the pass that discovers
// them and the workspace-wide reference store.
package reference

import (
	"iter"
	"slices"
	"strings"

	"github.com/shopware/phpsymbols/internal/symbol"
	treesitterhelper "github.com/shopware/phpsymbols/internal/tree_sitter_helper"
)

// Scope is a lexical region holding nested scopes and references in source
// order.
type Scope struct {
	Location symbol.Location `json:"location" msgpack:"l"`
	Children []Child         `json:"children,omitempty" msgpack:"c,omitempty"`
}

// Child is either a nested scope or a reference.
type Child struct {
	Scope     *Scope            `json:"scope,omitempty" msgpack:"s,omitempty"`
	Reference *symbol.Reference `json:"reference,omitempty" msgpack:"r,omitempty"`
}

func (s *Scope) addScope(scope *Scope) {
	s.Children = append(s.Children, Child{Scope: scope})
}

func (s *Scope) addReference(ref *symbol.Reference) {
	s.Children = append(s.Children, Child{Reference: ref})
}

// References yields the references of s and all nested scopes in source order.
func (s *Scope) References() iter.Seq[*symbol.Reference] {
	return func(yield func(*symbol.Reference) bool) {
		s.walk(yield)
	}
}

func (s *Scope) walk(yield func(*symbol.Reference) bool) bool {
	for _, child := range s.Children {
		if child.Reference != nil && !yield(child.Reference) {
			return false
		}
		if child.Scope != nil && !child.Scope.walk(yield) {
			return false
		}
	}
	return true
}

// Table is the reference tree of one file.
type Table struct {
	URI  string `json:"uri" msgpack:"u"`
	Root *Scope `json:"root" msgpack:"r"`
}

// References yields every reference of the table.
func (t *Table) References() iter.Seq[*symbol.Reference] {
	if t.Root == nil {
		return func(func(*symbol.Reference) bool) {}
	}
	return t.Root.References()
}

// Filter returns the references matching predicate.
func (t *Table) Filter(predicate func(ref *symbol.Reference) bool) []*symbol.Reference {
	var result []*symbol.Reference
	for ref := range t.References() {
		if predicate == nil || predicate(ref) {
			result = append(result, ref)
		}
	}
	return result
}

// ReferenceAt returns the reference with the smallest range containing pos,
// or nil.
func (t *Table) ReferenceAt(pos treesitterhelper.Position) *symbol.Reference {
	var best *symbol.Reference
	for ref := range t.References() {
		if !ref.Location.Range.ContainsPosition(pos) {
			continue
		}
		if best == nil || best.Location.Range.Contains(ref.Location.Range) {
			best = ref
		}
	}
	return best
}

// ScopeAt returns the innermost scope containing pos.
func (t *Table) ScopeAt(pos treesitterhelper.Position) *Scope {
	if t.Root == nil {
		return nil
	}

	scope := t.Root
	for {
		var next *Scope
		for _, child := range scope.Children {
			if child.Scope != nil && child.Scope.Location.Range.ContainsPosition(pos) {
				next = child.Scope
			}
		}
		if next == nil {
			return scope
		}
		scope = next
	}
}

// Identifiers returns the sorted, lower-cased names referenced by the table.
func (t *Table) Identifiers() []string {
	seen := make(map[string]bool)
	for ref := range t.References() {
		for _, id := range ref.Identifiers() {
			seen[id] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Summary is the identifier set of one file, kept for every known file
// whether its table is open or cached.
type Summary struct {
	URI         string   `msgpack:"u"`
	Identifiers []string `msgpack:"i"`
}

// NewSummary summarizes table.
func NewSummary(table *Table) *Summary {
	return &Summary{URI: table.URI, Identifiers: table.Identifiers()}
}

// Mentions reports whether the file may reference name.
func (s *Summary) Mentions(name string) bool {
	_, found := slices.BinarySearch(s.Identifiers, strings.ToLower(name))
	return found
}
