package symbol

import (
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/shopware/phpsymbols/internal/nameindex"
	treesitterhelper "github.com/shopware/phpsymbols/internal/tree_sitter_helper"
	"github.com/shopware/phpsymbols/internal/typestring"
)

// URILocation is a Location resolved back to its file URI.
type URILocation struct {
	URI   string                 `json:"uri"`
	Range treesitterhelper.Range `json:"range"`
}

// Store is the workspace-wide registry of symbol tables. Tables are bucketed
// by the hash of their URI; every indexable symbol of a registered table is
// in the name index.
type Store struct {
	mu     sync.RWMutex
	tables map[uint64][]*Table
	count  int
	index  *nameindex.Index[*Symbol]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tables: make(map[uint64][]*Table),
		index:  nameindex.New(symbolKeys),
	}
}

// symbolKeys indexes a symbol under the suffixes of its full name and, for
// namespaced names, of its short name.
func symbolKeys(sym *Symbol) []string {
	keys := nameindex.SuffixKeys(sym.Name)

	if short := sym.ShortName(); short != sym.Name {
		seen := make(map[string]bool, len(keys))
		for _, key := range keys {
			seen[key] = true
		}
		for _, key := range nameindex.SuffixKeys(short) {
			if !seen[key] {
				keys = append(keys, key)
			}
		}
	}

	return keys
}

// isIndexable reports whether sym is findable by name. Parameters, import
// rules, anonymous declarations and local variables are not.
func isIndexable(sym *Symbol) bool {
	switch sym.Kind {
	case KindFile, KindParameter, KindVariable, KindNone:
		return false
	}
	return !sym.Modifiers.Has(ModifierUse) && !sym.Modifiers.Has(ModifierAnonymous)
}

func indexableSymbols(table *Table) []*Symbol {
	var symbols []*Symbol
	if table.Root == nil {
		return nil
	}

	table.Root.Walk(func(sym *Symbol) bool {
		if sym.Modifiers.Has(ModifierAnonymous) {
			return false
		}
		if isIndexable(sym) {
			symbols = append(symbols, sym)
		}
		return true
	})

	return symbols
}

// Add registers table, replacing any table previously registered for its URI.
func (s *Store) Add(table *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(table.URI)

	hash := HashURI(table.URI)
	s.tables[hash] = append(s.tables[hash], table)
	s.count++
	s.index.AddMany(indexableSymbols(table))
}

// Remove unregisters the table of uri. It returns the removed table or nil.
func (s *Store) Remove(uri string) *Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(uri)
}

func (s *Store) remove(uri string) *Table {
	hash := HashURI(uri)
	bucket := s.tables[hash]

	for i, table := range bucket {
		if table.URI != uri {
			continue
		}

		s.index.RemoveMany(indexableSymbols(table))

		bucket = append(bucket[:i], bucket[i+1:]...)
		if len(bucket) == 0 {
			delete(s.tables, hash)
		} else {
			s.tables[hash] = bucket
		}
		s.count--

		return table
	}

	return nil
}

// Table returns the table registered for uri or nil.
func (s *Store) Table(uri string) *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.table(uri)
}

func (s *Store) table(uri string) *Table {
	for _, table := range s.tables[HashURI(uri)] {
		if table.URI == uri {
			return table
		}
	}
	return nil
}

// Tables returns every registered table.
func (s *Store) Tables() []*Table {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tables := make([]*Table, 0, s.count)
	for _, bucket := range s.tables {
		tables = append(tables, bucket...)
	}
	return tables
}

// Count returns the number of registered tables.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.count
}

// SymbolCount returns the number of distinct index keys.
func (s *Store) SymbolCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.index.Len()
}

// Find returns the symbols named exactly name that match predicate. Names
// compare case-sensitively for constants, variables and properties.
func (s *Store) Find(name string, predicate Predicate) []*Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.find(name, predicate)
}

func (s *Store) find(name string, predicate Predicate) []*Symbol {
	name = strings.TrimPrefix(name, "\\")
	if name == "" {
		return nil
	}

	var result []*Symbol
	for _, sym := range s.index.Find(name) {
		if !sym.Kind.NamesEqual(sym.Name, name) {
			continue
		}
		if matches(predicate, sym) {
			result = append(result, sym)
		}
	}
	return result
}

// Match returns the symbols with a name fragment starting with text.
func (s *Store) Match(text string, predicate Predicate) []*Symbol {
	var result []*Symbol
	for sym := range s.MatchIterator(text, predicate) {
		result = append(result, sym)
	}
	return result
}

// MatchIterator lazily yields the symbols with a name fragment starting with
// text. The store is read-locked while the sequence is ranged over, so the loop
// body must not call back into the store.
func (s *Store) MatchIterator(text string, predicate Predicate) iter.Seq[*Symbol] {
	return func(yield func(*Symbol) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		for sym := range s.index.MatchIterator(text) {
			if !matches(predicate, sym) {
				continue
			}
			if !yield(sym) {
				return
			}
		}
	}
}

// FindMembers returns the members of every class-like named by the atoms of
// the type-string scope, merged with strategy.
func (s *Store) FindMembers(scope string, strategy MergeStrategy, predicate Predicate) []*Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findMembers(scope, strategy, predicate)
}

func (s *Store) findMembers(scope string, strategy MergeStrategy, predicate Predicate) []*Symbol {
	var result []*Symbol

	for _, name := range typestring.AtomicClassArray(scope) {
		classes := s.find(name, ClassLikePredicate)
		if len(classes) == 0 {
			continue
		}

		result = append(result, s.aggregate(classes, false).Members(strategy, predicate)...)
	}

	return result
}

// Aggregate returns the inheritance view of the class-like named name, or
// nil when it is unknown.
func (s *Store) Aggregate(name string) *Aggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	classes := s.find(name, ClassLikePredicate)
	if len(classes) == 0 {
		return nil
	}

	// resolve eagerly while holding the lock
	agg := s.aggregate(classes, false)
	agg.Associated()
	return agg
}

func (s *Store) aggregate(classes []*Symbol, excludeTraits bool) *Aggregate {
	return newAggregate(func(name string) []*Symbol {
		return s.find(name, ClassLikePredicate)
	}, classes, excludeTraits)
}

// FindSymbolsByReference resolves ref to the symbols it denotes.
func (s *Store) FindSymbolsByReference(ref *Reference, strategy MergeStrategy) []*Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findSymbolsByReference(ref, strategy)
}

func (s *Store) findSymbolsByReference(ref *Reference, strategy MergeStrategy) []*Symbol {
	if ref == nil {
		return nil
	}

	switch ref.Kind {
	case KindClass, KindInterface, KindTrait, KindEnum:
		return s.findWithFallback(ref, ClassLikePredicate)

	case KindFunction:
		return s.findWithFallback(ref, KindPredicate(KindFunction))

	case KindConstant:
		return s.findWithFallback(ref, KindPredicate(KindConstant))

	case KindNamespace:
		return s.find(ref.Name, KindPredicate(KindNamespace))

	case KindMethod, KindProperty, KindClassConstant, KindEnumCase:
		kinds := []Kind{ref.Kind}
		if ref.Kind == KindClassConstant || ref.Kind == KindEnumCase {
			kinds = []Kind{KindClassConstant, KindEnumCase}
		}
		kind := KindPredicate(kinds...)

		return s.findMembers(ref.Scope, strategy, func(sym *Symbol) bool {
			return kind(sym) && sym.Kind.NamesEqual(sym.Name, ref.Name)
		})

	case KindParameter, KindVariable:
		return s.findLocals(ref)
	}

	panic(fmt.Sprintf("cannot resolve reference %q of kind %s", ref.Name, ref.Kind))
}

func (s *Store) findWithFallback(ref *Reference, predicate Predicate) []*Symbol {
	result := s.find(ref.Name, predicate)
	if len(result) == 0 && ref.AltName != "" {
		result = s.find(ref.AltName, predicate)
	}
	return result
}

// findLocals resolves a parameter or variable through the function enclosing
// the reference in its own file.
func (s *Store) findLocals(ref *Reference) []*Symbol {
	var result []*Symbol

	for _, table := range s.tables[ref.Location.URIHash] {
		scope := table.ScopeAt(ref.Location.Range)
		if scope == nil {
			continue
		}

		for _, child := range scope.Children {
			if (child.Kind == KindParameter || child.Kind == KindVariable) && child.Name == ref.Name {
				result = append(result, child)
			}
		}
	}

	return result
}

// FindBaseMember walks up the inheritance chain of a member's class-like and
// returns the most base declaration with the same kind, name and modifiers.
// Private members and members of unknown classes are their own base.
func (s *Store) FindBaseMember(member *Symbol) *Symbol {
	if member == nil || !member.Kind.IsMember() || member.IsPrivate() || member.Scope == "" {
		return member
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	base := member
	modifiers := member.Modifiers &^ (ModifierAbstract | ModifierFinal)

	for _, candidate := range s.findMembers(member.Scope, MergeNone, func(sym *Symbol) bool {
		return sym.Kind == member.Kind &&
			sym.Kind.NamesEqual(sym.Name, member.Name) &&
			sym.Modifiers&^(ModifierAbstract|ModifierFinal) == modifiers
	}) {
		base = candidate
	}

	return base
}

// Location resolves a Location back to its file URI. A hash shared by the
// URIs of several registered tables is ambiguous and does not resolve.
func (s *Store) Location(loc *Location) (URILocation, bool) {
	if loc == nil {
		return URILocation{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.tables[loc.URIHash]
	if len(bucket) != 1 {
		return URILocation{}, false
	}

	return URILocation{URI: bucket[0].URI, Range: loc.Range}, true
}

// SymbolLocation returns the file and range sym was declared at. When the
// URI hash is shared, the table declaring sym decides.
func (s *Store) SymbolLocation(sym *Symbol) (URILocation, bool) {
	if sym == nil || sym.Location == nil {
		return URILocation{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.tables[sym.Location.URIHash]
	if len(bucket) == 1 {
		return URILocation{URI: bucket[0].URI, Range: sym.Location.Range}, true
	}

	for _, table := range bucket {
		for candidate := range table.Symbols() {
			if sameDeclaration(candidate, sym) {
				return URILocation{URI: table.URI, Range: sym.Location.Range}, true
			}
		}
	}

	return URILocation{}, false
}

// sameDeclaration matches sym against a table symbol, also when sym is a
// copy made while aggregating members.
func sameDeclaration(candidate, sym *Symbol) bool {
	if candidate == sym {
		return true
	}
	return candidate.Kind == sym.Kind &&
		candidate.Name == sym.Name &&
		candidate.Location != nil &&
		candidate.Location.Range == sym.Location.Range
}

// ReferenceToTypeString returns the type of the value ref denotes. Variables
// and parameters carry the type inferred by the reference pass; everything
// else merges the types of the symbols it resolves to.
func (s *Store) ReferenceToTypeString(ref *Reference) string {
	if ref == nil {
		return ""
	}

	switch ref.Kind {
	case KindVariable, KindParameter:
		return ref.Type
	case KindClass, KindInterface, KindTrait, KindEnum:
		return ref.Name
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := ""
	for _, sym := range s.findSymbolsByReference(ref, MergeOverride) {
		symType := sym.Type
		if sym.Kind.IsMember() {
			for _, scope := range typestring.AtomicClassArray(ref.Scope) {
				symType = typestring.ResolveThisOrStatic(symType, scope)
			}
		}
		result = typestring.Merge(result, symType)
	}

	return result
}
