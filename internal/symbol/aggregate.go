package symbol

import (
	"strings"

	"github.com/shopware/phpsymbols/internal/phpdoc"
	"github.com/shopware/phpsymbols/internal/typestring"
)

// MergeStrategy decides which of several same-named members declared along an
// inheritance chain is kept.
type MergeStrategy int

const (
	// MergeNone keeps every member.
	MergeNone MergeStrategy = iota
	// MergeOverride keeps the most derived member. Members declared by doc tags
	// never hide a real declaration.
	MergeOverride
	// MergeDocumented keeps the most derived member unless it lacks
	// documentation or only inherits it and a base member is documented.
	MergeDocumented
	// MergeBase keeps the most base member.
	MergeBase
)

func (s MergeStrategy) String() string {
	switch s {
	case MergeOverride:
		return "override"
	case MergeDocumented:
		return "documented"
	case MergeBase:
		return "base"
	default:
		return "none"
	}
}

// ParseMergeStrategy maps a strategy name onto a MergeStrategy, defaulting
// to MergeOverride.
func ParseMergeStrategy(name string) MergeStrategy {
	switch strings.ToLower(name) {
	case "none":
		return MergeNone
	case "documented":
		return MergeDocumented
	case "base":
		return MergeBase
	default:
		return MergeOverride
	}
}

// Aggregate is the inheritance-flattened view of one class-like. When a
// name is declared more than once in the workspace all declarations take part.
type Aggregate struct {
	lookup        func(name string) []*Symbol
	symbols       []*Symbol
	excludeTraits bool

	resolved   bool
	associated []*Symbol
}

// NewAggregate creates an aggregate over symbols resolving associated types
// through store. With excludeTraits set the members of used traits are left
// out of Members.
func NewAggregate(store *Store, symbols []*Symbol, excludeTraits bool) *Aggregate {
	return newAggregate(func(name string) []*Symbol {
		return store.Find(name, ClassLikePredicate)
	}, symbols, excludeTraits)
}

func newAggregate(lookup func(name string) []*Symbol, symbols []*Symbol, excludeTraits bool) *Aggregate {
	return &Aggregate{
		lookup:        lookup,
		symbols:       symbols,
		excludeTraits: excludeTraits,
	}
}

// Name returns the name of the aggregated type.
func (a *Aggregate) Name() string {
	if len(a.symbols) == 0 {
		return ""
	}
	return a.symbols[0].Name
}

// Kind returns the kind of the aggregated type.
func (a *Aggregate) Kind() Kind {
	if len(a.symbols) == 0 {
		return KindNone
	}
	return a.symbols[0].Kind
}

// Associated returns every type the aggregated type inherits from, directly
// or transitively, in derived-to-base breadth-first order. Each symbol is
// listed once, so inheritance cycles terminate.
func (a *Aggregate) Associated() []*Symbol {
	if a.resolved {
		return a.associated
	}
	a.resolved = true

	seen := make(map[*Symbol]bool, len(a.symbols))
	seenNames := make(map[string]bool)
	for _, sym := range a.symbols {
		seen[sym] = true
		seenNames[strings.ToLower(sym.Name)] = true
	}

	var queue []*Symbol
	for _, sym := range a.symbols {
		queue = append(queue, sym.Associated...)
	}

	for len(queue) > 0 {
		stub := queue[0]
		queue = queue[1:]

		key := strings.ToLower(stub.Name)
		if seenNames[key] {
			continue
		}
		seenNames[key] = true

		for _, sym := range a.lookup(stub.Name) {
			if seen[sym] {
				continue
			}
			seen[sym] = true
			a.associated = append(a.associated, sym)
			queue = append(queue, sym.Associated...)
		}
	}

	return a.associated
}

// IsAssociated reports whether the aggregated type is, or inherits from, name.
func (a *Aggregate) IsAssociated(name string) bool {
	for _, sym := range a.symbols {
		if strings.EqualFold(sym.Name, name) {
			return true
		}
	}
	for _, sym := range a.Associated() {
		if strings.EqualFold(sym.Name, name) {
			return true
		}
	}
	return false
}

// Members returns the members of the aggregated type matching predicate,
// merged with strategy.
//
// For classes and enums the own members come first, followed by the
// non-private members of base classes and interfaces and finally the members
// of used traits. Interfaces and traits list their own members followed by
// those of every ancestor.
func (a *Aggregate) Members(strategy MergeStrategy, predicate Predicate) []*Symbol {
	var members []*Symbol

	collect := func(sym *Symbol, skipPrivate bool) {
		for _, child := range sym.Children {
			if !child.Kind.IsMember() {
				continue
			}
			if skipPrivate && child.IsPrivate() {
				continue
			}
			if matches(predicate, child) {
				members = append(members, child)
			}
		}
	}

	for _, sym := range a.symbols {
		collect(sym, false)
	}

	switch a.Kind() {
	case KindClass, KindEnum:
		var traits []*Symbol
		for _, sym := range a.Associated() {
			if sym.Kind == KindTrait {
				traits = append(traits, sym)
				continue
			}
			collect(sym, true)
		}
		if !a.excludeTraits {
			for _, trait := range traits {
				collect(trait, false)
			}
		}
	default:
		for _, sym := range a.Associated() {
			collect(sym, false)
		}
	}

	return a.resolveThisOrStatic(mergeMembers(strategy, members))
}

// resolveThisOrStatic rewrites member types mentioning self, static or $this
// to the aggregated type instead of the declaring ancestor.
func (a *Aggregate) resolveThisOrStatic(members []*Symbol) []*Symbol {
	name := a.Name()
	if name == "" {
		return members
	}

	for i, member := range members {
		if !typestring.MentionsThisOrStatic(member.DocType()) && !typestring.MentionsThisOrStatic(member.Type) {
			continue
		}

		resolved := member.Clone()
		resolved.Type = typestring.ResolveThisOrStatic(resolved.Type, name)
		if resolved.Doc != nil {
			resolved.Doc.Type = typestring.ResolveThisOrStatic(resolved.Doc.Type, name)
		}
		members[i] = resolved
	}

	return members
}

func memberKey(sym *Symbol) string {
	switch sym.Kind {
	case KindMethod:
		return "m:" + strings.ToLower(sym.Name)
	case KindProperty:
		return "p:" + sym.Name
	default:
		return "c:" + sym.Name
	}
}

// mergeMembers collapses same-named members listed in derived-to-base order.
func mergeMembers(strategy MergeStrategy, members []*Symbol) []*Symbol {
	if strategy == MergeNone {
		return members
	}

	kept := make(map[string]int, len(members))
	var result []*Symbol

	for _, member := range members {
		key := memberKey(member)
		index, ok := kept[key]
		if !ok {
			kept[key] = len(result)
			result = append(result, member)
			continue
		}

		current := result[index]
		replace := false

		switch strategy {
		case MergeOverride:
			replace = current.IsMagic() && !member.IsMagic()
		case MergeDocumented:
			replace = !isDocumented(current) && isDocumented(member)
		case MergeBase:
			replace = true
		}

		if replace {
			result[index] = member
		}
	}

	return result
}

func isDocumented(sym *Symbol) bool {
	return sym.Doc.HasDescription() && !phpdoc.IsInheritDoc(sym.Doc.Description)
}
