// Package symbol holds the declaration model of the index: symbols read from
// PHP files, the per-file symbol table, the workspace-wide store and the
// inheritance aggregate used to list members of class-likes.
package symbol

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	treesitterhelper "github.com/shopware/phpsymbols/internal/tree_sitter_helper"
)

// Kind classifies a symbol or a reference.
type Kind uint8

const (
	KindNone Kind = iota
	KindFile
	KindNamespace
	KindClass
	KindInterface
	KindTrait
	KindEnum
	KindEnumCase
	KindConstant
	KindClassConstant
	KindProperty
	KindMethod
	KindFunction
	KindParameter
	KindVariable
)

var kindNames = map[Kind]string{
	KindNone:          "none",
	KindFile:          "file",
	KindNamespace:     "namespace",
	KindClass:         "class",
	KindInterface:     "interface",
	KindTrait:         "trait",
	KindEnum:          "enum",
	KindEnumCase:      "enumCase",
	KindConstant:      "constant",
	KindClassConstant: "classConstant",
	KindProperty:      "property",
	KindMethod:        "method",
	KindFunction:      "function",
	KindParameter:     "parameter",
	KindVariable:      "variable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind returns the kind named name, or KindNone.
func ParseKind(name string) Kind {
	for kind, kindName := range kindNames {
		if strings.EqualFold(kindName, name) {
			return kind
		}
	}
	return KindNone
}

// IsClassLike reports whether k declares a type.
func (k Kind) IsClassLike() bool {
	switch k {
	case KindClass, KindInterface, KindTrait, KindEnum:
		return true
	}
	return false
}

// IsMember reports whether k is declared inside a class-like.
func (k Kind) IsMember() bool {
	switch k {
	case KindMethod, KindProperty, KindClassConstant, KindEnumCase:
		return true
	}
	return false
}

// IsFunctionLike reports whether k owns parameters and local variables.
func (k Kind) IsFunctionLike() bool {
	return k == KindFunction || k == KindMethod
}

// IsCaseSensitive reports whether names of kind k compare case-sensitively.
// PHP treats class, function and method names case-insensitively.
func (k Kind) IsCaseSensitive() bool {
	switch k {
	case KindConstant, KindClassConstant, KindEnumCase, KindProperty, KindVariable, KindParameter:
		return true
	}
	return false
}

// NamesEqual compares two names the way PHP compares names of kind k.
func (k Kind) NamesEqual(a, b string) bool {
	if k.IsCaseSensitive() {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// Modifier is a bitset of declaration modifiers.
type Modifier uint32

const (
	ModifierPublic Modifier = 1 << iota
	ModifierProtected
	ModifierPrivate
	ModifierFinal
	ModifierAbstract
	ModifierStatic
	ModifierReadOnly
	// ModifierMagic marks members declared by @property and @method doc tags
	ModifierMagic
	ModifierAnonymous
	ModifierReference
	ModifierVariadic
	// ModifierUse marks import rules created by use declarations
	ModifierUse
	ModifierWriteOnly
	ModifierReadOnlyMagic
	ModifierNullable

	ModifierNone Modifier = 0

	visibilityModifiers = ModifierPublic | ModifierProtected | ModifierPrivate
)

// Has reports whether all bits of o are set.
func (m Modifier) Has(o Modifier) bool {
	return m&o == o
}

// Visibility returns only the visibility bits of m.
func (m Modifier) Visibility() Modifier {
	return m & visibilityModifiers
}

var modifierNames = []struct {
	modifier Modifier
	name     string
}{
	{ModifierPublic, "public"},
	{ModifierProtected, "protected"},
	{ModifierPrivate, "private"},
	{ModifierFinal, "final"},
	{ModifierAbstract, "abstract"},
	{ModifierStatic, "static"},
	{ModifierReadOnly, "readonly"},
	{ModifierMagic, "magic"},
	{ModifierAnonymous, "anonymous"},
	{ModifierReference, "reference"},
	{ModifierVariadic, "variadic"},
	{ModifierUse, "use"},
	{ModifierWriteOnly, "write-only"},
	{ModifierReadOnlyMagic, "read-only"},
	{ModifierNullable, "nullable"},
}

func (m Modifier) String() string {
	var names []string
	for _, entry := range modifierNames {
		if m.Has(entry.modifier) {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, " ")
}

// Doc is the documentation attached to a symbol.
type Doc struct {
	Description string `json:"description,omitempty" msgpack:"d,omitempty"`
	// Type is the type declared by the doc comment, already name-resolved
	Type string `json:"type,omitempty" msgpack:"t,omitempty"`
}

// HasDescription reports whether d carries text other than an inheritdoc marker.
func (d *Doc) HasDescription() bool {
	return d != nil && d.Description != ""
}

// Location identifies a span in a file. The file is stored as the hash of its
// URI; Store.Location resolves it back into a URI.
type Location struct {
	URIHash uint64                 `json:"uriHash" msgpack:"u"`
	Range   treesitterhelper.Range `json:"range" msgpack:"r"`
}

// HashURI returns the identity hash stored in a Location.
func HashURI(uri string) uint64 {
	return xxhash.Sum64String(uri)
}

// Symbol is a declaration. Associated entries are unresolved stubs carrying a
// kind and a fully qualified name.
type Symbol struct {
	Kind       Kind      `json:"kind" msgpack:"k"`
	Name       string    `json:"name" msgpack:"n"`
	Modifiers  Modifier  `json:"modifiers,omitempty" msgpack:"m,omitempty"`
	Type       string    `json:"type,omitempty" msgpack:"t,omitempty"`
	Associated []*Symbol `json:"associated,omitempty" msgpack:"a,omitempty"`
	Children   []*Symbol `json:"children,omitempty" msgpack:"c,omitempty"`
	Value      string    `json:"value,omitempty" msgpack:"v,omitempty"`
	Doc        *Doc      `json:"doc,omitempty" msgpack:"d,omitempty"`
	Location   *Location `json:"location,omitempty" msgpack:"l,omitempty"`
	// Scope is the owning class-like for members and the owning function for
	// parameters and variables
	Scope string `json:"scope,omitempty" msgpack:"s,omitempty"`
}

// NewStub creates an unresolved associated-type entry.
func NewStub(kind Kind, name string) *Symbol {
	return &Symbol{Kind: kind, Name: name}
}

// ShortName returns the name without its namespace.
func (s *Symbol) ShortName() string {
	if i := strings.LastIndex(s.Name, "\\"); i >= 0 {
		return s.Name[i+1:]
	}
	return s.Name
}

// NamespaceName returns the namespace part of the name.
func (s *Symbol) NamespaceName() string {
	if i := strings.LastIndex(s.Name, "\\"); i >= 0 {
		return s.Name[:i]
	}
	return ""
}

// IsMagic reports whether s was declared by a doc tag.
func (s *Symbol) IsMagic() bool {
	return s.Modifiers.Has(ModifierMagic)
}

// IsPrivate reports whether s is private.
func (s *Symbol) IsPrivate() bool {
	return s.Modifiers.Has(ModifierPrivate)
}

// DocType returns the doc declared type or "".
func (s *Symbol) DocType() string {
	if s.Doc == nil {
		return ""
	}
	return s.Doc.Type
}

// Child returns the first child of kind named name.
func (s *Symbol) Child(kind Kind, name string) *Symbol {
	for _, child := range s.Children {
		if child.Kind == kind && kind.NamesEqual(child.Name, name) {
			return child
		}
	}
	return nil
}

// Walk visits s and its descendants depth first. Returning false from fn skips
// the children of the visited symbol.
func (s *Symbol) Walk(fn func(sym *Symbol) bool) {
	if !fn(s) {
		return
	}
	for _, child := range s.Children {
		child.Walk(fn)
	}
}

// Clone returns a shallow copy of s with its own Doc.
func (s *Symbol) Clone() *Symbol {
	clone := *s
	if s.Doc != nil {
		doc := *s.Doc
		clone.Doc = &doc
	}
	return &clone
}

// Predicate filters symbols.
type Predicate func(sym *Symbol) bool

// KindPredicate matches symbols of one of the given kinds.
func KindPredicate(kinds ...Kind) Predicate {
	return func(sym *Symbol) bool {
		for _, kind := range kinds {
			if sym.Kind == kind {
				return true
			}
		}
		return false
	}
}

// ClassLikePredicate matches classes, interfaces, traits and enums.
func ClassLikePredicate(sym *Symbol) bool {
	return sym.Kind.IsClassLike()
}

// MemberPredicate matches methods, properties, class constants and enum cases.
func MemberPredicate(sym *Symbol) bool {
	return sym.Kind.IsMember()
}

// And combines predicates. Nil predicates are ignored.
func And(predicates ...Predicate) Predicate {
	return func(sym *Symbol) bool {
		for _, predicate := range predicates {
			if predicate != nil && !predicate(sym) {
				return false
			}
		}
		return true
	}
}

func matches(predicate Predicate, sym *Symbol) bool {
	return predicate == nil || predicate(sym)
}
