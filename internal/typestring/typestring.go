// Package typestring implements the compact textual encoding used for inferred
// and declared PHP types. A type-string is a union of atoms separated by "|".
// An atom is either a keyword (int, string, $this, ...), a class-like name, or an
// array atom written as "Foo[]" or "(Foo|Bar)[]".
package typestring

import (
	"strings"
)

// keywords are the scalar and pseudo types that never name a class.
var keywords = map[string]bool{
	"string":       true,
	"int":          true,
	"integer":      true,
	"float":        true,
	"double":       true,
	"bool":         true,
	"boolean":      true,
	"array":        true,
	"object":       true,
	"callable":     true,
	"iterable":     true,
	"void":         true,
	"null":         true,
	"mixed":        true,
	"never":        true,
	"resource":     true,
	"false":        true,
	"true":         true,
	"number":       true,
	"self":         true,
	"static":       true,
	"parent":       true,
	"$this":        true,
	"class-string": true,
	"array-key":    true,
	"scalar":       true,
	"numeric":      true,
	"closure":      true,
}

// IsKeyword reports whether atom is a scalar or pseudo type keyword.
func IsKeyword(atom string) bool {
	return keywords[strings.ToLower(atom)]
}

// IsArray reports whether atom is an array atom ("Foo[]" or "(A|B)[]").
func IsArray(atom string) bool {
	return strings.HasSuffix(atom, "[]")
}

// Atoms splits t into its top-level atoms. Separators nested inside
// parentheses or angle brackets are not split on.
func Atoms(t string) []string {
	if t == "" {
		return nil
	}

	var atoms []string
	depth := 0
	start := 0

	for i := 0; i < len(t); i++ {
		switch t[i] {
		case '(', '<':
			depth++
		case ')', '>':
			if depth > 0 {
				depth--
			}
		case '|':
			if depth == 0 {
				if atom := strings.TrimSpace(t[start:i]); atom != "" {
					atoms = append(atoms, atom)
				}
				start = i + 1
			}
		}
	}

	if atom := strings.TrimSpace(t[start:]); atom != "" {
		atoms = append(atoms, atom)
	}

	return atoms
}

// Count returns the number of atoms in t.
func Count(t string) int {
	return len(Atoms(t))
}

// Merge returns the union of the atoms of a and b in insertion order.
func Merge(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" || a == b {
		return a
	}

	atoms := Atoms(a)
	seen := make(map[string]bool, len(atoms))
	for _, atom := range atoms {
		seen[atom] = true
	}

	added := false
	for _, atom := range Atoms(b) {
		if seen[atom] {
			continue
		}
		seen[atom] = true
		atoms = append(atoms, atom)
		added = true
	}

	if !added {
		return a
	}

	return strings.Join(atoms, "|")
}

// MergeMany folds Merge over types starting from the empty type.
func MergeMany(types ...string) string {
	merged := ""
	for _, t := range types {
		merged = Merge(merged, t)
	}
	return merged
}

// ArrayDereference returns the element type of every array atom in t.
// Atoms that are not arrays contribute nothing.
func ArrayDereference(t string) string {
	result := ""

	for _, atom := range Atoms(t) {
		if !IsArray(atom) {
			continue
		}

		element := strings.TrimSuffix(atom, "[]")
		if strings.HasPrefix(element, "(") && strings.HasSuffix(element, ")") {
			element = element[1 : len(element)-1]
		}

		result = Merge(result, element)
	}

	return result
}

// ArrayReference wraps t into an array atom.
func ArrayReference(t string) string {
	atoms := Atoms(t)

	switch len(atoms) {
	case 0:
		return ""
	case 1:
		return atoms[0] + "[]"
	default:
		return "(" + strings.Join(atoms, "|") + ")[]"
	}
}

// AtomicClassArray returns the class-like names referenced directly by t.
func AtomicClassArray(t string) []string {
	var classes []string

	for _, atom := range Atoms(t) {
		if IsArray(atom) || IsKeyword(atom) || strings.ContainsAny(atom, "<({") {
			continue
		}
		classes = append(classes, atom)
	}

	return classes
}

// NameResolve qualifies every class-like atom of t with resolve, including the
// element atoms of array types. Keyword atoms are left untouched and a leading
// "\" is stripped.
func NameResolve(t string, resolve func(name string) string) string {
	if t == "" {
		return ""
	}

	atoms := Atoms(t)
	for i, atom := range atoms {
		atoms[i] = resolveAtom(atom, resolve)
	}

	return strings.Join(atoms, "|")
}

func resolveAtom(atom string, resolve func(name string) string) string {
	if IsArray(atom) {
		element := strings.TrimSuffix(atom, "[]")
		if strings.HasPrefix(element, "(") && strings.HasSuffix(element, ")") {
			return "(" + NameResolve(element[1:len(element)-1], resolve) + ")[]"
		}
		return resolveAtom(element, resolve) + "[]"
	}

	if IsKeyword(atom) {
		return atom
	}

	if strings.HasPrefix(atom, "\\") {
		return atom[1:]
	}

	if strings.ContainsAny(atom, "<({") {
		return atom
	}

	return resolve(atom)
}

// ResolveThisOrStatic substitutes the self, static and $this atoms of t with fqn.
func ResolveThisOrStatic(t, fqn string) string {
	if t == "" || fqn == "" {
		return t
	}

	atoms := Atoms(t)
	changed := false

	for i, atom := range atoms {
		replaced := replaceThisOrStatic(atom, fqn)
		if replaced != atom {
			atoms[i] = replaced
			changed = true
		}
	}

	if !changed {
		return t
	}

	return MergeMany(atoms...)
}

func replaceThisOrStatic(atom, fqn string) string {
	if IsArray(atom) {
		element := strings.TrimSuffix(atom, "[]")
		if strings.HasPrefix(element, "(") && strings.HasSuffix(element, ")") {
			return ArrayReference(ResolveThisOrStatic(element[1:len(element)-1], fqn))
		}
		return replaceThisOrStatic(element, fqn) + "[]"
	}

	switch strings.ToLower(atom) {
	case "self", "static", "$this":
		return fqn
	}

	return atom
}

// MentionsThisOrStatic reports whether t contains a self, static or $this atom.
func MentionsThisOrStatic(t string) bool {
	for _, atom := range Atoms(t) {
		atom = strings.TrimSuffix(atom, "[]")
		if strings.HasPrefix(atom, "(") {
			if MentionsThisOrStatic(strings.TrimSuffix(atom[1:], ")")) {
				return true
			}
			continue
		}
		switch strings.ToLower(atom) {
		case "self", "static", "$this":
			return true
		}
	}
	return false
}

// genericArrays are the doc generic forms whose last argument is the element type.
var genericArrays = map[string]bool{
	"array":             true,
	"list":              true,
	"iterable":          true,
	"non-empty-array":   true,
	"non-empty-list":    true,
	"traversable":       true,
	"iterator":          true,
	"generator":         true,
	"iteratoraggregate": true,
}

// FromGeneric rewrites doc generic atoms such as "array<int, Foo>" and
// "list<Foo>" into array atoms ("Foo[]"). Class generics keep their base name
// alongside the element array; unknown generics keep only the base name.
func FromGeneric(t string) string {
	if !strings.Contains(t, "<") {
		return t
	}

	result := ""
	for _, atom := range Atoms(t) {
		open := strings.Index(atom, "<")
		if open <= 0 || !strings.HasSuffix(atom, ">") {
			result = Merge(result, atom)
			continue
		}

		base := atom[:open]
		plain := strings.ToLower(strings.TrimPrefix(base, "\\"))
		if !genericArrays[plain] {
			result = Merge(result, base)
			continue
		}

		if !keywords[plain] && plain != "list" && !strings.HasPrefix(plain, "non-empty-") {
			result = Merge(result, base)
		}

		args := splitArguments(atom[open+1 : len(atom)-1])
		element := FromGeneric(strings.TrimSpace(args[len(args)-1]))
		result = Merge(result, ArrayReference(element))
	}

	return result
}

func splitArguments(list string) []string {
	var args []string
	depth := 0
	start := 0

	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(', '<', '{':
			depth++
		case ')', '>', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				args = append(args, list[start:i])
				start = i + 1
			}
		}
	}

	return append(args, list[start:])
}

// Normalize converts a declared type into a type-string: a nullable "?Foo"
// becomes "Foo|null" and intersection types are kept as a single atom.
func Normalize(declared string) string {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return ""
	}

	if strings.HasPrefix(declared, "?") {
		return Merge(Normalize(declared[1:]), "null")
	}

	atoms := Atoms(declared)
	for i, atom := range atoms {
		atom = strings.Trim(atom, " ")
		if strings.HasPrefix(atom, "(") && strings.HasSuffix(atom, ")") && !IsArray(atom) {
			atom = atom[1 : len(atom)-1]
		}
		atoms[i] = atom
	}

	return MergeMany(atoms...)
}
