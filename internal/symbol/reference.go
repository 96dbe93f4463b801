package symbol

import "strings"

// Reference is one occurrence of a name in source, resolved to the kind, name
// and, for members, the owning type of what it denotes.
type Reference struct {
	Kind Kind   `json:"kind" msgpack:"k"`
	Name string `json:"name" msgpack:"n"`
	// Scope is the type-string of the object or class a member is accessed on
	Scope    string   `json:"scope,omitempty" msgpack:"s,omitempty"`
	Location Location `json:"location" msgpack:"l"`
	Type     string   `json:"type,omitempty" msgpack:"t,omitempty"`
	// AltName is the name as written, used when Name does not resolve
	// (unqualified functions and constants fall back to the global namespace)
	AltName string `json:"altName,omitempty" msgpack:"a,omitempty"`
}

// Identifiers returns the lower-cased names under which r is found.
func (r *Reference) Identifiers() []string {
	ids := []string{strings.ToLower(r.Name)}
	if r.AltName != "" && strings.ToLower(r.AltName) != ids[0] {
		ids = append(ids, strings.ToLower(r.AltName))
	}
	return ids
}

// MatchesName reports whether r refers to name, comparing case-sensitively for
// constants, class constants, properties and variables.
func (r *Reference) MatchesName(name string) bool {
	if r.Kind.NamesEqual(r.Name, name) {
		return true
	}
	return r.AltName != "" && r.Kind.NamesEqual(r.AltName, name)
}
