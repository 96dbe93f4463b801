package symbol

import (
	"strings"

	"github.com/shopware/phpsymbols/internal/typestring"
)

// NameResolver turns names written in source into fully qualified names.
// It tracks the current namespace, the stack of enclosing class-likes and the
// import rules of the active namespace.
type NameResolver struct {
	// Namespace is the current namespace without leading or trailing separators
	Namespace string
	classes   []*Symbol
	rules     []*Symbol
}

// NewNameResolver creates a resolver for the global namespace.
func NewNameResolver() *NameResolver {
	return &NameResolver{}
}

// SetNamespace switches to namespace and drops the import rules of the
// previous namespace.
func (r *NameResolver) SetNamespace(namespace string) {
	r.Namespace = strings.Trim(namespace, "\\")
	r.rules = nil
}

// AddRule registers an import rule. A rule is a symbol carrying the Use
// modifier whose name is the local alias and whose first associated entry is
// the imported fully qualified name.
func (r *NameResolver) AddRule(rule *Symbol) {
	if rule == nil || len(rule.Associated) == 0 {
		return
	}
	r.rules = append(r.rules, rule)
}

// Rules returns the active import rules.
func (r *NameResolver) Rules() []*Symbol {
	return r.rules
}

// PushClass enters a class-like declaration.
func (r *NameResolver) PushClass(class *Symbol) {
	r.classes = append(r.classes, class)
}

// PopClass leaves the innermost class-like declaration.
func (r *NameResolver) PopClass() {
	if len(r.classes) > 0 {
		r.classes = r.classes[:len(r.classes)-1]
	}
}

// Class returns the innermost class-like or nil outside of class bodies.
func (r *NameResolver) Class() *Symbol {
	if len(r.classes) == 0 {
		return nil
	}
	return r.classes[len(r.classes)-1]
}

// ClassName returns the name of the innermost class-like or "".
func (r *NameResolver) ClassName() string {
	if class := r.Class(); class != nil {
		return class.Name
	}
	return ""
}

// ParentName returns the base class of the innermost class-like or "".
func (r *NameResolver) ParentName() string {
	class := r.Class()
	if class == nil {
		return ""
	}

	for _, associated := range class.Associated {
		if associated.Kind == KindClass {
			return associated.Name
		}
	}
	return ""
}

// ResolveRelative prefixes name with the current namespace.
func (r *NameResolver) ResolveRelative(name string) string {
	if name == "" {
		return ""
	}
	if r.Namespace == "" {
		return name
	}
	return r.Namespace + "\\" + name
}

// Resolve resolves a name as written in source:
//   - "\Foo\Bar" is fully qualified and only loses its leading separator
//   - "namespace\Foo" is relative to the current namespace
//   - anything else goes through ResolveNotFullyQualified
func (r *NameResolver) Resolve(name string, kind Kind) string {
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "\\"):
		return name[1:]
	case len(name) > 10 && strings.EqualFold(name[:10], "namespace\\"):
		return r.ResolveRelative(name[10:])
	}

	return r.ResolveNotFullyQualified(name, kind, false)
}

// ResolveNotFullyQualified resolves an unqualified or qualified name.
// self resolves to the active class, static and $this only when
// resolveStaticToClass is set, parent to the base class of the active class.
// A qualified name substitutes its first segment through a class import rule.
// An unqualified name is looked up in the import rules of its kind. Everything
// else is relative to the current namespace.
func (r *NameResolver) ResolveNotFullyQualified(name string, kind Kind, resolveStaticToClass bool) string {
	if name == "" {
		return ""
	}

	switch strings.ToLower(name) {
	case "self":
		if class := r.ClassName(); class != "" {
			return class
		}
		return name
	case "static", "$this":
		if resolveStaticToClass {
			if class := r.ClassName(); class != "" {
				return class
			}
		}
		return name
	case "parent":
		if parent := r.ParentName(); parent != "" {
			return parent
		}
		return name
	}

	if pos := strings.Index(name, "\\"); pos > 0 {
		prefix := name[:pos]
		if rule := r.matchRule(prefix, KindClass); rule != nil {
			return rule.Associated[0].Name + name[pos:]
		}
		return r.ResolveRelative(name)
	}

	if rule := r.matchRule(name, kind); rule != nil {
		return rule.Associated[0].Name
	}

	return r.ResolveRelative(name)
}

// ResolveType name-resolves every class-like atom of a type-string.
func (r *NameResolver) ResolveType(t string) string {
	return typestring.NameResolve(t, func(name string) string {
		return r.Resolve(name, KindClass)
	})
}

func (r *NameResolver) matchRule(name string, kind Kind) *Symbol {
	ruleKind := importKind(kind)

	for i := len(r.rules) - 1; i >= 0; i-- {
		rule := r.rules[i]
		if rule.Kind != ruleKind {
			continue
		}

		// constants are the only case-sensitive import rules
		if ruleKind == KindConstant {
			if rule.Name == name {
				return rule
			}
			continue
		}

		if strings.EqualFold(rule.Name, name) {
			return rule
		}
	}

	return nil
}

// importKind maps a kind onto the kind of the import rules that can import it.
func importKind(kind Kind) Kind {
	switch kind {
	case KindFunction:
		return KindFunction
	case KindConstant:
		return KindConstant
	default:
		return KindClass
	}
}
