package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func useRule(kind Kind, alias, fqn string) *Symbol {
	return &Symbol{
		Kind:       kind,
		Name:       alias,
		Modifiers:  ModifierUse,
		Associated: []*Symbol{NewStub(kind, fqn)},
	}
}

func TestNameResolver(t *testing.T) {
	widget := &Symbol{
		Kind:       KindClass,
		Name:       "App\\Widget",
		Associated: []*Symbol{NewStub(KindInterface, "App\\Renderable"), NewStub(KindClass, "App\\Base")},
	}

	tests := []struct {
		name     string
		input    string
		kind     Kind
		expected string
	}{
		{name: "self", input: "self", kind: KindClass, expected: "App\\Widget"},
		{name: "parent", input: "parent", kind: KindClass, expected: "App\\Base"},
		{name: "static stays literal", input: "static", kind: KindClass, expected: "static"},
		{name: "imported class", input: "Helper", kind: KindClass, expected: "App\\Lib\\Helper"},
		{name: "imported class is case insensitive", input: "helper", kind: KindClass, expected: "App\\Lib\\Helper"},
		{name: "aliased class", input: "Req", kind: KindClass, expected: "Symfony\\Component\\HttpFoundation\\Request"},
		{name: "qualified through import", input: "Lib\\Other", kind: KindClass, expected: "Vendor\\Lib\\Other"},
		{name: "namespace relative", input: "Thing", kind: KindClass, expected: "App\\Thing"},
		{name: "fully qualified", input: "\\DateTime", kind: KindClass, expected: "DateTime"},
		{name: "namespace keyword", input: "namespace\\Sub\\Thing", kind: KindClass, expected: "App\\Sub\\Thing"},
		{name: "imported function", input: "helper_fn", kind: KindFunction, expected: "Vendor\\helper_fn"},
		{name: "function falls back to namespace", input: "strlen", kind: KindFunction, expected: "App\\strlen"},
		{name: "imported constant", input: "MAX", kind: KindConstant, expected: "Vendor\\MAX"},
		{name: "constant import is case sensitive", input: "max", kind: KindConstant, expected: "App\\max"},
		{name: "class rule does not import functions", input: "Helper", kind: KindFunction, expected: "App\\Helper"},
	}

	resolver := NewNameResolver()
	resolver.SetNamespace("\\App\\")
	resolver.AddRule(useRule(KindClass, "Helper", "App\\Lib\\Helper"))
	resolver.AddRule(useRule(KindClass, "Req", "Symfony\\Component\\HttpFoundation\\Request"))
	resolver.AddRule(useRule(KindClass, "Lib", "Vendor\\Lib"))
	resolver.AddRule(useRule(KindFunction, "helper_fn", "Vendor\\helper_fn"))
	resolver.AddRule(useRule(KindConstant, "MAX", "Vendor\\MAX"))
	resolver.PushClass(widget)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolver.Resolve(tt.input, tt.kind))
		})
	}
}

func TestNameResolverStaticToClass(t *testing.T) {
	resolver := NewNameResolver()
	resolver.PushClass(&Symbol{Kind: KindClass, Name: "Foo"})

	assert.Equal(t, "Foo", resolver.ResolveNotFullyQualified("static", KindClass, true))
	assert.Equal(t, "Foo", resolver.ResolveNotFullyQualified("$this", KindClass, true))
	assert.Equal(t, "static", resolver.ResolveNotFullyQualified("static", KindClass, false))
}

func TestNameResolverClassStack(t *testing.T) {
	resolver := NewNameResolver()
	outer := &Symbol{Kind: KindClass, Name: "Outer"}
	inner := &Symbol{Kind: KindClass, Name: "#anon#file#10"}

	resolver.PushClass(outer)
	resolver.PushClass(inner)
	assert.Equal(t, "#anon#file#10", resolver.Resolve("self", KindClass))

	resolver.PopClass()
	assert.Equal(t, "Outer", resolver.Resolve("self", KindClass))

	resolver.PopClass()
	resolver.PopClass()
	assert.Equal(t, "self", resolver.Resolve("self", KindClass))
}

func TestNameResolverNamespaceResetsRules(t *testing.T) {
	resolver := NewNameResolver()
	resolver.SetNamespace("First")
	resolver.AddRule(useRule(KindClass, "Helper", "Lib\\Helper"))
	assert.Equal(t, "Lib\\Helper", resolver.Resolve("Helper", KindClass))

	resolver.SetNamespace("Second")
	assert.Empty(t, resolver.Rules())
	assert.Equal(t, "Second\\Helper", resolver.Resolve("Helper", KindClass))
}

func TestNameResolverLatestRuleWins(t *testing.T) {
	resolver := NewNameResolver()
	resolver.AddRule(useRule(KindClass, "Helper", "Old\\Helper"))
	resolver.AddRule(useRule(KindClass, "Helper", "New\\Helper"))

	assert.Equal(t, "New\\Helper", resolver.Resolve("Helper", KindClass))
}

func TestNameResolverResolveType(t *testing.T) {
	resolver := NewNameResolver()
	resolver.SetNamespace("App")
	resolver.AddRule(useRule(KindClass, "Helper", "App\\Lib\\Helper"))

	assert.Equal(t, "App\\Lib\\Helper|int|null", resolver.ResolveType("Helper|int|null"))
	assert.Equal(t, "App\\Item[]", resolver.ResolveType("Item[]"))
}
