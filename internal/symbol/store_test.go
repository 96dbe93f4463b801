package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, files map[string]string) *Store {
	t.Helper()

	store := NewStore()
	for uri, source := range files {
		store.Add(readPHP(t, uri, source))
	}
	return store
}

func symbolNames(symbols []*Symbol) []string {
	names := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		names = append(names, sym.Name)
	}
	return names
}

func TestStoreFindMember(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"file:///foo.php": `<?php
namespace App;

class Foo
{
    public function bar(): int {}
}
`,
	})

	found := store.Find("bar", MemberPredicate)
	require.Len(t, found, 1)
	assert.Equal(t, KindMethod, found[0].Kind)
	assert.Equal(t, "bar", found[0].Name)
	assert.Equal(t, "App\\Foo", found[0].Scope)
	assert.Equal(t, "int", found[0].Type)

	assert.Len(t, store.Find("\\App\\Foo", ClassLikePredicate), 1)
	assert.Len(t, store.Find("app\\foo", ClassLikePredicate), 1, "class names are case insensitive")
	assert.Empty(t, store.Find("Foo", ClassLikePredicate), "find is exact")
	assert.Equal(t, 1, store.Count())
}

func TestStoreAddRemove(t *testing.T) {
	store := NewStore()
	table := readPHP(t, "file:///widget.php", `<?php
namespace App;

const WIDGET_LIMIT = 5;

class WidgetFactory
{
    public function createWidget() {}
}
`)

	store.Add(table)
	assert.NotEmpty(t, store.Find("App\\WidgetFactory", nil))
	assert.NotEmpty(t, store.Match("Widget", nil))
	assert.Same(t, table, store.Table("file:///widget.php"))

	// re-adding replaces instead of duplicating
	store.Add(readPHP(t, "file:///widget.php", `<?php
namespace App;

class WidgetFactory
{
}
`))
	assert.Len(t, store.Find("App\\WidgetFactory", nil), 1)
	assert.Empty(t, store.Find("createWidget", nil))
	assert.Empty(t, store.Find("App\\WIDGET_LIMIT", nil))
	assert.Equal(t, 1, store.Count())

	removed := store.Remove("file:///widget.php")
	require.NotNil(t, removed)

	for _, name := range []string{"App\\WidgetFactory", "WidgetFactory", "Widget", "createWidget"} {
		assert.Empty(t, store.Find(name, nil), name)
		assert.Empty(t, store.Match(name, nil), name)
	}
	assert.Nil(t, store.Table("file:///widget.php"))
	assert.Nil(t, store.Remove("file:///widget.php"))
	assert.Zero(t, store.Count())
	assert.Zero(t, store.SymbolCount())
}

func TestStoreCaseSensitivity(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"file:///a.php": `<?php
class Config
{
    const MODE = 'a';
    public $value;
    public function Load() {}
}
`,
	})

	assert.Len(t, store.Find("MODE", nil), 1)
	assert.Empty(t, store.Find("mode", nil))
	assert.Len(t, store.Find("$value", nil), 1)
	assert.Empty(t, store.Find("$Value", nil))
	assert.Len(t, store.Find("load", nil), 1)
}

func TestStoreMatch(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"file:///a.php": `<?php
namespace App\Service;

class OrderService
{
    public function getFooBarBaz() {}
    public function fooHelper() {}
}

function order_total() {}
`,
	})

	tests := []struct {
		name      string
		text      string
		predicate Predicate
		expected  []string
	}{
		{name: "camel case fragment", text: "bar", predicate: MemberPredicate, expected: []string{"getFooBarBaz"}},
		{name: "prefix of several members", text: "foo", predicate: MemberPredicate, expected: []string{"fooHelper", "getFooBarBaz"}},
		{name: "short class name", text: "OrderS", predicate: ClassLikePredicate, expected: []string{"App\\Service\\OrderService"}},
		{name: "qualified prefix", text: "app\\serv", predicate: ClassLikePredicate, expected: []string{"App\\Service\\OrderService"}},
		{name: "underscore fragment", text: "tot", predicate: KindPredicate(KindFunction), expected: []string{"App\\Service\\order_total"}},
		{name: "no match", text: "missing", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.expected, symbolNames(store.Match(tt.text, tt.predicate)))
		})
	}
}

func TestStoreMatchIteratorStopsEarly(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"file:///a.php": `<?php
function item_one() {}
function item_two() {}
function item_three() {}
`,
	})

	count := 0
	for range store.MatchIterator("item", nil) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)

	// the lock is released after an early break
	assert.Len(t, store.Match("item", nil), 3)
}

func TestStoreSkipsLocalsAndAnonymous(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"file:///a.php": `<?php
use Some\Imported;

function run($argument)
{
    $local = 1;
    return new class {
        public function hidden() {}
    };
}
`,
	})

	assert.Empty(t, store.Find("$argument", nil))
	assert.Empty(t, store.Find("$local", nil))
	assert.Empty(t, store.Find("Imported", nil))
	assert.Empty(t, store.Find("hidden", nil))
	assert.Len(t, store.Find("run", nil), 1)
}

func TestStoreFindSymbolsByReference(t *testing.T) {
	uri := "file:///app.php"
	source := `<?php
namespace App;

const DEBUG = true;

function helper(int $count) {
    $total = $count;
}

enum Status: string
{
    case Active = 'active';
    const DEFAULT = self::Active;
}

class Foo
{
    public string $name;
    public function bar(): int {}
}
`
	store := newTestStore(t, map[string]string{uri: source})

	tests := []struct {
		name     string
		ref      *Reference
		expected []string
	}{
		{name: "class", ref: &Reference{Kind: KindClass, Name: "App\\Foo"}, expected: []string{"App\\Foo"}},
		{name: "function alt name", ref: &Reference{Kind: KindFunction, Name: "Other\\helper", AltName: "App\\helper"}, expected: []string{"App\\helper"}},
		{name: "constant", ref: &Reference{Kind: KindConstant, Name: "App\\DEBUG"}, expected: []string{"App\\DEBUG"}},
		{name: "namespace", ref: &Reference{Kind: KindNamespace, Name: "App"}, expected: []string{"App"}},
		{name: "method", ref: &Reference{Kind: KindMethod, Name: "BAR", Scope: "App\\Foo"}, expected: []string{"bar"}},
		{name: "property", ref: &Reference{Kind: KindProperty, Name: "$name", Scope: "App\\Foo|null"}, expected: []string{"$name"}},
		{name: "enum case through class constant", ref: &Reference{Kind: KindClassConstant, Name: "Active", Scope: "App\\Status"}, expected: []string{"Active"}},
		{name: "class constant of enum", ref: &Reference{Kind: KindClassConstant, Name: "DEFAULT", Scope: "App\\Status"}, expected: []string{"DEFAULT"}},
		{name: "unknown member", ref: &Reference{Kind: KindMethod, Name: "missing", Scope: "App\\Foo"}, expected: []string{}},
		{name: "nil", ref: nil, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.expected, symbolNames(store.FindSymbolsByReference(tt.ref, MergeOverride)))
		})
	}

	t.Run("local variable", func(t *testing.T) {
		table := store.Table(uri)
		total := findOne(t, table, KindVariable, "$total")

		ref := &Reference{Kind: KindVariable, Name: "$total", Location: *total.Location}
		found := store.FindSymbolsByReference(ref, MergeOverride)
		require.Len(t, found, 1)
		assert.Same(t, total, found[0])

		param := findOne(t, table, KindParameter, "$count")
		ref = &Reference{Kind: KindParameter, Name: "$count", Location: *total.Location}
		found = store.FindSymbolsByReference(ref, MergeOverride)
		require.Len(t, found, 1)
		assert.Same(t, param, found[0])
	})

	t.Run("unsupported kind panics", func(t *testing.T) {
		assert.Panics(t, func() {
			store.FindSymbolsByReference(&Reference{Kind: KindFile, Name: uri}, MergeOverride)
		})
	})
}

func TestStoreLocation(t *testing.T) {
	uri := "file:///loc.php"
	store := newTestStore(t, map[string]string{uri: `<?php
class Located {}
`})

	class := store.Find("Located", nil)
	require.Len(t, class, 1)

	loc, ok := store.SymbolLocation(class[0])
	require.True(t, ok)
	assert.Equal(t, uri, loc.URI)
	assert.Equal(t, uint32(1), loc.Range.Start.Line)

	_, ok = store.Location(&Location{URIHash: HashURI("file:///unknown.php")})
	assert.False(t, ok)
	_, ok = store.SymbolLocation(nil)
	assert.False(t, ok)
}

func TestStoreLocationWithSharedHash(t *testing.T) {
	first := "file:///first.php"
	store := newTestStore(t, map[string]string{first: `<?php
class First {}
`})

	// register a second table under the same hash bucket
	hash := HashURI(first)
	other := readPHP(t, "file:///second.php", `<?php

class Second {}
`)
	for sym := range other.Symbols() {
		if sym.Location != nil {
			sym.Location.URIHash = hash
		}
	}
	store.tables[hash] = append(store.tables[hash], other)

	loc, ok := store.SymbolLocation(findOne(t, store.Table(first), KindClass, "First"))
	require.True(t, ok)
	assert.Equal(t, first, loc.URI)

	loc, ok = store.SymbolLocation(findOne(t, other, KindClass, "Second"))
	require.True(t, ok)
	assert.Equal(t, "file:///second.php", loc.URI)

	_, ok = store.Location(&Location{URIHash: hash})
	assert.False(t, ok, "a shared hash does not resolve without the symbol")
}

func TestStoreFindBaseMember(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"file:///base.php": `<?php
interface Renderer
{
    public function render(): string;
}

abstract class BaseRenderer implements Renderer
{
    public function render(): string {}
    private function secret() {}
}

class HtmlRenderer extends BaseRenderer
{
    public function render(): string {}
    private function secret() {}
    protected function helper() {}
}
`,
	})

	html := store.Find("HtmlRenderer", nil)[0]

	base := store.FindBaseMember(html.Child(KindMethod, "render"))
	require.NotNil(t, base)
	assert.Equal(t, "Renderer", base.Scope)

	secret := html.Child(KindMethod, "secret")
	assert.Same(t, secret, store.FindBaseMember(secret))

	helper := html.Child(KindMethod, "helper")
	assert.Same(t, helper, store.FindBaseMember(helper))
}

func TestStoreReferenceToTypeString(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"file:///builder.php": `<?php
namespace App;

class Builder
{
    public function with(): static {}
    public function count(): int {}
}

class Special extends Builder {}

function make(): Builder {}
`,
	})

	tests := []struct {
		name     string
		ref      *Reference
		expected string
	}{
		{name: "function", ref: &Reference{Kind: KindFunction, Name: "App\\make"}, expected: "App\\Builder"},
		{name: "method", ref: &Reference{Kind: KindMethod, Name: "count", Scope: "App\\Builder"}, expected: "int"},
		{name: "fluent method resolves to subclass", ref: &Reference{Kind: KindMethod, Name: "with", Scope: "App\\Special"}, expected: "App\\Special"},
		{name: "variable uses inferred type", ref: &Reference{Kind: KindVariable, Name: "$x", Type: "int|string"}, expected: "int|string"},
		{name: "class", ref: &Reference{Kind: KindClass, Name: "App\\Builder"}, expected: "App\\Builder"},
		{name: "unresolved", ref: &Reference{Kind: KindFunction, Name: "App\\missing"}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, store.ReferenceToTypeString(tt.ref))
		})
	}
}
