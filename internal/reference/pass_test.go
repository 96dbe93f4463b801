package reference

import (
	"strings"
	"testing"

	"github.com/shopware/phpsymbols/internal/symbol"
	treesitterhelper "github.com/shopware/phpsymbols/internal/tree_sitter_helper"
	"github.com/shopware/phpsymbols/internal/typestring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexPHP runs both passes over source and registers the symbol table.
func indexPHP(t *testing.T, store *symbol.Store, uri, source string) *Table {
	t.Helper()

	content := []byte(source)
	tree, err := treesitterhelper.ParsePHP(content)
	require.NoError(t, err)
	defer tree.Close()

	symbols := symbol.Read(uri, content, tree.RootNode())
	store.Add(symbols)

	return Read(symbols, content, tree.RootNode(), store)
}

func refsOf(table *Table, kind symbol.Kind, name string) []*symbol.Reference {
	return table.Filter(func(ref *symbol.Reference) bool {
		return ref.Kind == kind && ref.Name == name
	})
}

func positionOf(t *testing.T, source, needle string) treesitterhelper.Position {
	t.Helper()

	offset := strings.Index(source, needle)
	require.GreaterOrEqual(t, offset, 0, "%q not found", needle)
	return treesitterhelper.PositionAt([]byte(source), offset)
}

const fooSource = `<?php
namespace App;

class Foo
{
    public function bar(): int {}
}
`

func TestReadMethodCallOnNewObject(t *testing.T) {
	store := symbol.NewStore()
	indexPHP(t, store, "file:///foo.php", fooSource)

	source := `<?php
(new App\Foo())->bar();
`
	table := indexPHP(t, store, "file:///main.php", source)

	methods := table.Filter(func(ref *symbol.Reference) bool {
		return ref.Kind == symbol.KindMethod
	})
	require.Len(t, methods, 1)
	assert.Equal(t, "bar", methods[0].Name)
	assert.Equal(t, "App\\Foo", methods[0].Scope)
	assert.Equal(t, "int", methods[0].Type)

	assert.Len(t, refsOf(table, symbol.KindClass, "App\\Foo"), 1)

	ref := table.ReferenceAt(positionOf(t, source, "bar"))
	require.NotNil(t, ref)
	assert.Equal(t, symbol.KindMethod, ref.Kind)
}

func TestReadDeclarationReferences(t *testing.T) {
	store := symbol.NewStore()
	table := indexPHP(t, store, "file:///foo.php", fooSource)

	assert.Len(t, refsOf(table, symbol.KindNamespace, "App"), 1)
	assert.Len(t, refsOf(table, symbol.KindClass, "App\\Foo"), 1)

	methods := refsOf(table, symbol.KindMethod, "bar")
	require.Len(t, methods, 1)
	assert.Equal(t, "App\\Foo", methods[0].Scope)
}

func TestReadScopesMirrorDeclarations(t *testing.T) {
	store := symbol.NewStore()
	source := `<?php
namespace App;

class Foo
{
    public function bar(int $count): int
    {
        return $count;
    }
}
`
	table := indexPHP(t, store, "file:///foo.php", source)
	symbols := store.Table("file:///foo.php")
	require.NotNil(t, symbols)

	method := symbols.Find(symbol.KindPredicate(symbol.KindMethod))
	require.Len(t, method, 1)

	scope := table.ScopeAt(positionOf(t, source, "return $count"))
	require.NotNil(t, scope)
	assert.Equal(t, method[0].Location.Range, scope.Location.Range)

	params := refsOf(table, symbol.KindParameter, "$count")
	require.Len(t, params, 1)
	assert.Equal(t, "int", params[0].Type)

	vars := refsOf(table, symbol.KindVariable, "$count")
	require.Len(t, vars, 1)
	assert.Equal(t, "int", vars[0].Type, "parameters type their uses")

	locals := store.FindSymbolsByReference(vars[0], symbol.MergeNone)
	require.Len(t, locals, 1)
	assert.Equal(t, symbol.KindParameter, locals[0].Kind)
}

func TestReadUnbracedNamespaces(t *testing.T) {
	store := symbol.NewStore()
	table := indexPHP(t, store, "file:///ns.php", `<?php
namespace First;
class A {}
namespace Second;
class B extends A {}
`)

	require.Len(t, table.Root.Children, 2)
	assert.NotNil(t, table.Root.Children[0].Scope)
	assert.NotNil(t, table.Root.Children[1].Scope)

	assert.Len(t, refsOf(table, symbol.KindClass, "Second\\A"), 1, "names resolve in the active namespace")
	assert.Len(t, refsOf(table, symbol.KindClass, "Second\\B"), 1)
}

func TestReadUseDeclarations(t *testing.T) {
	store := symbol.NewStore()
	table := indexPHP(t, store, "file:///use.php", `<?php
namespace App;

use App\Lib\Helper;
use App\Lib\Other as Alias;
use function App\Lib\format;

function run(Helper $helper): Alias
{
    format();
    return new Alias();
}
`)

	assert.Len(t, refsOf(table, symbol.KindClass, "App\\Lib\\Helper"), 2, "import and parameter type")
	assert.Len(t, refsOf(table, symbol.KindClass, "App\\Lib\\Other"), 3, "import, return type and new")
	assert.Len(t, refsOf(table, symbol.KindFunction, "App\\Lib\\format"), 2)
}

func TestReadFunctionAndConstantFallback(t *testing.T) {
	store := symbol.NewStore()
	table := indexPHP(t, store, "file:///fallback.php", `<?php
namespace App;

const LIMIT = 3;

echo strlen('abc') + LIMIT;
`)

	functions := refsOf(table, symbol.KindFunction, "App\\strlen")
	require.Len(t, functions, 1)
	assert.Equal(t, "strlen", functions[0].AltName)
	assert.True(t, functions[0].MatchesName("strlen"))

	constants := refsOf(table, symbol.KindConstant, "App\\LIMIT")
	require.Len(t, constants, 2, "declaration and use")
	assert.Equal(t, "LIMIT", constants[1].AltName)
}

func TestReadVariableTypes(t *testing.T) {
	store := symbol.NewStore()
	indexPHP(t, store, "file:///model.php", `<?php
namespace App\Model;

class Item
{
    public function save(): bool {}
}

class Repo
{
    /** @return Item[] */
    public function all(): array {}
}
`)

	tests := []struct {
		name   string
		source string
		method string
		scopes []string
	}{
		{
			name: "foreach element",
			source: `<?php
use App\Model\Repo;

function run(Repo $repo) {
    $items = $repo->all();
    foreach ($items as $key => $item) {
        $item->save();
    }
}
`,
			method: "save",
			scopes: []string{"App\\Model\\Item"},
		},
		{
			name: "foreach without key",
			source: `<?php
function run(\App\Model\Repo $repo) {
    foreach ($repo->all() as $item) {
        $item->save();
    }
}
`,
			method: "save",
			scopes: []string{"App\\Model\\Item"},
		},
		{
			name: "foreach short list destructuring",
			source: `<?php
use App\Model\Item;

/** @param Item[][] $rows */
function run($rows) {
    foreach ($rows as [$a, $b]) {
        $a->save();
    }
}
`,
			method: "save",
			scopes: []string{"App\\Model\\Item"},
		},
		{
			name: "foreach keyed list destructuring",
			source: `<?php
use App\Model\Item;

/** @param Item[][] $rows */
function run($rows) {
    foreach ($rows as $k => list($c, $d)) {
        $d->save();
    }
}
`,
			method: "save",
			scopes: []string{"App\\Model\\Item"},
		},
		{
			name: "nested foreach",
			source: `<?php
use App\Model\Item;

/** @param Item[][] $rows */
function run($rows) {
    foreach ($rows as $row) {
        foreach ($row as $item) {
            $item->save();
        }
    }
}
`,
			method: "save",
			scopes: []string{"App\\Model\\Item"},
		},
		{
			name: "doc comment on assignment",
			source: `<?php
use App\Model\Item;

/** @var Item[] $items */
$items = load();
$items[0]->save();
`,
			method: "save",
			scopes: []string{"App\\Model\\Item"},
		},
		{
			name: "destructuring",
			source: `<?php
use App\Model\Item;

/** @var Item[] $items */
$items = load();
[$first, $second] = $items;
$second->save();
`,
			method: "save",
			scopes: []string{"App\\Model\\Item"},
		},
		{
			name: "instanceof narrowing",
			source: `<?php
use App\Model\Item;

function check($value) {
    if ($value instanceof Item) {
        $value->save();
    }
}
`,
			method: "save",
			scopes: []string{"App\\Model\\Item"},
		},
		{
			name: "closure use and arrow function",
			source: `<?php
use App\Model\Item;

$item = new Item();
$fn = function () use ($item) {
    return $item->save();
};
$arrow = fn() => $item->save();
`,
			method: "save",
			scopes: []string{"App\\Model\\Item", "App\\Model\\Item"},
		},
		{
			name: "closure does not see enclosing variables",
			source: `<?php
$item = new \App\Model\Item();
$fn = function () {
    return $item->save();
};
`,
			method: "save",
			scopes: []string{""},
		},
		{
			name: "catch variable",
			source: `<?php
use App\Model\Item;

try {
    run();
} catch (Item $e) {
    $e->save();
}
`,
			method: "save",
			scopes: []string{"App\\Model\\Item"},
		},
		{
			name: "null coalescing and ternary",
			source: `<?php
use App\Model\Item;

$a = $maybe ?? new Item();
$b = $flag ? $a : new Item();
$b->save();
`,
			method: "save",
			scopes: []string{"App\\Model\\Item"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := indexPHP(t, store, "file:///test.php", tt.source)
			defer store.Remove("file:///test.php")

			refs := refsOf(table, symbol.KindMethod, tt.method)
			scopes := make([]string, 0, len(refs))
			for _, ref := range refs {
				scopes = append(scopes, ref.Scope)
			}
			assert.Equal(t, tt.scopes, scopes)
		})
	}
}

func TestReadForeachElementTypes(t *testing.T) {
	store := symbol.NewStore()
	indexPHP(t, store, "file:///foo.php", fooSource)

	table := indexPHP(t, store, "file:///rows.php", `<?php
namespace App;

/** @param Foo[][] $rows */
function run($rows) {
    foreach ($rows as [$a, $b]) {}
    foreach ($rows as $k => list($c, $d)) {}
    foreach ($rows as $row) {
        foreach ($row as $item) {}
    }
}
`)

	tests := []struct {
		variable string
		expected string
	}{
		{variable: "$rows", expected: "App\\Foo[][]"},
		{variable: "$a", expected: "App\\Foo"},
		{variable: "$c", expected: "App\\Foo"},
		{variable: "$d", expected: "App\\Foo"},
		{variable: "$row", expected: "App\\Foo[]"},
		{variable: "$item", expected: "App\\Foo"},
	}

	for _, tt := range tests {
		t.Run(tt.variable, func(t *testing.T) {
			refs := refsOf(table, symbol.KindVariable, tt.variable)
			require.NotEmpty(t, refs)
			assert.Equal(t, tt.expected, refs[0].Type)
		})
	}
}

func TestReadBranchMerge(t *testing.T) {
	store := symbol.NewStore()
	table := indexPHP(t, store, "file:///branch.php", `<?php
if ($flag) {
    $x = 1;
} else {
    $x = 'one';
}
echo $x;
`)

	refs := refsOf(table, symbol.KindVariable, "$x")
	require.Len(t, refs, 3)
	assert.Equal(t, "int", refs[0].Type)
	assert.Equal(t, "string", refs[1].Type)
	assert.ElementsMatch(t, []string{"int", "string"}, typestring.Atoms(refs[2].Type))
}

func TestReadThisAndStatic(t *testing.T) {
	store := symbol.NewStore()
	table := indexPHP(t, store, "file:///counter.php", `<?php
namespace App;

class Counter
{
    private int $count = 0;

    public function inc(): static
    {
        $this->count = $this->count + 1;
        return $this;
    }

    public function run(): void
    {
        $this->inc()->inc();
        self::make()->inc();
        static::LIMIT;
    }

    public static function make(): self {}

    const LIMIT = 10;
}
`)

	properties := refsOf(table, symbol.KindProperty, "$count")
	require.Len(t, properties, 3, "declaration and two accesses")
	for _, ref := range properties {
		assert.Equal(t, "App\\Counter", ref.Scope)
		assert.Equal(t, "int", ref.Type)
	}

	calls := refsOf(table, symbol.KindMethod, "inc")
	require.Len(t, calls, 4, "declaration and three calls")
	for _, ref := range calls {
		assert.Equal(t, "App\\Counter", ref.Scope)
	}

	makes := refsOf(table, symbol.KindMethod, "make")
	require.Len(t, makes, 2)
	assert.Equal(t, "App\\Counter", makes[0].Scope)

	constants := refsOf(table, symbol.KindClassConstant, "LIMIT")
	require.Len(t, constants, 2)
	assert.Equal(t, "App\\Counter", constants[0].Scope)
	assert.Equal(t, "int", constants[0].Type)
}

func TestReadAnonymousClass(t *testing.T) {
	store := symbol.NewStore()
	table := indexPHP(t, store, "file:///anon.php", `<?php
namespace App;

$handler = new class($dep) extends Base {
    public function handle() {
        return $this->handle();
    }
};
`)

	assert.Len(t, refsOf(table, symbol.KindVariable, "$dep"), 1, "arguments are read")
	assert.Len(t, refsOf(table, symbol.KindClass, "App\\Base"), 1)

	calls := refsOf(table, symbol.KindMethod, "handle")
	require.Len(t, calls, 2)
	assert.True(t, strings.HasPrefix(calls[1].Scope, "#anon#file:///anon.php#"))
}

func TestReadMalformedSource(t *testing.T) {
	store := symbol.NewStore()

	assert.NotPanics(t, func() {
		table := indexPHP(t, store, "file:///broken.php", `<?php
class {
    public function (
}
$x = new Foo(;
`)
		assert.NotNil(t, table.Root)
	})
}
