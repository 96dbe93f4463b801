package typestring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtoms(t *testing.T) {
	testCases := []struct {
		name     string
		typeName string
		expected []string
	}{
		{
			name:     "empty",
			typeName: "",
			expected: nil,
		},
		{
			name:     "single atom",
			typeName: "int",
			expected: []string{"int"},
		},
		{
			name:     "simple union",
			typeName: "int|string",
			expected: []string{"int", "string"},
		},
		{
			name:     "parenthesized array union is one atom",
			typeName: "(A|B)[]|null",
			expected: []string{"(A|B)[]", "null"},
		},
		{
			name:     "generic arguments are not split",
			typeName: "array<int, Foo|Bar>|string",
			expected: []string{"array<int, Foo|Bar>", "string"},
		},
		{
			name:     "surrounding whitespace is trimmed",
			typeName: " Foo | Bar ",
			expected: []string{"Foo", "Bar"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Atoms(tc.typeName))
		})
	}
}

func TestMerge(t *testing.T) {
	testCases := []struct {
		name     string
		a        string
		b        string
		expected string
	}{
		{name: "empty left", a: "", b: "int", expected: "int"},
		{name: "empty right", a: "int", b: "", expected: "int"},
		{name: "disjoint", a: "int", b: "string", expected: "int|string"},
		{name: "overlap keeps insertion order", a: "int|Foo", b: "Foo|Bar", expected: "int|Foo|Bar"},
		{name: "identical", a: "Foo|Bar", b: "Foo|Bar", expected: "Foo|Bar"},
		{name: "array atoms", a: "(A|B)[]", b: "A[]", expected: "(A|B)[]|A[]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Merge(tc.a, tc.b))
		})
	}
}

func TestMergeIsCommutativeAndIdempotentAsSets(t *testing.T) {
	inputs := []string{"", "int", "int|string", "Foo|(A|B)[]", "string|Foo", "null|Foo[]|int"}

	for _, a := range inputs {
		assert.ElementsMatch(t, Atoms(a), Atoms(Merge(a, a)), "merge(%q,%q)", a, a)

		for _, b := range inputs {
			assert.ElementsMatch(t, Atoms(Merge(a, b)), Atoms(Merge(b, a)), "merge(%q,%q)", a, b)
		}
	}
}

func TestMergeMany(t *testing.T) {
	assert.Equal(t, "", MergeMany())
	assert.Equal(t, "int|string|Foo", MergeMany("int", "", "string|int", "Foo"))
}

func TestArrayDereference(t *testing.T) {
	testCases := []struct {
		name     string
		typeName string
		expected string
	}{
		{name: "simple array", typeName: "Foo[]", expected: "Foo"},
		{name: "union array", typeName: "(Foo|Bar)[]", expected: "Foo|Bar"},
		{name: "mixed atoms drop non arrays", typeName: "int|Foo[]|string[]", expected: "Foo|string"},
		{name: "nested array", typeName: "Foo[][]", expected: "Foo[]"},
		{name: "no array atoms", typeName: "int|Foo", expected: ""},
		{name: "empty", typeName: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ArrayDereference(tc.typeName))
		})
	}
}

func TestArrayReference(t *testing.T) {
	assert.Equal(t, "", ArrayReference(""))
	assert.Equal(t, "Foo[]", ArrayReference("Foo"))
	assert.Equal(t, "(Foo|Bar)[]", ArrayReference("Foo|Bar"))
}

func TestArrayRoundTrip(t *testing.T) {
	inputs := []string{"Foo[]", "(Foo|Bar)[]", "int|Foo[]|(A|B)[]"}

	for _, input := range inputs {
		elements := Atoms(ArrayDereference(input))
		roundTrip := ArrayDereference(ArrayReference(ArrayDereference(input)))

		assert.Subset(t, Atoms(roundTrip), elements, "round trip of %q", input)
	}
}

func TestAtomicClassArray(t *testing.T) {
	assert.Equal(t, []string{"Foo", "App\\Bar"}, AtomicClassArray("int|Foo|string[]|App\\Bar|$this|static|null"))
	assert.Empty(t, AtomicClassArray("int|string|mixed|void|callable|iterable|self"))
}

func TestNameResolve(t *testing.T) {
	resolve := func(name string) string {
		return "App\\" + name
	}

	testCases := []struct {
		name     string
		typeName string
		expected string
	}{
		{name: "class atom", typeName: "Foo", expected: "App\\Foo"},
		{name: "keywords untouched", typeName: "int|null|$this|static", expected: "int|null|$this|static"},
		{name: "fully qualified root stripped", typeName: "\\Other\\Foo", expected: "Other\\Foo"},
		{name: "array element", typeName: "Foo[]", expected: "App\\Foo[]"},
		{name: "union array element", typeName: "(Foo|int)[]", expected: "(App\\Foo|int)[]"},
		{name: "empty", typeName: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NameResolve(tc.typeName, resolve))
		})
	}
}

func TestResolveThisOrStatic(t *testing.T) {
	assert.Equal(t, "App\\Child", ResolveThisOrStatic("static", "App\\Child"))
	assert.Equal(t, "App\\Child|null", ResolveThisOrStatic("$this|null", "App\\Child"))
	assert.Equal(t, "App\\Child[]", ResolveThisOrStatic("self[]", "App\\Child"))
	assert.Equal(t, "App\\Child", ResolveThisOrStatic("self|static", "App\\Child"))
	assert.Equal(t, "int", ResolveThisOrStatic("int", "App\\Child"))
	assert.Equal(t, "static", ResolveThisOrStatic("static", ""))
}

func TestMentionsThisOrStatic(t *testing.T) {
	assert.True(t, MentionsThisOrStatic("$this"))
	assert.True(t, MentionsThisOrStatic("int|static[]"))
	assert.True(t, MentionsThisOrStatic("(self|null)[]"))
	assert.False(t, MentionsThisOrStatic("App\\Foo|int"))
	assert.False(t, MentionsThisOrStatic(""))
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Count(""))
	assert.Equal(t, 3, Count("int|(A|B)[]|null"))
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		declared string
		expected string
	}{
		{name: "plain", declared: "string", expected: "string"},
		{name: "nullable", declared: "?string", expected: "string|null"},
		{name: "nullable class", declared: "?\\Foo\\Bar", expected: "\\Foo\\Bar|null"},
		{name: "union", declared: "int | string", expected: "int|string"},
		{name: "dnf group", declared: "(A&B)|null", expected: "A&B|null"},
		{name: "empty", declared: "  ", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.declared))
		})
	}
}

func TestFromGeneric(t *testing.T) {
	testCases := []struct {
		name     string
		typeName string
		expected string
	}{
		{name: "no generics", typeName: "Foo|int", expected: "Foo|int"},
		{name: "array with key", typeName: "array<int, Foo>", expected: "Foo[]"},
		{name: "list", typeName: "list<Foo|Bar>", expected: "(Foo|Bar)[]"},
		{name: "nested", typeName: "array<string, list<Foo>>", expected: "Foo[][]"},
		{name: "traversable keeps base", typeName: "\\Traversable<Foo>|null", expected: "\\Traversable|Foo[]|null"},
		{name: "unknown generic keeps base", typeName: "Collection<Foo>", expected: "Collection"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FromGeneric(tc.typeName))
		})
	}
}
