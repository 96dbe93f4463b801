package treesitterhelper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionAtAndOffsetAt(t *testing.T) {
	content := []byte("<?php\n$foo = 1;\n\necho $foo;")

	testCases := []struct {
		name     string
		offset   int
		expected Position
	}{
		{name: "start", offset: 0, expected: Position{Line: 0, Character: 0}},
		{name: "second line", offset: 7, expected: Position{Line: 1, Character: 1}},
		{name: "empty line", offset: 16, expected: Position{Line: 2, Character: 0}},
		{name: "last line", offset: 22, expected: Position{Line: 3, Character: 5}},
		{name: "past end clamps", offset: 100, expected: Position{Line: 3, Character: 10}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pos := PositionAt(content, tc.offset)
			assert.Equal(t, tc.expected, pos)

			if tc.offset <= len(content) {
				assert.Equal(t, tc.offset, OffsetAt(content, pos))
			}
		})
	}

	assert.Equal(t, 5, OffsetAt(content, Position{Line: 0, Character: 99}))
	assert.Equal(t, len(content), OffsetAt(content, Position{Line: 42, Character: 0}))
}

func TestRangeContains(t *testing.T) {
	outer := Range{Start: Position{Line: 1, Character: 0}, End: Position{Line: 5, Character: 1}}

	assert.True(t, outer.Contains(Range{Start: Position{Line: 2}, End: Position{Line: 3, Character: 4}}))
	assert.True(t, outer.Contains(outer))
	assert.False(t, outer.Contains(Range{Start: Position{Line: 0, Character: 9}, End: Position{Line: 2}}))
	assert.False(t, outer.Contains(Range{Start: Position{Line: 5}, End: Position{Line: 5, Character: 2}}))

	assert.True(t, outer.ContainsPosition(Position{Line: 5, Character: 1}))
	assert.False(t, outer.ContainsPosition(Position{Line: 6}))
}

func TestNodeRangeAndText(t *testing.T) {
	content := []byte("<?php\nclass Foo\n{\n}\n")

	tree, err := ParsePHP(content)
	require.NoError(t, err)
	defer tree.Close()

	classes := FindAll(tree.RootNode(), NodeKind("class_declaration"), content)
	require.Len(t, classes, 1)
	class := classes[0]

	rng := NodeRange(class)
	assert.Equal(t, Position{Line: 1, Character: 0}, rng.Start)
	assert.Equal(t, Position{Line: 3, Character: 1}, rng.End)
	assert.Equal(t, "class Foo\n{\n}", GetTextForRange(content, rng))

	name := class.ChildByFieldName("name")
	require.NotNil(t, name)
	assert.Equal(t, "Foo", GetTextForRange(content, NodeRange(name)))
}
