package treesitterhelper

import (
	"bytes"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Position is a zero-based line and byte column in a document.
type Position struct {
	Line      uint32 `json:"line" msgpack:"l"`
	Character uint32 `json:"character" msgpack:"c"`
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start" msgpack:"s"`
	End   Position `json:"end" msgpack:"e"`
}

// Less reports whether p is located before other.
func (p Position) Less(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

// Contains reports whether other lies completely within r.
func (r Range) Contains(other Range) bool {
	return !other.Start.Less(r.Start) && !r.End.Less(other.End)
}

// ContainsPosition reports whether pos lies within r, end inclusive.
func (r Range) ContainsPosition(pos Position) bool {
	return !pos.Less(r.Start) && !r.End.Less(pos)
}

// NodeRange converts the span of node into a Range.
func NodeRange(node *tree_sitter.Node) Range {
	start := node.StartPosition()
	end := node.EndPosition()

	return Range{
		Start: Position{Line: uint32(start.Row), Character: uint32(start.Column)},
		End:   Position{Line: uint32(end.Row), Character: uint32(end.Column)},
	}
}

// PositionAt converts a byte offset in content into a Position.
func PositionAt(content []byte, offset int) Position {
	if offset > len(content) {
		offset = len(content)
	}
	if offset < 0 {
		offset = 0
	}

	before := content[:offset]
	line := bytes.Count(before, []byte("\n"))
	lineStart := bytes.LastIndexByte(before, '\n') + 1

	return Position{Line: uint32(line), Character: uint32(offset - lineStart)}
}

// OffsetAt converts a Position into a byte offset in content. Positions past
// the end of a line clamp to the line end.
func OffsetAt(content []byte, pos Position) int {
	offset := 0
	for line := uint32(0); line < pos.Line; line++ {
		next := bytes.IndexByte(content[offset:], '\n')
		if next < 0 {
			return len(content)
		}
		offset += next + 1
	}

	lineEnd := bytes.IndexByte(content[offset:], '\n')
	if lineEnd < 0 {
		lineEnd = len(content) - offset
	}
	if int(pos.Character) > lineEnd {
		return offset + lineEnd
	}

	return offset + int(pos.Character)
}

// GetTextForRange extracts text from the document content for the given range
func GetTextForRange(content []byte, rng Range) string {
	if len(content) == 0 {
		return ""
	}

	lines := bytes.Split(content, []byte("\n"))
	if len(lines) == 0 || int(rng.Start.Line) >= len(lines) || int(rng.End.Line) >= len(lines) {
		return ""
	}

	if rng.Start.Line == rng.End.Line {
		line := lines[rng.Start.Line]
		if int(rng.Start.Character) >= len(line) || int(rng.End.Character) > len(line) {
			return ""
		}
		return string(line[rng.Start.Character:rng.End.Character])
	}

	var result []string

	firstLine := lines[rng.Start.Line]
	if int(rng.Start.Character) < len(firstLine) {
		result = append(result, string(firstLine[rng.Start.Character:]))
	}

	for i := rng.Start.Line + 1; i < rng.End.Line; i++ {
		result = append(result, string(lines[i]))
	}

	lastLine := lines[rng.End.Line]
	if int(rng.End.Character) <= len(lastLine) {
		result = append(result, string(lastLine[:rng.End.Character]))
	}

	return strings.Join(result, "\n")
}
