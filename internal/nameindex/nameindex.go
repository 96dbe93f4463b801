// Package nameindex provides a sorted key index used for exact and prefix
// lookups of symbols and file summaries by name fragments.
package nameindex

import (
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// KeysFunc returns the lower-cased keys an item is indexed under.
type KeysFunc[T comparable] func(item T) []string

type node[T comparable] struct {
	key   string
	items []T
}

// Index maps lower-cased keys to sets of items. It is not safe for concurrent
// use; owners guard it with their own lock.
type Index[T comparable] struct {
	nodes []*node[T]
	keys  KeysFunc[T]
}

// New creates an empty index that derives keys with keys.
func New[T comparable](keys KeysFunc[T]) *Index[T] {
	return &Index[T]{keys: keys}
}

func compareNode[T comparable](n *node[T], key string) int {
	return strings.Compare(n.key, key)
}

// Add indexes item under every key returned by the key function.
func (idx *Index[T]) Add(item T) {
	for _, key := range idx.keys(item) {
		if key == "" {
			continue
		}

		pos, found := slices.BinarySearchFunc(idx.nodes, key, compareNode[T])
		if found {
			n := idx.nodes[pos]
			if !slices.Contains(n.items, item) {
				n.items = append(n.items, item)
			}
			continue
		}

		idx.nodes = slices.Insert(idx.nodes, pos, &node[T]{key: key, items: []T{item}})
	}
}

// AddMany indexes every item of items.
func (idx *Index[T]) AddMany(items []T) {
	for _, item := range items {
		idx.Add(item)
	}
}

// Remove drops item from every key it was indexed under. Keys left without
// items are deleted.
func (idx *Index[T]) Remove(item T) {
	for _, key := range idx.keys(item) {
		pos, found := slices.BinarySearchFunc(idx.nodes, key, compareNode[T])
		if !found {
			continue
		}

		n := idx.nodes[pos]
		if i := slices.Index(n.items, item); i >= 0 {
			n.items = slices.Delete(n.items, i, i+1)
		}

		if len(n.items) == 0 {
			idx.nodes = slices.Delete(idx.nodes, pos, pos+1)
		}
	}
}

// RemoveMany drops every item of items.
func (idx *Index[T]) RemoveMany(items []T) {
	for _, item := range items {
		idx.Remove(item)
	}
}

// Find returns the items stored under exactly the lower-cased text.
func (idx *Index[T]) Find(text string) []T {
	key := strings.ToLower(text)
	pos, found := slices.BinarySearchFunc(idx.nodes, key, compareNode[T])
	if !found {
		return nil
	}

	return slices.Clone(idx.nodes[pos].items)
}

// Match returns every item indexed under a key starting with text.
func (idx *Index[T]) Match(text string) []T {
	return slices.Collect(idx.MatchIterator(text))
}

// MatchIterator lazily yields every item indexed under a key starting with
// text, each item once. The sequence may be ranged over repeatedly.
func (idx *Index[T]) MatchIterator(text string) iter.Seq[T] {
	prefix := strings.ToLower(text)

	return func(yield func(T) bool) {
		seen := make(map[T]struct{})
		pos, _ := slices.BinarySearchFunc(idx.nodes, prefix, compareNode[T])

		for ; pos < len(idx.nodes); pos++ {
			n := idx.nodes[pos]
			if !strings.HasPrefix(n.key, prefix) {
				return
			}

			for _, item := range n.items {
				if _, ok := seen[item]; ok {
					continue
				}
				seen[item] = struct{}{}

				if !yield(item) {
					return
				}
			}
		}
	}
}

// Len returns the number of distinct keys.
func (idx *Index[T]) Len() int {
	return len(idx.nodes)
}

// Clear drops all keys.
func (idx *Index[T]) Clear() {
	idx.nodes = nil
}

// SuffixKeys returns the lower-cased name followed by every suffix starting at
// a word boundary: after "_" or "$", and at each lower-to-upper camel case
// transition. "getFooBar" yields getfoobar, foobar and bar.
func SuffixKeys(name string) []string {
	if name == "" {
		return nil
	}

	keys := []string{strings.ToLower(name)}
	seen := map[string]bool{keys[0]: true}

	add := func(pos int) {
		if pos <= 0 || pos >= len(name) {
			return
		}
		key := strings.ToLower(name[pos:])
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	var prev rune
	var prevPrev rune
	for i, r := range name {
		switch {
		case r == '_' || r == '$':
			_, size := utf8.DecodeRuneInString(name[i:])
			add(i + size)
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			add(i)
		case unicode.IsLower(r) && unicode.IsUpper(prev) && unicode.IsUpper(prevPrev):
			_, size := utf8.DecodeLastRuneInString(name[:i])
			add(i - size)
		}
		prevPrev = prev
		prev = r
	}

	return keys
}
