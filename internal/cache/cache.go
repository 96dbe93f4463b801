// Package cache persists serialized symbol tables, reference tables and index
// summaries between runs.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned by Read when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

const (
	// SummaryKey holds the per-file identifier summaries of the reference store.
	SummaryKey = "references:summary"
	// KnownDocumentsKey holds the identities of every indexed file.
	KnownDocumentsKey = "documents:known"
)

// SymbolKey returns the key of the symbol table of uri.
func SymbolKey(uri string) string {
	return "symbols:" + uri
}

// ReferenceKey returns the key of the reference table of uri.
func ReferenceKey(uri string) string {
	return "references:" + uri
}

// Cache is a key to blob store. Implementations are safe for concurrent use.
type Cache interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Flush makes every acknowledged write durable.
	Flush(ctx context.Context) error
	Close() error
}

// Get reads key and decodes it into a T.
func Get[T any](ctx context.Context, c Cache, key string) (T, error) {
	var item T

	data, err := c.Read(ctx, key)
	if err != nil {
		return item, err
	}

	if err := msgpack.Unmarshal(data, &item); err != nil {
		return item, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return item, nil
}

// Put encodes item and writes it under key.
func Put[T any](ctx context.Context, c Cache, key string, item T) error {
	data, err := msgpack.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	return c.Write(ctx, key, data)
}
