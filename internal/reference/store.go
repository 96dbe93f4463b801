package reference

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/shopware/phpsymbols/internal/cache"
	"github.com/shopware/phpsymbols/internal/nameindex"
	"github.com/shopware/phpsymbols/internal/symbol"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultFetchConcurrency bounds concurrent cache reads and writes.
const DefaultFetchConcurrency = 4

// Store holds the reference tables of the workspace. Open tables live in
// memory; closed tables live in the cache and only their summary stays
// registered.
type Store struct {
	mu        sync.RWMutex
	cache     cache.Cache
	tables    map[string]*Table
	summaries map[string]*Summary
	index     *nameindex.Index[*Summary]

	fetchConcurrency int
	fetches          singleflight.Group
}

// NewStore creates a store that closes tables into c.
func NewStore(c cache.Cache, fetchConcurrency int) *Store {
	if fetchConcurrency <= 0 {
		fetchConcurrency = DefaultFetchConcurrency
	}

	return &Store{
		cache:     c,
		tables:    make(map[string]*Table),
		summaries: make(map[string]*Summary),
		index: nameindex.New(func(s *Summary) []string {
			return s.Identifiers
		}),
		fetchConcurrency: fetchConcurrency,
	}
}

// Add registers table as open, replacing any table of the same file.
func (s *Store) Add(table *Table) {
	summary := NewSummary(table)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.unregister(table.URI)
	s.tables[table.URI] = table
	s.summaries[table.URI] = summary
	s.index.Add(summary)
}

func (s *Store) unregister(uri string) {
	delete(s.tables, uri)
	if summary, ok := s.summaries[uri]; ok {
		s.index.Remove(summary)
		delete(s.summaries, uri)
	}
}

// Remove forgets the file. With purge its cached table is deleted as well.
func (s *Store) Remove(ctx context.Context, uri string, purge bool) {
	s.mu.Lock()
	s.unregister(uri)
	s.mu.Unlock()

	if !purge {
		return
	}

	if err := s.cache.Delete(ctx, cache.ReferenceKey(uri)); err != nil {
		log.Printf("Error deleting cached references of %s: %v", uri, err)
	}
}

// Close moves an open table into the cache, keeping its summary. A table that
// fails to write stays open.
func (s *Store) Close(ctx context.Context, uri string) {
	s.mu.RLock()
	table := s.tables[uri]
	s.mu.RUnlock()

	if table == nil {
		return
	}

	if err := cache.Put(ctx, s.cache, cache.ReferenceKey(uri), table); err != nil {
		log.Printf("Error writing references of %s to cache: %v", uri, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// an Add during the write wins over the close
	if s.tables[uri] == table {
		delete(s.tables, uri)
	}
}

// CloseAll closes every open table.
func (s *Store) CloseAll(ctx context.Context) {
	s.mu.RLock()
	uris := make([]string, 0, len(s.tables))
	for uri := range s.tables {
		uris = append(uris, uri)
	}
	s.mu.RUnlock()

	g := new(errgroup.Group)
	g.SetLimit(s.fetchConcurrency)
	for _, uri := range uris {
		g.Go(func() error {
			s.Close(ctx, uri)
			return nil
		})
	}
	_ = g.Wait()
}

// IsOpen reports whether the table of uri is held in memory.
func (s *Store) IsOpen(uri string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tables[uri]
	return ok
}

// Count returns the number of known files.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.summaries)
}

// OpenCount returns the number of tables held in memory.
func (s *Store) OpenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tables)
}

// Table returns the table of uri, loading it from the cache when closed. It
// returns nil for unknown files and for cache failures.
func (s *Store) Table(ctx context.Context, uri string) *Table {
	s.mu.RLock()
	table, open := s.tables[uri]
	_, known := s.summaries[uri]
	s.mu.RUnlock()

	if open {
		return table
	}
	if !known {
		return nil
	}

	table, err := s.fetch(ctx, uri)
	if err != nil {
		log.Printf("Error reading references of %s from cache: %v", uri, err)
		return nil
	}
	return table
}

func (s *Store) fetch(ctx context.Context, uri string) (*Table, error) {
	result, err, _ := s.fetches.Do(uri, func() (any, error) {
		table, err := cache.Get[*Table](ctx, s.cache, cache.ReferenceKey(uri))
		if err != nil {
			return nil, err
		}
		if table == nil {
			return nil, fmt.Errorf("failed to decode references of %s: empty entry", uri)
		}
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Table), nil
}

// Find returns every reference named name that satisfies predicate, across
// open and closed files. Files whose summary does not mention name are not
// read. Closed files that fail to load are logged and skipped.
func (s *Store) Find(ctx context.Context, name string, predicate func(ref *symbol.Reference) bool) []*symbol.Reference {
	name = strings.TrimPrefix(name, "\\")
	if name == "" {
		return nil
	}

	var tables []*Table
	var closed []string

	s.mu.RLock()
	for _, summary := range s.index.Find(name) {
		if table, ok := s.tables[summary.URI]; ok {
			tables = append(tables, table)
		} else {
			closed = append(closed, summary.URI)
		}
	}
	s.mu.RUnlock()

	fetched := make([]*Table, len(closed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	for i, uri := range closed {
		g.Go(func() error {
			table, err := s.fetch(gctx, uri)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Printf("Error reading references of %s from cache: %v", uri, err)
				}
				return nil
			}
			fetched[i] = table
			return nil
		})
	}
	_ = g.Wait()

	for _, table := range fetched {
		if table != nil {
			tables = append(tables, table)
		}
	}
	slices.SortFunc(tables, func(a, b *Table) int {
		return strings.Compare(a.URI, b.URI)
	})

	var result []*symbol.Reference
	for _, table := range tables {
		for ref := range table.References() {
			if ref.MatchesName(name) && (predicate == nil || predicate(ref)) {
				result = append(result, ref)
			}
		}
	}
	return result
}

// KnownDocuments yields the identity of every known file, open or closed, in
// sorted order. The set is captured when iteration starts.
func (s *Store) KnownDocuments() iter.Seq[string] {
	return func(yield func(string) bool) {
		s.mu.RLock()
		uris := make([]string, 0, len(s.summaries))
		for uri := range s.summaries {
			uris = append(uris, uri)
		}
		s.mu.RUnlock()

		slices.Sort(uris)
		for _, uri := range uris {
			if !yield(uri) {
				return
			}
		}
	}
}

// SaveSummary persists the summaries of every known file.
func (s *Store) SaveSummary(ctx context.Context) error {
	s.mu.RLock()
	summaries := make([]*Summary, 0, len(s.summaries))
	for _, summary := range s.summaries {
		summaries = append(summaries, summary)
	}
	s.mu.RUnlock()

	slices.SortFunc(summaries, func(a, b *Summary) int {
		return strings.Compare(a.URI, b.URI)
	})

	if err := cache.Put(ctx, s.cache, cache.SummaryKey, summaries); err != nil {
		return fmt.Errorf("failed to save reference summary: %w", err)
	}
	return nil
}

// LoadSummary registers the persisted summaries as closed files. Files
// already known keep their current summary. A missing summary is not an
// error.
func (s *Store) LoadSummary(ctx context.Context) error {
	summaries, err := cache.Get[[]*Summary](ctx, s.cache, cache.SummaryKey)
	if errors.Is(err, cache.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load reference summary: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, summary := range summaries {
		if summary == nil || summary.URI == "" {
			continue
		}
		if _, ok := s.summaries[summary.URI]; ok {
			continue
		}
		s.summaries[summary.URI] = summary
		s.index.Add(summary)
	}
	return nil
}
