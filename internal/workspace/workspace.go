// Package workspace drives the index: it scans the project, keeps open
// documents current with a debounced reparse, restores from the cache on
// start and follows changes on disk.
package workspace

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopware/phpsymbols/internal/cache"
	"github.com/shopware/phpsymbols/internal/config"
	"github.com/shopware/phpsymbols/internal/observability"
	"github.com/shopware/phpsymbols/internal/reference"
	"github.com/shopware/phpsymbols/internal/symbol"
	treesitterhelper "github.com/shopware/phpsymbols/internal/tree_sitter_helper"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Workspace owns the symbol and reference stores of one project.
type Workspace struct {
	root    string
	config  *config.Config
	cache   cache.Cache
	exclude *config.Matcher

	symbols    *symbol.Store
	references *reference.Store

	// parseMu serializes document reparses on parser
	parseMu sync.Mutex
	parser  *tree_sitter.Parser

	docMu     sync.Mutex
	documents map[string]*document

	watcher    *fsnotify.Watcher
	watcherCtx context.Context
	cancel     context.CancelFunc
	watcherWg  sync.WaitGroup
}

// New creates a workspace rooted at root that persists into c.
func New(root string, cfg *config.Config, c cache.Cache) (*Workspace, error) {
	matcher, err := config.NewMatcher(cfg.Exclude)
	if err != nil {
		return nil, err
	}

	parser, err := treesitterhelper.NewPHPParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	return &Workspace{
		root:       absRoot,
		config:     cfg,
		cache:      c,
		exclude:    matcher,
		symbols:    symbol.NewStore(),
		references: reference.NewStore(c, cfg.FetchConcurrency),
		parser:     parser,
		documents:  make(map[string]*document),
	}, nil
}

// Root returns the absolute project root.
func (w *Workspace) Root() string {
	return w.root
}

// Symbols returns the symbol store.
func (w *Workspace) Symbols() *symbol.Store {
	return w.symbols
}

// References returns the reference store.
func (w *Workspace) References() *reference.Store {
	return w.references
}

// PathToURI returns the file URI of path.
func PathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

// URIToPath returns the local path of a file URI.
func URIToPath(uri string) string {
	return filepath.FromSlash(strings.TrimPrefix(uri, "file://"))
}

func (w *Workspace) excluded(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return w.exclude.Match(rel)
}

// index parses content and replaces the symbol and reference tables of uri.
func (w *Workspace) index(parser *tree_sitter.Parser, uri string, content []byte) *symbol.Table {
	start := time.Now()

	tree := parser.Parse(content, nil)
	if tree == nil {
		log.Printf("Error parsing %s", uri)
		return nil
	}
	defer tree.Close()

	symbols := symbol.Read(uri, content, tree.RootNode())
	w.symbols.Add(symbols)
	w.references.Add(reference.Read(symbols, content, tree.RootNode(), w.symbols))

	observability.ParseDuration.Observe(time.Since(start).Seconds())
	return symbols
}

// readSymbols parses content and registers only its symbol table.
func (w *Workspace) readSymbols(parser *tree_sitter.Parser, uri string, content []byte) *symbol.Table {
	tree := parser.Parse(content, nil)
	if tree == nil {
		log.Printf("Error parsing %s", uri)
		return nil
	}
	defer tree.Close()

	symbols := symbol.Read(uri, content, tree.RootNode())
	w.symbols.Add(symbols)
	return symbols
}

// readReferences runs the reference pass for an already registered table.
func (w *Workspace) readReferences(parser *tree_sitter.Parser, table *symbol.Table, content []byte) {
	tree := parser.Parse(content, nil)
	if tree == nil {
		log.Printf("Error parsing %s", table.URI)
		return
	}
	defer tree.Close()

	w.references.Add(reference.Read(table, content, tree.RootNode(), w.symbols))
}

// persistSymbols writes the symbol table of uri without its local variables.
func (w *Workspace) persistSymbols(ctx context.Context, table *symbol.Table) {
	table.PruneLocals()
	if err := cache.Put(ctx, w.cache, cache.SymbolKey(table.URI), table); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("write").Inc()
		log.Printf("Error writing symbols of %s to cache: %v", table.URI, err)
	}
}

// remove forgets uri and deletes its cache entries.
func (w *Workspace) remove(ctx context.Context, uri string) {
	w.symbols.Remove(uri)
	w.references.Remove(ctx, uri, true)

	if err := w.cache.Delete(ctx, cache.SymbolKey(uri)); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("delete").Inc()
		log.Printf("Error deleting cached symbols of %s: %v", uri, err)
	}
}

// Persist saves the known documents and the reference summary and flushes
// the cache.
func (w *Workspace) Persist(ctx context.Context) error {
	tables := w.symbols.Tables()
	known := make([]string, 0, len(tables))
	for _, table := range tables {
		known = append(known, table.URI)
	}
	slices.Sort(known)

	if err := cache.Put(ctx, w.cache, cache.KnownDocumentsKey, known); err != nil {
		return fmt.Errorf("failed to save known documents: %w", err)
	}
	if err := w.references.SaveSummary(ctx); err != nil {
		return err
	}
	if err := w.cache.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush cache: %w", err)
	}

	return nil
}

func (w *Workspace) updateGauges() {
	observability.UpdateIndexGauges(w.symbols.Count(), w.symbols.SymbolCount(), w.references.OpenCount())
}

// Close stops the watcher and pending debounces, closes every open table
// into the cache and persists the workspace state.
func (w *Workspace) Close(ctx context.Context) error {
	w.StopWatcher()

	w.docMu.Lock()
	uris := make([]string, 0, len(w.documents))
	for uri := range w.documents {
		uris = append(uris, uri)
	}
	w.docMu.Unlock()

	for _, uri := range uris {
		w.CloseDocument(ctx, uri)
	}
	w.references.CloseAll(ctx)

	err := w.Persist(ctx)

	w.parseMu.Lock()
	if w.parser != nil {
		w.parser.Close()
		w.parser = nil
	}
	w.parseMu.Unlock()

	return err
}
