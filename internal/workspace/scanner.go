package workspace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopware/phpsymbols/internal/cache"
	"github.com/shopware/phpsymbols/internal/observability"
	"github.com/shopware/phpsymbols/internal/symbol"
	treesitterhelper "github.com/shopware/phpsymbols/internal/tree_sitter_helper"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/errgroup"
)

// IndexStats summarizes one indexing run.
type IndexStats struct {
	Found     int
	Indexed   int
	Unchanged int
	Removed   int
}

// Scan returns every PHP file below the project root that is not excluded.
func (w *Workspace) Scan() ([]string, error) {
	var files []string

	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		if info.IsDir() {
			if path != w.root && w.excluded(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.ToLower(filepath.Ext(path)) == ".php" && !w.excluded(path) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk project directory: %w", err)
	}

	return files, nil
}

// IndexAll indexes the whole project, skipping files whose content is
// unchanged since it was last indexed and forgetting files that are gone.
func (w *Workspace) IndexAll(ctx context.Context) (IndexStats, error) {
	startTime := time.Now()

	files, err := w.Scan()
	if err != nil {
		return IndexStats{}, err
	}
	log.Printf("Found %d files to index", len(files))

	stats, err := w.IndexFiles(ctx, files)
	if err != nil {
		return stats, err
	}
	stats.Found = len(files)

	present := make(map[string]bool, len(files))
	for _, path := range files {
		present[PathToURI(path)] = true
	}

	var gone []string
	for _, table := range w.symbols.Tables() {
		if !present[table.URI] && !w.IsOpen(table.URI) {
			gone = append(gone, table.URI)
		}
	}
	for _, uri := range gone {
		w.remove(ctx, uri)
	}
	stats.Removed = len(gone)

	if err := w.Persist(ctx); err != nil {
		log.Printf("Error persisting index: %v", err)
	}

	observability.IndexDuration.WithLabelValues("index_all").Observe(time.Since(startTime).Seconds())
	log.Printf("Indexed %d files in %s (%d unchanged, %d removed)", stats.Indexed, time.Since(startTime), stats.Unchanged, stats.Removed)

	return stats, nil
}

type fileWork struct {
	uri     string
	content []byte
	table   *symbol.Table
}

// IndexFiles indexes paths in two phases: every symbol table is registered
// first so that the reference pass of each file sees the declarations of
// all others. Reference tables are closed into the cache afterwards. Open
// documents are skipped.
func (w *Workspace) IndexFiles(ctx context.Context, paths []string) (IndexStats, error) {
	var stats IndexStats
	if len(paths) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	var changed []fileWork

	err := w.runWorkers(ctx, len(paths), func(i int, parser *tree_sitter.Parser) {
		path := paths[i]
		uri := PathToURI(path)
		if w.IsOpen(uri) {
			return
		}

		content, err := os.ReadFile(path)
		if err != nil {
			// We'll just skip file errors to reduce noise
			return
		}

		if existing := w.symbols.Table(uri); existing != nil && existing.Hash == xxhash.Sum64(content) {
			mu.Lock()
			stats.Unchanged++
			mu.Unlock()
			return
		}

		table := w.readSymbols(parser, uri, content)
		if table == nil {
			return
		}

		mu.Lock()
		changed = append(changed, fileWork{uri: uri, content: content, table: table})
		mu.Unlock()
	})
	if err != nil {
		return stats, err
	}

	err = w.runWorkers(ctx, len(changed), func(i int, parser *tree_sitter.Parser) {
		work := changed[i]
		w.readReferences(parser, work.table, work.content)
		observability.ReindexTotal.WithLabelValues("scan").Inc()
		w.references.Close(ctx, work.uri)
	})
	if err != nil {
		return stats, err
	}

	g := new(errgroup.Group)
	g.SetLimit(max(w.config.FetchConcurrency, 1))
	for _, work := range changed {
		g.Go(func() error {
			w.persistSymbols(ctx, work.table)
			return nil
		})
	}
	_ = g.Wait()

	stats.Indexed = len(changed)
	w.updateGauges()
	return stats, nil
}

// RemoveFiles forgets deleted files that are not open in the editor.
func (w *Workspace) RemoveFiles(ctx context.Context, paths []string) {
	for _, path := range paths {
		uri := PathToURI(path)
		if w.IsOpen(uri) {
			continue
		}
		w.remove(ctx, uri)
	}
	w.updateGauges()
}

// runWorkers calls work for every index below n on config.Workers goroutines,
// each with its own parser.
func (w *Workspace) runWorkers(ctx context.Context, n int, work func(i int, parser *tree_sitter.Parser)) error {
	if n == 0 {
		return nil
	}

	jobs := make(chan int, 100)
	g, gctx := errgroup.WithContext(ctx)

	workerCount := min(max(w.config.Workers, 1), n)
	for range workerCount {
		g.Go(func() error {
			parser, err := treesitterhelper.NewPHPParser()
			if err != nil {
				return fmt.Errorf("failed to create parser: %w", err)
			}
			defer parser.Close()

			for i := range jobs {
				if gctx.Err() != nil {
					continue
				}
				work(i, parser)
			}
			return nil
		})
	}

send:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-gctx.Done():
			break send
		}
	}
	close(jobs)

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Restore rebuilds the symbol store and the reference summaries from the
// cache. Symbol tables are loaded in batches of config.LoadBatchSize.
func (w *Workspace) Restore(ctx context.Context) (int, error) {
	startTime := time.Now()

	known, err := cache.Get[[]string](ctx, w.cache, cache.KnownDocumentsKey)
	if errors.Is(err, cache.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load known documents: %w", err)
	}

	if err := w.references.LoadSummary(ctx); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("read").Inc()
		log.Printf("Error loading reference summary: %v", err)
	}

	var mu sync.Mutex
	restored := 0

	batchSize := max(w.config.LoadBatchSize, 1)
	for start := 0; start < len(known); start += batchSize {
		if err := ctx.Err(); err != nil {
			return restored, err
		}

		g := new(errgroup.Group)
		for _, uri := range known[start:min(start+batchSize, len(known))] {
			g.Go(func() error {
				table, err := cache.Get[*symbol.Table](ctx, w.cache, cache.SymbolKey(uri))
				if err != nil || table == nil {
					observability.CacheErrorsTotal.WithLabelValues("read").Inc()
					log.Printf("Error reading symbols of %s from cache: %v", uri, err)
					return nil
				}

				w.symbols.Add(table)
				mu.Lock()
				restored++
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	w.updateGauges()
	observability.IndexDuration.WithLabelValues("restore").Observe(time.Since(startTime).Seconds())
	log.Printf("Restored %d of %d files from cache in %s", restored, len(known), time.Since(startTime))

	return restored, nil
}
