package workspace

import (
	"context"
	"time"

	"github.com/shopware/phpsymbols/internal/observability"
)

// document is a file open in the editor. Its text wins over the file on disk.
type document struct {
	uri     string
	text    []byte
	version int
	dirty   bool
	timer   *time.Timer
}

// OpenDocument indexes text as the content of uri and keeps its reference
// table in memory.
func (w *Workspace) OpenDocument(uri string, text string, version int) {
	w.parseMu.Lock()
	defer w.parseMu.Unlock()

	w.docMu.Lock()
	if doc, ok := w.documents[uri]; ok && doc.timer != nil {
		doc.timer.Stop()
	}
	w.documents[uri] = &document{uri: uri, text: []byte(text), version: version}
	w.docMu.Unlock()

	w.reindex(uri, []byte(text), "open")
}

// EditDocument replaces the text of uri. The reparse waits for the debounce
// interval and restarts with every edit.
func (w *Workspace) EditDocument(uri string, text string, version int) {
	w.docMu.Lock()
	defer w.docMu.Unlock()

	doc, ok := w.documents[uri]
	if !ok {
		doc = &document{uri: uri}
		w.documents[uri] = doc
	}

	doc.text = []byte(text)
	doc.version = version
	doc.dirty = true

	if doc.timer != nil {
		doc.timer.Stop()
	}
	doc.timer = time.AfterFunc(w.config.Debounce(), func() {
		w.FlushDocument(uri)
	})
}

// FlushDocument reparses uri now if it has pending edits. Queries against a
// document call this first.
func (w *Workspace) FlushDocument(uri string) {
	w.parseMu.Lock()
	defer w.parseMu.Unlock()

	w.docMu.Lock()
	doc, ok := w.documents[uri]
	if !ok || !doc.dirty {
		w.docMu.Unlock()
		return
	}
	if doc.timer != nil {
		doc.timer.Stop()
		doc.timer = nil
	}
	doc.dirty = false
	text := doc.text
	w.docMu.Unlock()

	w.reindex(uri, text, "edit")
}

// FlushAll reparses every document with pending edits.
func (w *Workspace) FlushAll() {
	w.docMu.Lock()
	var dirty []string
	for uri, doc := range w.documents {
		if doc.dirty {
			dirty = append(dirty, uri)
		}
	}
	w.docMu.Unlock()

	for _, uri := range dirty {
		w.FlushDocument(uri)
	}
}

// CloseDocument flushes uri, then moves its tables into the cache.
func (w *Workspace) CloseDocument(ctx context.Context, uri string) {
	w.FlushDocument(uri)

	w.docMu.Lock()
	doc, ok := w.documents[uri]
	if ok && doc.timer != nil {
		doc.timer.Stop()
	}
	delete(w.documents, uri)
	w.docMu.Unlock()

	if !ok {
		return
	}

	if table := w.symbols.Table(uri); table != nil {
		w.persistSymbols(ctx, table)
	}
	w.references.Close(ctx, uri)
	w.updateGauges()
}

// RemoveDocument drops uri from the index and the cache.
func (w *Workspace) RemoveDocument(ctx context.Context, uri string) {
	w.docMu.Lock()
	if doc, ok := w.documents[uri]; ok && doc.timer != nil {
		doc.timer.Stop()
	}
	delete(w.documents, uri)
	w.docMu.Unlock()

	w.remove(ctx, uri)
	w.updateGauges()
}

// IsOpen reports whether uri is open in the editor.
func (w *Workspace) IsOpen(uri string) bool {
	w.docMu.Lock()
	defer w.docMu.Unlock()

	_, ok := w.documents[uri]
	return ok
}

// DocumentVersion returns the last version reported for uri.
func (w *Workspace) DocumentVersion(uri string) (int, bool) {
	w.docMu.Lock()
	defer w.docMu.Unlock()

	doc, ok := w.documents[uri]
	if !ok {
		return 0, false
	}
	return doc.version, true
}

// reindex runs both passes over content. The caller holds parseMu.
func (w *Workspace) reindex(uri string, content []byte, trigger string) {
	if w.parser == nil {
		return
	}

	w.index(w.parser, uri, content)
	observability.ReindexTotal.WithLabelValues(trigger).Inc()
	w.updateGauges()
}
