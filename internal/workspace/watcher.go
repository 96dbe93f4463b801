package workspace

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopware/phpsymbols/internal/observability"
)

// StartWatcher reindexes PHP files changed on disk. Files open in the editor
// are left to the document state.
func (w *Workspace) StartWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	w.watcher = watcher
	w.watcherCtx, w.cancel = context.WithCancel(ctx)
	w.watcherWg.Add(1)

	go w.watch()

	return w.addDirectoryToWatcher(w.root)
}

func (w *Workspace) watch() {
	defer w.watcherWg.Done()
	defer func() {
		_ = w.watcher.Close()
	}()

	// debounce to avoid processing the same file multiple times
	pendingAdds := make(map[string]bool)
	pendingRemoves := make(map[string]bool)
	debounceTimer := time.NewTimer(time.Hour)
	debounceTimer.Stop()

	resetTimer := func() {
		if !debounceTimer.Stop() {
			select {
			case <-debounceTimer.C:
			default:
			}
		}
		debounceTimer.Reset(w.config.Debounce())
	}

	processChanges := func() {
		if len(pendingAdds) == 0 && len(pendingRemoves) == 0 {
			return
		}
		defer func() {
			if err := w.Persist(w.watcherCtx); err != nil {
				log.Printf("Error persisting index: %v", err)
			}
		}()

		if len(pendingAdds) > 0 {
			files := make([]string, 0, len(pendingAdds))
			for file := range pendingAdds {
				files = append(files, file)
			}
			pendingAdds = make(map[string]bool)

			log.Printf("Processing %d changed/added files", len(files))
			if _, err := w.IndexFiles(w.watcherCtx, files); err != nil {
				log.Printf("Error indexing files: %v", err)
			}
		}

		if len(pendingRemoves) > 0 {
			files := make([]string, 0, len(pendingRemoves))
			for file := range pendingRemoves {
				files = append(files, file)
			}
			pendingRemoves = make(map[string]bool)

			log.Printf("Processing %d deleted files", len(files))
			w.RemoveFiles(w.watcherCtx, files)
		}
	}

	for {
		select {
		case <-w.watcherCtx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if w.excluded(event.Name) {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				// the file might have been deleted
				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && isPHPFile(event.Name) {
					pendingRemoves[event.Name] = true
					delete(pendingAdds, event.Name)
					resetTimer()
				}
				continue
			}

			if info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					if err := w.addDirectoryToWatcher(event.Name); err != nil {
						log.Printf("Error adding directory to watcher: %v", err)
					}
				}
				continue
			}

			if !isPHPFile(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				pendingAdds[event.Name] = true
				delete(pendingRemoves, event.Name)
				resetTimer()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)

		case <-debounceTimer.C:
			processChanges()
		}
	}
}

func isPHPFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".php"
}

// StopWatcher stops the file watcher and waits for it to exit.
func (w *Workspace) StopWatcher() {
	if w.watcher == nil {
		return
	}

	w.cancel()
	w.watcherWg.Wait()
	w.watcher = nil
}

// addDirectoryToWatcher recursively adds dir and its subdirectories.
func (w *Workspace) addDirectoryToWatcher(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files/dirs we can't access
		}
		if !info.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			log.Printf("Error watching directory %s: %v", path, err)
		}
		return nil
	})
}
