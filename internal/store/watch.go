package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce batches bursts of file events into one invalidation.
const DefaultDebounce = 150 * time.Millisecond

// FileWatcher invalidates a hub when another process writes the database.
type FileWatcher struct {
	path     string
	hub      *Hub
	debounce time.Duration
	log      zerolog.Logger
}

// NewFileWatcher watches the SQLite database at path.
func NewFileWatcher(path string, hub *Hub, log zerolog.Logger) *FileWatcher {
	return &FileWatcher{
		path:     path,
		hub:      hub,
		debounce: DefaultDebounce,
		log:      log,
	}
}

// Run watches until ctx is done. The database directory is watched rather
// than the file so the WAL file is covered too.
func (w *FileWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("file watcher: watch %s: %w", dir, err)
	}
	w.log.Debug().Str("dir", dir).Msg("watching database")

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("file watcher")

		case <-timer.C:
			w.log.Debug().Msg("database changed on disk")
			w.hub.Invalidate()
		}
	}
}

func (w *FileWatcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Base(ev.Name)
	base := filepath.Base(w.path)
	return name == base || name == base+"-wal"
}
