package persistence

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent reports that a watched list file was written, created, replaced or removed.
type ChangeEvent struct {
	Path string
	Op   fsnotify.Op
}

// Watcher follows a single list file. It watches the containing directory so
// that atomic saves (rename over the file) and first-time creation are seen.
type Watcher struct {
	path   string
	logger *slog.Logger
	events chan ChangeEvent
}

func NewWatcher(path string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:   filepath.Clean(path),
		logger: logger,
		events: make(chan ChangeEvent, 16),
	}
}

// Events is closed when the watcher stops.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Start begins watching until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return err
	}

	go func() {
		defer fsw.Close()
		defer close(w.events)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != w.path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				select {
				case w.events <- ChangeEvent{Path: ev.Name, Op: ev.Op}:
				default:
				}
				w.logger.Debug("list file changed", "path", ev.Name, "op", ev.Op.String())
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Error("list watcher error", "error", err)
			}
		}
	}()
	return nil
}
