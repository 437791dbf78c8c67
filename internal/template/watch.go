package template

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher invalidates a DirProvider's cache when anything under its directory
// changes. fsnotify is not recursive, so every subdirectory gets its own watch.
type Watcher struct {
	provider *DirProvider
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()
}

// NewWatcher starts watching provider.Dir(). onChange (optional) runs after
// each debounced invalidation.
func NewWatcher(provider *DirProvider, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{provider: provider, watcher: fw, debounce: defaultDebounce, onChange: onChange}
	if err := w.addTree(provider.Dir()); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.provider.skip[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			slog.Debug("[DEBUG-TEMPLATE] template change", "op", event.Op.String(), "path", event.Name)
			if event.Has(fsnotify.Create) {
				// New subdirectories need their own watch. Errors are logged only.
				if err := w.addTree(event.Name); err != nil {
					slog.Debug("[DEBUG-TEMPLATE] watch new path failed", "path", event.Name, "error", err)
				}
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			w.provider.Invalidate()
			if w.onChange != nil {
				w.onChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("[WARN-TEMPLATE] template watcher error", "error", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
