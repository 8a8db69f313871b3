package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a new screenshot must stay quiet before it is
// handed to the callback.
const DefaultSettle = 500 * time.Millisecond

// Watcher reports new screenshots appearing in a directory.
type Watcher struct {
	dir    string
	settle time.Duration
	logger *slog.Logger
}

// NewWatcher creates a Watcher for dir. settle <= 0 means DefaultSettle.
func NewWatcher(dir string, settle time.Duration, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{dir: dir, settle: settle, logger: logger}
}

// Run calls fn with the path of each screenshot created in the directory
// once its writes have settled. It blocks until ctx is canceled. fn runs
// on the watcher goroutine, so events queue while it works.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, path string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("capture: creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("capture: watching %s: %w", w.dir, err)
	}

	w.logger.Info("watching for screenshots", slog.String("dir", w.dir))

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}

			if !IsScreenshot(ev.Name) {
				continue
			}

			// A rename away from the watched name also emits Rename; the
			// stat in flush drops it.
			pending[ev.Name] = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("watcher error", slog.String("error", err.Error()))

		case now := <-ticker.C:
			w.flush(ctx, pending, now, fn)
		}
	}
}

// flush hands settled paths to fn.
func (w *Watcher) flush(ctx context.Context, pending map[string]time.Time, now time.Time,
	fn func(ctx context.Context, path string),
) {
	for path, last := range pending {
		if now.Sub(last) < w.settle {
			continue
		}

		delete(pending, path)

		if !fileExists(path) {
			continue
		}

		w.logger.Debug("screenshot settled", slog.String("path", path))
		fn(ctx, path)
	}
}
