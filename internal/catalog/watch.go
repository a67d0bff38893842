package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"finitefield.org/zephyr-web/internal/observability"
)

const defaultDebounce = 250 * time.Millisecond

// WatchOption tunes Watch.
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// WithDebounce overrides the quiet period that must elapse before a reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// Watch reloads the catalog file whenever it changes until ctx is cancelled. The parent
// directory is watched because editors often replace files instead of writing in place.
// A reload that fails to parse is logged and skipped, so onReload only sees valid catalogs.
func Watch(ctx context.Context, path string, onReload func([]Product), opts ...WatchOption) error {
	options := watchOptions{debounce: defaultDebounce}
	for _, opt := range opts {
		opt(&options)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("catalog: resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("catalog: watch %s: %w", filepath.Dir(abs), err)
	}

	logger := observability.FromContext(ctx).With(zap.String("catalog", abs))
	logger.Info("catalog watcher started")

	timer := time.NewTimer(options.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("catalog watcher stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(options.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog watcher error", zap.Error(err))
		case <-timer.C:
			products, err := LoadFile(abs)
			if err != nil {
				logger.Error("catalog reload failed; keeping previous catalog", zap.Error(err))
				continue
			}
			for _, problem := range Validate(products) {
				logger.Warn("catalog problem", zap.String("problem", problem.String()))
			}
			logger.Info("catalog reloaded", zap.Int("products", len(products)))
			onReload(products)
		}
	}
}
