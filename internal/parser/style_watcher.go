package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/warehouse-visualizer/backend/internal/logging"
	"github.com/warehouse-visualizer/backend/internal/models"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// StyleWatcher reparses a style sheet whenever it changes on disk and hands
// the result to its listeners. A sheet that fails to parse is logged and the
// listeners keep the previous style.
type StyleWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration

	mu       sync.Mutex
	onChange []func(*models.Style)
}

// NewStyleWatcher watches the directory holding path, so editors that save
// by rename are picked up too.
func NewStyleWatcher(path string, logger *zap.Logger) (*StyleWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch style directory: %w", err)
	}

	return &StyleWatcher{
		path:     abs,
		watcher:  watcher,
		logger:   logging.OrNop(logger).Named("style"),
		debounce: DefaultDebounce,
	}, nil
}

// OnChange registers fn to receive every successfully parsed style.
func (w *StyleWatcher) OnChange(fn func(*models.Style)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Start watches until ctx is done, then releases the watcher.
func (w *StyleWatcher) Start(ctx context.Context) {
	go w.watchLoop(ctx)
	w.logger.Info("style watcher started", zap.String("path", w.path))
}

func (w *StyleWatcher) watchLoop(ctx context.Context) {
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))
		}
	}
}

func (w *StyleWatcher) reload() {
	style, err := ParseStyle(w.path)
	if err != nil {
		w.logger.Error("style sheet reload failed, keeping current style", zap.Error(err))
		return
	}

	w.mu.Lock()
	listeners := append([]func(*models.Style){}, w.onChange...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(style)
	}
	w.logger.Info("style sheet reloaded",
		zap.Int("cellWidth", style.CellWidth),
		zap.Int("cellHeight", style.CellHeight),
	)
}
