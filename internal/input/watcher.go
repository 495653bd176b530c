package input

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultLayoutDebounce = 100 * time.Millisecond

// LayoutWatcher reloads a layout file into a Translator when it changes.
// An invalid file is logged and the current layout stays active.
type LayoutWatcher struct {
	path       string
	translator *Translator
	logger     *logging.Logger
	debounce   time.Duration
	fsw        *fsnotify.Watcher

	mu       sync.Mutex
	lastErr  error
	reloaded int
	onReload func(*Layout, error)
}

// NewLayoutWatcher watches the directory holding path so that editors
// that replace the file by rename are still seen
func NewLayoutWatcher(path string, t *Translator, logger *logging.Logger) (*LayoutWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve layout path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create layout watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LayoutWatcher{
		path:       abs,
		translator: t,
		logger:     logger,
		debounce:   defaultLayoutDebounce,
		fsw:        fsw,
	}, nil
}

// OnReload registers a callback run after every reload attempt
func (w *LayoutWatcher) OnReload(fn func(*Layout, error)) {
	w.mu.Lock()
	w.onReload = fn
	w.mu.Unlock()
}

// LastError returns the error of the most recent reload, nil after a success
func (w *LayoutWatcher) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Reloaded returns how many layouts were applied
func (w *LayoutWatcher) Reloaded() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloaded
}

// Run processes file events until ctx is done
func (w *LayoutWatcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("layout watcher event channel closed")
			}
			if filepath.Clean(evt.Name) != w.path {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, w.Reload)
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("layout watcher error channel closed")
			}
			w.logger.Warn("Layout watcher error", zap.Error(err))
		}
	}
}

// Reload reads the file now and applies it if valid
func (w *LayoutWatcher) Reload() {
	l, err := LoadLayout(w.path)
	if err != nil {
		w.logger.Warn("Ignoring invalid control layout",
			zap.String("path", w.path),
			zap.Error(err))
	} else {
		w.translator.SetLayout(l)
	}

	w.mu.Lock()
	w.lastErr = err
	if err == nil {
		w.reloaded++
	}
	fn := w.onReload
	w.mu.Unlock()

	if fn != nil {
		fn(l, err)
	}
}
