package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/logging"
)

// Watcher hot-reloads configuration on file change, adapted from the
// teacher's ConfigWatcher (internal/config/hot_reload.go) with the same
// debounce-and-wait-for-stability discipline.
type Watcher struct {
	watcher        *fsnotify.Watcher
	configPath     string
	reloadCallback func(*Config) error
	logger         *logging.Logger

	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewWatcher creates a Watcher for configPath.
func NewWatcher(configPath string, reloadCallback func(*Config) error, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.Config("NewWatcher", "failed to create file watcher", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher:        fsw,
		configPath:     configPath,
		reloadCallback: reloadCallback,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

// Start begins watching the configuration file's directory for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return apperrors.Config("Watcher.Start", "config watcher is already running", nil)
	}
	if _, err := os.Stat(w.configPath); os.IsNotExist(err) {
		return apperrors.Config("Watcher.Start", "configuration file does not exist", err)
	}

	configDir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(configDir); err != nil {
		return apperrors.Config("Watcher.Start", "failed to watch config directory", err)
	}

	w.isRunning = true
	w.logger.Info("configuration hot reload started")
	go w.watchLoop()
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isRunning {
		return nil
	}
	w.cancel()
	w.isRunning = false

	if err := w.watcher.Close(); err != nil {
		return apperrors.Config("Watcher.Stop", "failed to close file watcher", err)
	}
	w.logger.Info("configuration hot reload stopped")
	return nil
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.isRunning
}

func (w *Watcher) watchLoop() {
	var lastReload time.Time
	const debounce = 500 * time.Millisecond

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if time.Since(lastReload) < debounce {
				continue
			}

			switch event.Op {
			case fsnotify.Write, fsnotify.Create:
				w.logger.Info("configuration file changed, reloading")
				if err := w.reload(); err != nil {
					w.logger.WithError(err).Error("failed to reload configuration")
				} else {
					lastReload = time.Now()
				}
			case fsnotify.Remove:
				w.logger.Warn("configuration file removed; continuing to watch")
			case fsnotify.Rename:
				w.logger.Info("configuration file renamed; continuing to watch")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("file watcher error")
		}
	}
}

func (w *Watcher) reload() error {
	if err := w.waitForStable(); err != nil {
		return err
	}

	cfg, err := NewLoader().Load(w.configPath)
	if err != nil {
		return err
	}
	if w.reloadCallback != nil {
		if err := w.reloadCallback(cfg); err != nil {
			return apperrors.Config("Watcher.reload", "reload callback failed", err)
		}
	}
	w.logger.Info("configuration reloaded successfully")
	return nil
}

// waitForStable waits until the file's size stops changing, avoiding a
// reload mid-write.
func (w *Watcher) waitForStable() error {
	const (
		maxWait        = 5 * time.Second
		checkInterval  = 100 * time.Millisecond
		stabilityCount = 3
	)

	start := time.Now()
	lastSize := int64(-1)
	stableChecks := 0

	for time.Since(start) < maxWait {
		stat, err := os.Stat(w.configPath)
		if err != nil {
			if os.IsNotExist(err) {
				time.Sleep(checkInterval)
				continue
			}
			return apperrors.Config("Watcher.waitForStable", "failed to stat config file", err)
		}

		if stat.Size() == lastSize {
			stableChecks++
			if stableChecks >= stabilityCount {
				return nil
			}
		} else {
			stableChecks = 0
			lastSize = stat.Size()
		}
		time.Sleep(checkInterval)
	}

	return apperrors.Config("Watcher.waitForStable", "configuration file did not stabilize in time", nil)
}
