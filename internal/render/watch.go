package render

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 250 * time.Millisecond

// Watch reloads templates whenever a *.tmpl file in the directory changes.
// It blocks until ctx is cancelled. Without a directory it returns at once.
func (e *Engine) Watch(ctx context.Context) error {
	if e.dir == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(e.dir); err != nil {
		return fmt.Errorf("watch %s: %w", e.dir, err)
	}
	e.logger.Info("template watcher started", zap.String("dir", e.dir))

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() {
			if err := e.Reload(); err != nil {
				e.logger.Warn("template reload failed, keeping previous set", zap.Error(err))
				return
			}
			e.logger.Info("templates reloaded", zap.String("dir", e.dir))
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != ext {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				schedule()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("template watcher error", zap.Error(err))
		}
	}
}
