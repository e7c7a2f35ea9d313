package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"framestream-go/internal/logging"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher re-reads the config file when it changes and applies the live
// frequency keys. Other keys need a restart.
type Watcher struct {
	path string
	live *Live
	log  zerolog.Logger

	mu       sync.Mutex
	debounce *time.Timer
}

func NewWatcher(path string, live *Live, logger zerolog.Logger) *Watcher {
	return &Watcher{
		path: path,
		live: live,
		log:  logging.Component(logger, "config-watcher"),
	}
}

// Run watches the file's directory until ctx is done. Editors often replace
// files instead of writing them, so the directory is watched rather than the
// file itself.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Base(w.path)

	defer func() {
		w.mu.Lock()
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload(reloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) debounceReload(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(delay, func() {
		if err := w.Reload(); err != nil {
			w.log.Warn().Err(err).Str("path", w.path).Msg("config reload failed")
		}
	})
}

// Reload parses the file once and applies rgb_hz and depth_hz if present.
func (w *Watcher) Reload() error {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		return err
	}
	u := FrequencyUpdate{RGBHz: fc.Scheduler.RGBHz, DepthHz: fc.Scheduler.DepthHz}
	if u.RGBHz == nil && u.DepthHz == nil {
		return nil
	}
	f, err := w.live.Update(u)
	if err != nil {
		return err
	}
	w.log.Info().Float64("rgb_hz", f.RGBHz).Float64("depth_hz", f.DepthHz).Msg("frequencies reloaded")
	return nil
}
