package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jpillora/backoff"

	logx "xaubot/pkg/logx"
)

const reloadDebounce = 250 * time.Millisecond

const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove | fsnotify.Chmod

var errWatcherClosed = errors.New("watcher closed")

// Watch reloads the config when the config file or an env file changes,
// until ctx is done. A broken fsnotify watcher is recreated with backoff.
// Editors often write a file several times; bursts are coalesced.
func (m *ConfigManager) Watch(ctx context.Context) error {
	files := m.watchedFiles()
	if len(files) == 0 {
		<-ctx.Done()
		return nil
	}

	d := &debouncer{delay: reloadDebounce, fn: func() { m.reloadAndLog(ctx) }}
	defer d.stop()

	b := &backoff.Backoff{Min: 250 * time.Millisecond, Max: 5 * time.Second, Factor: 2, Jitter: true}
	for {
		err := m.watchSession(ctx, files, d, b.Reset)
		if ctx.Err() != nil {
			return nil
		}
		wait := b.Duration()
		m.log.Warn("config watcher restarting", logx.Duration("backoff", wait), logx.Err(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// watchSession runs one fsnotify watcher. It returns when ctx is done or the
// watcher fails; started is called once the watcher is set up.
func (m *ConfigManager) watchSession(ctx context.Context, files []string, d *debouncer, started func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch directories: editors replace files by rename.
	want := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		want[f] = true
		dirs[filepath.Dir(f)] = true
	}
	var addErr error
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			addErr = errors.Join(addErr, fmt.Errorf("watch %s: %w", dir, err))
		}
	}
	if addErr != nil {
		return addErr
	}
	started()
	m.log.Debug("config watcher started", logx.Int("files", len(files)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errWatcherClosed
			}
			if want[filepath.Clean(ev.Name)] && ev.Op&reloadOps != 0 {
				d.trigger()
			}
		case err, ok := <-w.Errors:
			switch {
			case !ok:
				return errWatcherClosed
			case errors.Is(err, fsnotify.ErrEventOverflow):
				m.log.Warn("config watch overflow, forcing reload", logx.Err(err))
				d.trigger()
			case err != nil:
				m.log.Warn("config watch error", logx.Err(err))
			}
		}
	}
}

func (m *ConfigManager) reloadAndLog(ctx context.Context) {
	changed, err := m.Reload(ctx)
	switch {
	case err != nil:
		m.log.Warn("config rejected, keeping previous", logx.String("path", m.path), logx.Err(err))
	case changed:
		m.log.Info("config reloaded", logx.String("path", m.path))
	default:
		m.log.Debug("config unchanged", logx.String("path", m.path))
	}
}

// watchedFiles returns the cleaned absolute paths of the config and env files.
func (m *ConfigManager) watchedFiles() []string {
	var out []string
	for _, p := range append([]string{m.path}, m.envFiles...) {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, filepath.Clean(abs))
		}
	}
	return out
}

// debouncer runs fn once, delay after the last trigger.
type debouncer struct {
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	timer *time.Timer
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
