package staticblog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// rebuildDelay coalesces bursts of file events into one rebuild.
const rebuildDelay = 300 * time.Millisecond

// Watch rebuilds the site whenever a file under the content or static dir
// changes, until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	return watchDirs(ctx, []string{a.Config.ContentDir, a.Config.StaticDir}, func() {
		slog.Info("change detected; rebuilding site")
		if _, err := a.Rebuild(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("rebuild failed", "error", err)
		}
	})
}

// watchDirs calls rebuild after changes under dirs settle. Rebuilds never
// overlap; a change during a rebuild schedules one more.
func watchDirs(ctx context.Context, dirs []string, rebuild func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer watcher.Close()
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := addDirsRecursive(watcher, dir); err != nil {
			return err
		}
	}

	requests := make(chan struct{}, 1)
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(rebuildDelay, func() {
			select {
			case requests <- struct{}{}:
			default:
			}
		})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-requests:
				rebuild()
			}
		}
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoreEvent(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = addDirsRecursive(watcher, ev.Name)
				}
			}
			slog.Debug("file change detected", "path", ev.Name, "op", ev.Op.String())
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				slog.Warn("watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

// ignoreEvent filters editor swap files and hidden files.
func ignoreEvent(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".tmp")
}
