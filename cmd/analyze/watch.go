package analyze

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/scan-io-git/convex-doctor/internal/discovery"
	"github.com/scan-io-git/convex-doctor/internal/parser"
)

const watchDebounce = 300 * time.Millisecond

// projectFiles are non-source files whose changes affect project-level rules.
var projectFiles = map[string]bool{
	"package.json":  true,
	"convex.json":   true,
	"tsconfig.json": true,
	".gitignore":    true,
	".nvmrc":        true,
	".node-version": true,
}

// watch runs the analysis once, then again after every burst of relevant file
// changes, until ctx is cancelled. Failed runs are logged and do not stop watching.
// The configuration is resolved once at startup.
func (a *analysis) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init failed: %w", err)
	}
	defer watcher.Close()

	if err := addWatchRecursive(watcher, a.root); err != nil {
		return fmt.Errorf("failed to watch %q: %w", a.root, err)
	}

	a.runOnce(ctx)
	a.logger.Info("watching for changes", "root", a.root)

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watch stopped")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && isWatchableDir(ev.Name) {
				if err := addWatchRecursive(watcher, ev.Name); err != nil {
					a.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
				}
			}
			if !isRelevantChange(ev) {
				continue
			}
			a.logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", "error", err)
		case <-timer.C:
			a.runOnce(ctx)
		}
	}
}

func (a *analysis) runOnce(ctx context.Context) {
	summary, err := a.run(ctx)
	if err != nil {
		a.logger.Error("analysis failed", "error", err)
		return
	}
	if err := a.write(summary); err != nil {
		a.logger.Error("failed to write report", "error", err)
		return
	}
	if err := checkFloor(summary.Score.Score, a.cfg.Score.FailBelow); err != nil {
		a.logger.Warn("score is below the configured floor", "score", summary.Score.Score, "fail_below", a.cfg.Score.FailBelow)
	}
}

func addWatchRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && discovery.IsExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func isWatchableDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir() && !discovery.IsExcludedDir(filepath.Base(path))
}

func isRelevantChange(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(ev.Name)
	return parser.IsSupported(ev.Name) || projectFiles[name] || strings.HasPrefix(name, ".env")
}
