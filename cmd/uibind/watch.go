package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const rebuildDebounce = 500 * time.Millisecond

// watchedExt reports whether a change to name should trigger a rebuild.
func watchedExt(name string) bool {
	switch filepath.Ext(name) {
	case ".go", ".mod", ".sum", ".html", ".yaml", ".yml":
		return true
	}
	return false
}

// watchRoots lists appDir plus every local (non module cache) module it
// depends on.
func watchRoots(appDir string, logger *zap.Logger) []string {
	roots := []string{appDir}

	gomodcache, err := exec.Command("go", "env", "GOMODCACHE").Output()
	if err != nil {
		logger.Warn("failed to read GOMODCACHE", zap.Error(err))
	}
	cache := strings.TrimSpace(string(gomodcache))

	list := exec.Command("go", "list", "-C", appDir, "-m", "-mod=readonly", "-f", "{{.Dir}}", "all")
	list.Env = buildEnv(appDir, logger)
	out, err := list.Output()
	if err != nil {
		logger.Warn("failed to list modules", zap.Error(err))
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" || (cache != "" && strings.HasPrefix(line, cache)) {
			continue
		}
		roots = append(roots, line)
	}
	return roots
}

// watchFiles calls onChange, debounced, whenever a watched file under one of
// roots changes. It returns when ctx is done.
func watchFiles(ctx context.Context, roots []string, logger *zap.Logger, onChange func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error setting up file watcher: %w", err)
	}
	defer watcher.Close()

	seen := map[string]bool{}
	for _, root := range roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !info.IsDir() || seen[path] {
				return nil
			}
			if name := info.Name(); path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			seen[path] = true
			if err := watcher.Add(path); err != nil {
				logger.Warn("failed to watch directory", zap.String("dir", path), zap.Error(err))
			}
			return nil
		})
		if err != nil {
			logger.Warn("failed to walk directory", zap.String("dir", root), zap.Error(err))
		}
	}

	timer := time.NewTimer(rebuildDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !watchedExt(event.Name) {
				continue
			}
			logger.Info("file changed, scheduling rebuild", zap.String("file", event.Name))
			if !timer.Stop() && pending {
				<-timer.C
			}
			timer.Reset(rebuildDebounce)
			pending = true
		case <-timer.C:
			pending = false
			if err := onChange(); err != nil {
				logger.Error("rebuild failed", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}
