// Package watcher detects external edits to the vault (other editors,
// file sync tools) and triggers a store reload once the burst settles.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is how long the vault must stay quiet before a reload
// fires. Our own atomic writes arrive as bursts of tmp-file renames;
// one window collapses them into a single reload.
const DefaultQuiet = 500 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and calls onQuiet
// after each settled burst of changes, until ctx is cancelled. onQuiet
// receives the sorted vault-relative paths of the burst so the caller
// can tell the store's own saves apart from genuinely external edits.
// New directories created at runtime are added to the watch list.
func Watch(ctx context.Context, vaultRoot string, quiet time.Duration, logger *slog.Logger, onQuiet func(changed []string)) error {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var timer *time.Timer
	var timerCh <-chan time.Time
	changed := make(map[string]struct{})

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(quiet)
			timerCh = timer.C
		} else {
			timer.Reset(quiet)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			paths := make([]string, 0, len(changed))
			for p := range changed {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			changed = make(map[string]struct{})
			logger.Debug("watcher: vault settled", slog.Int("paths", len(paths)))
			onQuiet(paths)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			base := filepath.Base(ev.Name)
			if strings.HasPrefix(base, ".") {
				// Dotfiles include our own atomic-write temp files.
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}
			if rel, relErr := filepath.Rel(vaultRoot, ev.Name); relErr == nil {
				changed[filepath.ToSlash(rel)] = struct{}{}
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds dir and every subdirectory to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && p != dir {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
