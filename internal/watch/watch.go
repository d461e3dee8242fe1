package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watch monitors a project tree and calls onChange after each burst of
// writes settles. It runs until ctx is cancelled.
func Watch(ctx context.Context, projectDir string, debounce time.Duration, onChange func()) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addTree(watcher, projectDir); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-pending:
			pending = nil
			onChange()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if skipPath(projectDir, event.Name) {
				continue
			}
			// New directories need their own watch to see files inside them.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						log.Printf("warning: watching %s: %v", event.Name, err)
					}
				}
			}
			// Only the most recent timer is selected on, so a burst of
			// events collapses into a single onChange.
			pending = time.After(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("warning: watcher error: %v", err)
		}
	}
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && skipName(info.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// skipPath reports whether a changed path sits under a directory that
// grading never reads, judged relative to the watch root so a hidden
// ancestor of the project does not suppress everything.
func skipPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if skipName(part) {
			return true
		}
	}
	return false
}

func skipName(name string) bool {
	if name == "node_modules" {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
