package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch re-runs the pipeline whenever the root tree changes. Events are
// merged over a debounce window so a bulk copy triggers a single run, and
// directories created while watching are added to the watch. Blocks until
// the context is cancelled.
func (p *Pipeline) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, p.root); err != nil {
		return fmt.Errorf("watching %s: %w", p.root, err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	p.log.Info("watching for changes", "root", p.root, "debounce", debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, serr := os.Stat(ev.Name); serr == nil && info.IsDir() {
					if werr := watchTree(watcher, ev.Name); werr != nil {
						p.log.Warn("unable to watch new directory", "path", ev.Name, "error", werr)
					}
				}
			}
			timer.Reset(debounce)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.log.Warn("watcher error", "error", werr)
		case <-timer.C:
			if _, err := p.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
