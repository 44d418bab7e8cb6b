package api

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oyvindstegard/ox-tagfilter/internal/outline"
	"github.com/oyvindstegard/ox-tagfilter/internal/session"
)

// watchDebounce is the quiescence window for filesystem events. Editors
// often emit several writes per save; one re-ingest per burst is enough.
const watchDebounce = 500 * time.Millisecond

// WatchDocsDir watches dir for changes to supported export files and
// re-ingests them into the registry. It blocks until ctx is canceled.
func (s *Server) WatchDocsDir(ctx context.Context, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.log.Info("watching docs dir", "dir", dir)

	// One debouncer per path so a burst of saves to one file does not
	// delay re-ingest of another.
	var mu sync.Mutex
	debouncers := make(map[string]*session.Debouncer)
	trigger := func(path string) {
		mu.Lock()
		deb, ok := debouncers[path]
		if !ok {
			deb = session.NewDebouncer(watchDebounce)
			debouncers[path] = deb
		}
		mu.Unlock()
		deb.Trigger(func() {
			if err := s.loadDocFile(ctx, path); err != nil {
				s.log.Warn("reload failed", "path", path, "error", err)
				return
			}
			s.log.Info("document reloaded", "path", path)
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, deb := range debouncers {
				deb.Cancel()
			}
			mu.Unlock()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !outline.IsSupported(filepath.Base(event.Name)) {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove != 0:
				s.removeDocFile(event.Name)
				s.log.Info("document removed", "path", event.Name)

			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				trigger(event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watcher error", "error", err)
		}
	}
}
