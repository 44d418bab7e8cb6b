package api

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oyvindstegard/ox-tagfilter/internal/outline"
	"github.com/oyvindstegard/ox-tagfilter/internal/session"
)

// LoadDocsDir preloads every supported export in dir into the registry.
// Individual files that fail to parse are skipped with a warning.
func (s *Server) LoadDocsDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read docs dir: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() || !outline.IsSupported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := s.loadDocFile(ctx, path); err != nil {
			s.log.Warn("skipping document", "path", path, "error", err)
			continue
		}
		loaded++
	}
	s.log.Info("documents loaded", "dir", dir, "count", loaded)
	return nil
}

// loadDocFile (re)ingests one export file as a pinned registry entry.
// The selection store key is the file path, so selections survive both
// restarts and re-ingests.
func (s *Server) loadDocFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	name := filepath.Base(path)
	doc, err := outline.Load(bytes.NewReader(data), name)
	if err != nil {
		return fmt.Errorf("build outline: %w", err)
	}

	sess := session.Open(ctx, doc, session.Options{
		Store:          s.store,
		Key:            path,
		Log:            s.log,
		DebounceWindow: s.cfg.DebounceWindow,
	})

	// A changed file gets a new content hash; drop the old entry.
	if old := s.reg.ByName(name); old != nil {
		s.reg.Delete(old.ID)
	}
	s.reg.Put(&Entry{
		ID:       DocID(data),
		Name:     name,
		Session:  sess,
		Pinned:   true,
		LoadedAt: time.Now(),
	})
	return nil
}

// removeDocFile drops the registry entry for a deleted export file.
func (s *Server) removeDocFile(path string) {
	if old := s.reg.ByName(filepath.Base(path)); old != nil {
		s.reg.Delete(old.ID)
	}
}
