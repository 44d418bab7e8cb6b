// Package session drives the filter lifecycle for one loaded document:
// it collects metadata, restores the persisted tag selection, applies
// user events, and keeps the selection store up to date. Store failures
// degrade to non-persistent operation and are never surfaced as errors.
package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oyvindstegard/ox-tagfilter/internal/collect"
	"github.com/oyvindstegard/ox-tagfilter/internal/filter"
	"github.com/oyvindstegard/ox-tagfilter/internal/outline"
	"github.com/oyvindstegard/ox-tagfilter/internal/selstore"
)

// DefaultDebounceWindow is the quiescence window applied to search
// edits before a recompute runs.
const DefaultDebounceWindow = 100 * time.Millisecond

// Options configures a session.
type Options struct {
	// Store persists the tag selection. Nil means no persistence.
	Store selstore.Store

	// Key identifies the document in the store. Defaults to the
	// document name.
	Key string

	// Log receives warnings about degraded persistence. Nil discards.
	Log *slog.Logger

	// DebounceWindow overrides DefaultDebounceWindow when positive.
	DebounceWindow time.Duration
}

// Session holds the live filter state of one document.
type Session struct {
	doc   *outline.Document
	meta  *collect.Metadata
	eng   *filter.Engine
	store selstore.Store
	key   string
	log   *slog.Logger
	deb   *Debouncer

	mu        sync.Mutex
	state     filter.State
	last      *filter.Result
	lastSaved []string
	wasReset  bool
}

// Open collects the document's metadata, restores any persisted
// selection (intersected with the tags actually present), and computes
// the initial visibility. Never fails on store problems.
func Open(ctx context.Context, doc *outline.Document, opts Options) *Session {
	s := &Session{
		doc:   doc,
		meta:  collect.Collect(doc),
		store: opts.Store,
		key:   opts.Key,
		log:   opts.Log,
		state: filter.NewState(),
	}
	if s.store == nil {
		s.store = selstore.NullStore{}
	}
	if s.key == "" {
		s.key = doc.Name
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	window := opts.DebounceWindow
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	s.deb = NewDebouncer(window)
	s.eng = filter.New(doc, s.meta)

	restored := s.loadSelection(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = filter.Transition(s.state, filter.Restore{Tags: restored})
	s.recomputeLocked(ctx)
	return s
}

// loadSelection reads the persisted tag list and silently drops tags
// the current document no longer has.
func (s *Session) loadSelection(ctx context.Context) []string {
	tags, err := s.store.Load(ctx, s.key)
	if err != nil {
		s.log.Warn("selection restore failed, starting unfiltered", "key", s.key, "error", err)
		return nil
	}
	var known []string
	for _, t := range tags {
		if s.meta.InUniverse(t) {
			known = append(known, t)
		}
	}
	return known
}

// Apply runs one filter event. Search edits are debounced; everything
// else recomputes immediately. The returned result is the state after
// the event for immediate events, or the previous state for debounced
// ones (the recompute lands after the quiescence window).
func (s *Session) Apply(ctx context.Context, ev filter.Event) *filter.Result {
	s.mu.Lock()
	s.state = filter.Transition(s.state, ev)
	if _, ok := ev.(filter.SetSearch); ok {
		s.mu.Unlock()
		s.deb.Trigger(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.recomputeLocked(context.Background())
		})
		return s.Result()
	}
	defer s.mu.Unlock()
	s.deb.Cancel()
	s.recomputeLocked(ctx)
	return s.last
}

// SetSelection replaces the whole selection at once and recomputes
// synchronously.
func (s *Session) SetSelection(ctx context.Context, tags []string, search string) *filter.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deb.Cancel()
	s.state = filter.Transition(s.state, filter.Restore{Tags: tags})
	s.state = filter.Transition(s.state, filter.SetSearch{Text: search})
	s.recomputeLocked(ctx)
	return s.last
}

// recomputeLocked runs the engine and applies the self-correction rule:
// a selection that reaches no tags while the search is empty is an
// impossible combination (typically stale persisted state) and is
// cleared, the cleared selection persisted.
func (s *Session) recomputeLocked(ctx context.Context) {
	res := s.eng.Reveal(s.state.Tags, s.state.Search)
	s.wasReset = false

	if res.Filtered && len(res.Reachable) == 0 && len(collect.Tokenize(s.state.Search)) == 0 {
		s.state = filter.Transition(s.state, filter.Clear{})
		res = s.eng.Reveal(s.state.Tags, s.state.Search)
		s.wasReset = true
	}

	s.last = res
	s.persistLocked(ctx)
}

// persistLocked saves the tag selection when it changed since the last
// save. Failures degrade to a warning.
func (s *Session) persistLocked(ctx context.Context) {
	tags := s.state.SortedTags()
	if equalTags(tags, s.lastSaved) {
		return
	}
	if err := s.store.Save(ctx, s.key, tags); err != nil {
		s.log.Warn("selection save failed, continuing without persistence", "key", s.key, "error", err)
		return
	}
	s.lastSaved = tags
}

// Result returns the most recent visibility recompute.
func (s *Session) Result() *filter.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// State returns a copy of the current selection.
func (s *Session) State() filter.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// WasReset reports whether the last recompute self-corrected an
// impossible selection back to empty.
func (s *Session) WasReset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wasReset
}

// Flush forces any pending debounced recompute to run now.
func (s *Session) Flush() {
	s.deb.Flush()
}

// Document returns the session's snapshot.
func (s *Session) Document() *outline.Document { return s.doc }

// Metadata returns the collected metadata.
func (s *Session) Metadata() *collect.Metadata { return s.meta }

// Close cancels pending work. The store is owned by the caller.
func (s *Session) Close() {
	s.deb.Cancel()
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
