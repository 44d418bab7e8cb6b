package api

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oyvindstegard/ox-tagfilter/internal/session"
)

// Entry is one document loaded into the service, with its live filter
// session.
type Entry struct {
	ID      string
	Name    string
	Session *session.Session

	// Pinned entries come from the docs directory and never expire.
	Pinned bool

	LoadedAt time.Time
	lastUsed time.Time
}

// Registry is a thread-safe in-memory document registry with TTL
// eviction for uploaded documents.
type Registry struct {
	mu   sync.Mutex
	docs map[string]*Entry
	ttl  time.Duration
}

// NewRegistry creates a registry whose uploaded entries expire after
// ttl of disuse.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		docs: make(map[string]*Entry),
		ttl:  ttl,
	}
}

// Put registers an entry, replacing any previous one with the same ID.
// The replaced session, if any, is closed.
func (r *Registry) Put(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.docs[e.ID]; ok && old.Session != e.Session {
		old.Session.Close()
	}
	e.lastUsed = time.Now()
	r.docs[e.ID] = e
}

// Get returns an entry and refreshes its TTL clock.
func (r *Registry) Get(id string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.docs[id]
	if e != nil {
		e.lastUsed = time.Now()
	}
	return e
}

// Delete removes an entry and closes its session.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.docs[id]
	if !ok {
		return false
	}
	e.Session.Close()
	delete(r.docs, id)
	return true
}

// ByName returns the entry whose source name matches, or nil.
func (r *Registry) ByName(name string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.docs {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// List returns all entries sorted by name.
func (r *Registry) List() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry, 0, len(r.docs))
	for _, e := range r.docs {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CloseAll flushes and closes every session. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.docs {
		e.Session.Close()
		delete(r.docs, id)
	}
}

// Cleanup evicts unpinned entries idle longer than the TTL.
func (r *Registry) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for id, e := range r.docs {
		if !e.Pinned && now.Sub(e.lastUsed) > r.ttl {
			e.Session.Close()
			delete(r.docs, id)
		}
	}
}

// DocID derives a stable document identifier from content.
func DocID(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])[:16]
}
