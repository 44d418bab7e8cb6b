package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oyvindstegard/ox-tagfilter/internal/filter"
	"github.com/oyvindstegard/ox-tagfilter/internal/outline"
)

const orgExport = `<html><head><title>Project Notes</title></head><body>
<div id="content">
<h1 class="title">Project Notes</h1>
<div id="outline-container-org1" class="outline-2">
<h2 id="org1">Work&#xa0;&#xa0;<span class="tag"><span class="work">work</span></span></h2>
<div class="outline-text-2"><p>Work intro.</p></div>
<div id="outline-container-org2" class="outline-3">
<h3 id="org2"><span class="todo TODO">TODO</span> Deadlines&#xa0;&#xa0;<span class="tag"><span class="urgent">urgent</span></span></h3>
<div class="outline-text-3"><p>Ship the dragon feature.</p></div>
</div>
</div>
<div id="outline-container-org3" class="outline-2">
<h2 id="org3">Home&#xa0;&#xa0;<span class="tag"><span class="home">home</span></span></h2>
<div class="outline-text-2"><p>Garden plans.</p></div>
</div>
</div>
</body></html>`

// fakeStore is an in-memory selection store with injectable failures.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string][]string
	loadErr error
	saveErr error
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]string)}
}

func (f *fakeStore) Load(ctx context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.data[key], nil
}

func (f *fakeStore) Save(ctx context.Context, key string, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.data[key] = append([]string(nil), tags...)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) saved(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key]
}

func buildDoc(t *testing.T) *outline.Document {
	t.Helper()
	s := &outline.HTMLSource{}
	d, err := s.Build(strings.NewReader(orgExport), "notes.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestOpen_RestoresPersistedSelection(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.data["notes.html"] = []string{"work", "stale"}

	s := Open(ctx, buildDoc(t), Options{Store: store})
	defer s.Close()

	// Only tags the document still has survive the restore.
	if got := s.State().SortedTags(); len(got) != 1 || got[0] != "work" {
		t.Fatalf("restored selection = %v, want [work]", got)
	}
	res := s.Result()
	if !res.Filtered || len(res.Matches) == 0 {
		t.Error("expected the restored selection to filter the document")
	}
}

func TestOpen_StoreFailureDegrades(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.loadErr = errors.New("kaput")

	s := Open(ctx, buildDoc(t), Options{Store: store})
	defer s.Close()

	if res := s.Result(); res.Filtered {
		t.Error("a failing store must start the session unfiltered")
	}

	// Saves keep failing; filtering still works.
	store.saveErr = errors.New("kaput")
	store.loadErr = nil
	res := s.Apply(ctx, filter.ToggleTag{Tag: "work"})
	if !res.Filtered || len(res.Matches) == 0 {
		t.Error("filtering must keep working without persistence")
	}
}

func TestSession_SelfCorrectsImpossibleSelection(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()

	s := Open(ctx, buildDoc(t), Options{Store: store})
	defer s.Close()

	s.SetSelection(ctx, []string{"work"}, "")
	if got := store.saved("notes.html"); len(got) != 1 || got[0] != "work" {
		t.Fatalf("expected [work] persisted, got %v", got)
	}

	// work and home never co-occur; the selection reaches nothing and
	// resets itself, and the reset is persisted.
	res := s.SetSelection(ctx, []string{"work", "home"}, "")
	if !s.WasReset() {
		t.Fatal("expected the impossible selection to self-correct")
	}
	if res.Filtered {
		t.Error("expected an unfiltered result after the reset")
	}
	if !s.State().Empty() {
		t.Error("expected an empty selection after the reset")
	}
	if got := store.saved("notes.html"); len(got) != 0 {
		t.Errorf("expected the cleared selection persisted, got %v", got)
	}
}

func TestSession_SearchTypingIsNotCorrected(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, buildDoc(t), Options{})
	defer s.Close()

	// An unreachable state while search text is present is a normal
	// mid-typing condition, not stale persisted state.
	res := s.SetSelection(ctx, []string{"work", "home"}, "zzz")
	if s.WasReset() {
		t.Error("search typing must not trigger self-correction")
	}
	if !res.Filtered || len(res.Matches) != 0 {
		t.Errorf("expected an empty filtered result, got %d matches", len(res.Matches))
	}
}

func TestApply_SearchIsDebounced(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, buildDoc(t), Options{DebounceWindow: time.Hour})
	defer s.Close()

	res := s.Apply(ctx, filter.SetSearch{Text: "deadlines"})
	if res.Filtered {
		t.Error("a debounced search edit must not recompute immediately")
	}
	if s.Result().Filtered {
		t.Error("no recompute may land before the window elapses")
	}

	s.Flush()
	res = s.Result()
	if !res.Filtered || len(res.Matches) == 0 {
		t.Error("expected the flushed recompute to apply the search")
	}
}

func TestApply_TagToggleIsImmediate(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, buildDoc(t), Options{DebounceWindow: time.Hour})
	defer s.Close()

	res := s.Apply(ctx, filter.ToggleTag{Tag: "work"})
	if !res.Filtered || len(res.Matches) == 0 {
		t.Fatal("expected an immediate recompute for a tag toggle")
	}

	res = s.Apply(ctx, filter.ToggleTag{Tag: "work"})
	if res.Filtered {
		t.Error("expected an unfiltered result after deselecting")
	}
}

func TestApply_TagToggleCancelsPendingSearch(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, buildDoc(t), Options{DebounceWindow: time.Hour})
	defer s.Close()

	s.Apply(ctx, filter.SetSearch{Text: "deadlines"})
	res := s.Apply(ctx, filter.ToggleTag{Tag: "work"})

	// The search text still applies; it just recomputes now instead of
	// after the window.
	if !res.Filtered {
		t.Fatal("expected a filtered result")
	}
	for _, h := range res.Matches {
		if s.Document().Node(h).Elem == "h2" {
			t.Error("the h2 section does not match the pending search text")
		}
	}
}
