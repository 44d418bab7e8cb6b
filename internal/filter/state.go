package filter

import "sort"

// State is the transient filter selection: active tags plus the search
// string. Values are immutable from the outside; Transition returns a
// fresh copy.
type State struct {
	Tags   map[string]bool
	Search string
}

// NewState returns an empty selection.
func NewState() State {
	return State{Tags: make(map[string]bool)}
}

// Clone returns an independent copy of the selection.
func (s State) Clone() State {
	next := State{Tags: make(map[string]bool, len(s.Tags)), Search: s.Search}
	for t := range s.Tags {
		next.Tags[t] = true
	}
	return next
}

// SortedTags returns the active tags in stable order, for persistence
// and display.
func (s State) SortedTags() []string {
	out := make([]string, 0, len(s.Tags))
	for t := range s.Tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether nothing is selected and no search text is set.
func (s State) Empty() bool {
	return len(s.Tags) == 0 && s.Search == ""
}

// Event is a user-level filter interaction.
type Event interface{ isEvent() }

// ToggleTag flips one tag in or out of the selection.
type ToggleTag struct{ Tag string }

// SetSearch replaces the free-text search string.
type SetSearch struct{ Text string }

// Clear drops the whole selection, tags and search.
type Clear struct{}

// Restore replaces the tag selection wholesale, e.g. from persistence.
// Search text is never restored.
type Restore struct{ Tags []string }

func (ToggleTag) isEvent() {}
func (SetSearch) isEvent() {}
func (Clear) isEvent()     {}
func (Restore) isEvent()   {}

// Transition applies one event to a selection and returns the new
// state. Pure: the input state is never mutated.
func Transition(s State, ev Event) State {
	next := s.Clone()

	switch ev := ev.(type) {
	case ToggleTag:
		if next.Tags[ev.Tag] {
			delete(next.Tags, ev.Tag)
		} else {
			next.Tags[ev.Tag] = true
		}
	case SetSearch:
		next.Search = ev.Text
	case Clear:
		next = NewState()
	case Restore:
		next.Tags = make(map[string]bool, len(ev.Tags))
		for _, t := range ev.Tags {
			next.Tags[t] = true
		}
	}
	return next
}
