// Package registry keeps the in-memory index of a session's channels:
// favorites, archive state and unread counts. Persistence is the caller's
// job; the registry only mutates its own sets.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/seamlabs/weave/internal/types"
)

// Registry indexes the channels available to one session. Exactly one
// channel is active at a time. Safe for concurrent use: the dispatcher
// goroutine bumps unread counters while the caller lists and selects.
// Accessors return snapshots, never pointers into the registry's state.
type Registry struct {
	mu       sync.Mutex
	channels map[string]*types.Channel
	order    []string
	archived map[string]*types.Channel
	activeID string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		channels: make(map[string]*types.Channel),
		archived: make(map[string]*types.Channel),
	}
}

// Load replaces the registry contents with a directory snapshot, keeping
// registry order. Archived channels go straight to the archived set.
func (r *Registry) Load(channels []types.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.channels = make(map[string]*types.Channel)
	r.archived = make(map[string]*types.Channel)
	r.order = r.order[:0]
	r.activeID = ""

	for i := range channels {
		ch := channels[i]
		if ch.Archived {
			r.archived[ch.ID] = &ch
			continue
		}
		r.channels[ch.ID] = &ch
		r.order = append(r.order, ch.ID)
	}
}

// Add registers one channel, appended to registry order.
func (r *Registry) Add(ch types.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch.Archived {
		r.archived[ch.ID] = &ch
		return
	}
	if _, ok := r.channels[ch.ID]; ok {
		return
	}
	r.channels[ch.ID] = &ch
	r.order = append(r.order, ch.ID)
}

// List returns a team's active channels, favorites first, otherwise in
// registry order.
func (r *Registry) List(teamID string) []types.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	var favorites, rest []types.Channel
	for _, id := range r.order {
		ch := r.channels[id]
		if ch == nil || ch.TeamID != teamID {
			continue
		}
		if ch.Favorite {
			favorites = append(favorites, *ch)
		} else {
			rest = append(rest, *ch)
		}
	}
	return append(favorites, rest...)
}

// Archived returns a team's archived channels sorted by code.
func (r *Registry) Archived(teamID string) []types.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []types.Channel
	for _, ch := range r.archived {
		if ch.TeamID == teamID {
			out = append(out, *ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Select makes a channel active and returns its snapshot. Archived and
// unknown channels fail with ErrNotFound; the previously active channel
// is simply replaced, teardown of its subscription is the session's
// responsibility before calling this.
func (r *Registry) Select(id string) (*types.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", id, types.ErrNotFound)
	}
	r.activeID = id
	out := *ch
	return &out, nil
}

// Active returns a snapshot of the active channel, or nil when none is
// selected.
func (r *Registry) Active() *types.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeID == "" {
		return nil
	}
	ch, ok := r.channels[r.activeID]
	if !ok {
		return nil
	}
	out := *ch
	return &out
}

// Get returns a channel snapshot by id from the active or archived set.
func (r *Registry) Get(id string) (*types.Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := r.lookupLocked(id)
	if ch == nil {
		return nil, false
	}
	out := *ch
	return &out, true
}

func (r *Registry) lookupLocked(id string) *types.Channel {
	if ch, ok := r.channels[id]; ok {
		return ch
	}
	return r.archived[id]
}

// ToggleFavorite flips the favorite bit.
func (r *Registry) ToggleFavorite(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[id]
	if !ok {
		return fmt.Errorf("channel %s: %w", id, types.ErrNotFound)
	}
	ch.Favorite = !ch.Favorite
	return nil
}

// Archive moves a channel to the archived set. Archiving the active
// channel deactivates it.
func (r *Registry) Archive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[id]
	if !ok {
		return fmt.Errorf("channel %s: %w", id, types.ErrNotFound)
	}
	ch.Archived = true
	r.archived[id] = ch
	delete(r.channels, id)
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.activeID == id {
		r.activeID = ""
	}
	return nil
}

// Restore moves an archived channel back to the active registry, appended
// to registry order.
func (r *Registry) Restore(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.archived[id]
	if !ok {
		return fmt.Errorf("archived channel %s: %w", id, types.ErrNotFound)
	}
	ch.Archived = false
	delete(r.archived, id)
	r.channels[id] = ch
	r.order = append(r.order, id)
	return nil
}

// MarkRead resets the unread counter. Idempotent.
func (r *Registry) MarkRead(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[id]
	if !ok {
		return fmt.Errorf("channel %s: %w", id, types.ErrNotFound)
	}
	ch.UnreadCount = 0
	return nil
}

// IncrementUnread bumps the unread counter, used by the dispatcher for
// inserts from other authors into inactive channels.
func (r *Registry) IncrementUnread(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.channels[id]; ok {
		ch.UnreadCount++
	}
}

// TouchActivity records channel activity for sidebar ordering.
func (r *Registry) TouchActivity(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch := r.lookupLocked(id); ch != nil && at.After(ch.LastActivityAt) {
		ch.LastActivityAt = at
	}
}
