// Package thread maintains lazily-loaded reply lists keyed by parent
// message, with reply counts kept incrementally by the live feed.
package thread

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/seamlabs/weave/internal/store"
	"github.com/seamlabs/weave/internal/types"
)

// Aggregator owns ThreadState for the active channel. Closing a thread
// keeps its cached replies; switching channels resets everything.
type Aggregator struct {
	store store.Store
	log   *slog.Logger

	threads map[string]*types.ThreadState
	counts  map[string]int
	// seen/removed track reply ids so duplicate feed events cannot skew
	// the counts.
	seen    map[string]struct{}
	removed map[string]struct{}
	// clients maps a reply's client correlation id to its current id, so
	// a confirmation swaps the optimistic entry instead of adding one.
	clients map[string]string
	// parentKnown filters orphaned replies; typically the timeline's Has.
	parentKnown func(parentID string) bool
}

// New creates an aggregator over the given store. parentKnown may be nil,
// in which case every parent is accepted.
func New(s store.Store, parentKnown func(string) bool, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	a := &Aggregator{
		store:       s,
		log:         log,
		parentKnown: parentKnown,
	}
	a.Reset()
	return a
}

// Reset drops all cached thread state, for channel switches.
func (a *Aggregator) Reset() {
	a.threads = make(map[string]*types.ThreadState)
	a.counts = make(map[string]int)
	a.seen = make(map[string]struct{})
	a.removed = make(map[string]struct{})
	a.clients = make(map[string]string)
}

// OpenThread returns the thread state for a parent, fetching replies on
// first open only. Reopening a closed thread hits the cache.
func (a *Aggregator) OpenThread(ctx context.Context, parentID string) (*types.ThreadState, error) {
	if state, ok := a.threads[parentID]; ok && state.Loaded {
		return state, nil
	}

	replies, err := a.store.FetchReplies(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("open thread %s: %w", parentID, err)
	}

	state := &types.ThreadState{ParentID: parentID, Loaded: true}
	for _, reply := range replies {
		state.Replies = append(state.Replies, reply)
		if _, ok := a.seen[reply.ID]; !ok {
			a.seen[reply.ID] = struct{}{}
			a.counts[parentID]++
		}
		if reply.ClientID != "" {
			a.clients[reply.ClientID] = reply.ID
		}
	}
	a.threads[parentID] = state
	return state, nil
}

// ReplyCount returns the projected reply count for a parent. O(1): the
// projection is maintained by feed events, never recomputed by scanning.
func (a *Aggregator) ReplyCount(parentID string) int {
	return a.counts[parentID]
}

// SeedCount primes the count projection for a parent, used when backlog
// metadata carries reply totals for threads that were never opened.
func (a *Aggregator) SeedCount(parentID string, count int) {
	if _, ok := a.threads[parentID]; ok {
		return
	}
	if count > a.counts[parentID] {
		a.counts[parentID] = count
	}
}

// Apply merges a live feed event affecting a reply. Non-reply events are
// ignored here; the timeline handles them.
func (a *Aggregator) Apply(event types.Event) {
	msg := event.Message
	if msg == nil || !msg.IsReply() {
		return
	}
	parentID := *msg.ParentID

	if a.parentKnown != nil && !a.parentKnown(parentID) {
		// Out-of-order delivery: the reply beat its parent's insert. Drop
		// it; the next OpenThread fetch recovers it.
		a.log.Debug("dropping orphaned reply", "reply", msg.ID, "parent", parentID)
		return
	}

	switch event.Type {
	case types.EventInsert:
		a.applyInsert(parentID, msg)
	case types.EventUpdate:
		a.applyUpdate(parentID, msg)
	case types.EventDelete:
		a.applyDelete(parentID, msg)
	}
}

// AppendLocal adds an optimistic reply to a loaded thread and counts it.
func (a *Aggregator) AppendLocal(msg *types.Message) {
	if !msg.IsReply() {
		return
	}
	a.applyInsert(*msg.ParentID, msg)
}

// Reconcile replaces an optimistic reply with its confirmed counterpart.
// A confirmation arriving through the live feed takes the same path via
// Apply, so whichever lands first wins and the other is a no-op.
func (a *Aggregator) Reconcile(confirmed *types.Message) {
	if !confirmed.IsReply() {
		return
	}
	a.applyInsert(*confirmed.ParentID, confirmed)
}

func (a *Aggregator) applyInsert(parentID string, msg *types.Message) {
	if _, ok := a.seen[msg.ID]; ok {
		return
	}

	if msg.ClientID != "" {
		if prevID, ok := a.clients[msg.ClientID]; ok && prevID != msg.ID {
			// Confirmation of an optimistic reply: swap, count unchanged.
			delete(a.seen, prevID)
			a.seen[msg.ID] = struct{}{}
			a.clients[msg.ClientID] = msg.ID
			if state, loaded := a.threads[parentID]; loaded {
				for i, reply := range state.Replies {
					if reply.ID == prevID {
						out := *msg
						out.Status = types.StatusConfirmed
						state.Replies[i] = &out
						break
					}
				}
				a.sortReplies(state)
			}
			return
		}
		a.clients[msg.ClientID] = msg.ID
	}

	a.seen[msg.ID] = struct{}{}
	a.counts[parentID]++

	state, ok := a.threads[parentID]
	if !ok {
		// Thread never opened: the count projection is all we maintain.
		return
	}
	out := *msg
	if out.Status == "" {
		out.Status = types.StatusConfirmed
	}
	state.Replies = append(state.Replies, &out)
	a.sortReplies(state)
}

func (a *Aggregator) applyUpdate(parentID string, msg *types.Message) {
	state, ok := a.threads[parentID]
	if !ok {
		return
	}
	for _, reply := range state.Replies {
		if reply.ID == msg.ID {
			reply.Body = msg.Body
			reply.EditedAt = msg.EditedAt
			reply.EditCount = msg.EditCount
			reply.Reactions = msg.Reactions
			return
		}
	}
}

func (a *Aggregator) applyDelete(parentID string, msg *types.Message) {
	if _, counted := a.seen[msg.ID]; !counted {
		return
	}
	if _, gone := a.removed[msg.ID]; gone {
		return
	}
	a.removed[msg.ID] = struct{}{}
	a.counts[parentID]--

	if state, ok := a.threads[parentID]; ok {
		for _, reply := range state.Replies {
			if reply.ID == msg.ID {
				reply.Deleted = true
				break
			}
		}
	}
}

// LoadedParents lists the parents whose reply lists are cached, for
// re-fetching after a feed gap.
func (a *Aggregator) LoadedParents() []string {
	var out []string
	for parentID, state := range a.threads {
		if state.Loaded {
			out = append(out, parentID)
		}
	}
	sort.Strings(out)
	return out
}

// RefreshThread merges a fresh reply snapshot into a loaded thread.
// Replies the feed missed are inserted; confirmed cached replies absent
// from the snapshot were deleted upstream and are marked deleted. Local
// pending and failed entries are left alone.
func (a *Aggregator) RefreshThread(parentID string, replies []*types.Message) {
	state, ok := a.threads[parentID]
	if !ok || !state.Loaded {
		return
	}

	fresh := make(map[string]struct{}, len(replies))
	for _, reply := range replies {
		fresh[reply.ID] = struct{}{}
		if _, known := a.seen[reply.ID]; known {
			a.applyUpdate(parentID, reply)
		} else {
			a.applyInsert(parentID, reply)
		}
	}
	for _, reply := range state.Replies {
		if reply.Deleted || reply.Status == types.StatusPending || reply.Status == types.StatusFailed {
			continue
		}
		if _, kept := fresh[reply.ID]; !kept {
			a.applyDelete(parentID, reply)
		}
	}
}

// Get returns a cached reply by id from any loaded thread, including
// soft-deleted ones.
func (a *Aggregator) Get(id string) (*types.Message, bool) {
	for _, state := range a.threads {
		for _, reply := range state.Replies {
			if reply.ID == id {
				return reply, true
			}
		}
	}
	return nil, false
}

// VisibleReplies returns a loaded thread's non-deleted replies in order.
func (a *Aggregator) VisibleReplies(parentID string) []*types.Message {
	state, ok := a.threads[parentID]
	if !ok {
		return nil
	}
	out := make([]*types.Message, 0, len(state.Replies))
	for _, reply := range state.Replies {
		if reply.Deleted {
			continue
		}
		out = append(out, reply)
	}
	return out
}

func (a *Aggregator) sortReplies(state *types.ThreadState) {
	sort.SliceStable(state.Replies, func(i, j int) bool {
		ri, rj := state.Replies[i], state.Replies[j]
		if !ri.CreatedAt.Equal(rj.CreatedAt) {
			return ri.CreatedAt.Before(rj.CreatedAt)
		}
		return ri.ID < rj.ID
	})
}
