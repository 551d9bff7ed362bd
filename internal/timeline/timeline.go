// Package timeline maintains the ordered, deduplicated view of a channel's
// top-level messages. Every inbound change goes through an idempotent merge
// keyed by message id; optimistic sends reconcile against confirmations by
// client correlation id.
package timeline

import (
	"sort"
	"time"

	"github.com/seamlabs/weave/internal/types"
)

// DefaultBacklogLimit bounds a backlog snapshot load.
const DefaultBacklogLimit = 100

// proximityWindow bounds the fallback match between a pending send and a
// confirmation that lost its client id.
const proximityWindow = 30 * time.Second

// Timeline owns the live top-level message set for one channel. Soft
// deleted messages stay in the index for reply-count integrity; they are
// only excluded from Visible.
type Timeline struct {
	channelID  string
	byID       map[string]*types.Message
	byClientID map[string]*types.Message
	order      []*types.Message
}

// New creates an empty timeline for a channel.
func New(channelID string) *Timeline {
	return &Timeline{
		channelID:  channelID,
		byID:       make(map[string]*types.Message),
		byClientID: make(map[string]*types.Message),
	}
}

// ChannelID returns the channel this timeline belongs to.
func (t *Timeline) ChannelID() string {
	return t.channelID
}

// LoadBacklog replaces the timeline contents with a backlog snapshot.
// Replies and deleted messages are filtered out defensively even though
// the store query already excludes them.
func (t *Timeline) LoadBacklog(messages []*types.Message) {
	t.byID = make(map[string]*types.Message)
	t.byClientID = make(map[string]*types.Message)
	t.order = t.order[:0]

	for _, msg := range messages {
		if msg.IsReply() || msg.Deleted || msg.ChannelID != t.channelID {
			continue
		}
		t.insert(cloneMessage(msg))
	}
}

// AppendLocal adds an optimistic send. The message carries its client id
// as provisional id until Reconcile swaps in the confirmed copy. A client
// id already indexed means the logical message is present, typically the
// confirmed copy loaded from backlog after a channel switch, so nothing
// is appended.
func (t *Timeline) AppendLocal(msg *types.Message) {
	if msg.ChannelID != t.channelID || msg.IsReply() {
		return
	}
	if _, ok := t.byID[msg.ID]; ok {
		return
	}
	if msg.ClientID != "" {
		if _, ok := t.byClientID[msg.ClientID]; ok {
			return
		}
	}
	t.insert(cloneMessage(msg))
}

// Reconcile merges a server-confirmed message. Matches the optimistic
// entry by client id first, then by author and body within a small time
// window for stores that drop the client id. An unmatched message is
// genuinely new and is appended. At any point the timeline holds at most
// one entry for the logical message.
func (t *Timeline) Reconcile(confirmed *types.Message) {
	if confirmed.ChannelID != t.channelID || confirmed.IsReply() {
		return
	}
	if existing, ok := t.byID[confirmed.ID]; ok {
		t.mergeInPlace(existing, confirmed)
		// A distinct entry under the same client id is a leftover
		// optimistic copy of this message; evict it so the logical
		// message renders once.
		if confirmed.ClientID != "" {
			if dup, found := t.byClientID[confirmed.ClientID]; found && dup != existing {
				t.remove(dup.ID)
			}
			t.byClientID[confirmed.ClientID] = existing
		}
		return
	}

	pending := t.matchPending(confirmed)
	if pending != nil {
		t.remove(pending.ID)
	}

	msg := cloneMessage(confirmed)
	msg.Status = types.StatusConfirmed
	t.insert(msg)
}

// Apply merges a live feed event. Re-applying the same event is a no-op.
func (t *Timeline) Apply(event types.Event) {
	if event.Message == nil || event.Message.ChannelID != t.channelID || event.Message.IsReply() {
		return
	}

	switch event.Type {
	case types.EventInsert:
		t.Reconcile(event.Message)
	case types.EventUpdate:
		if existing, ok := t.byID[event.Message.ID]; ok {
			t.mergeInPlace(existing, event.Message)
		}
	case types.EventDelete:
		if existing, ok := t.byID[event.Message.ID]; ok {
			existing.Deleted = true
		}
	}
}

// MarkFailed transitions a pending send to the failed state. The entry is
// retained for explicit retry or discard; sends are never silently
// dropped.
func (t *Timeline) MarkFailed(clientID string) bool {
	msg, ok := t.byClientID[clientID]
	if !ok || msg.Status != types.StatusPending {
		return false
	}
	msg.Status = types.StatusFailed
	return true
}

// Discard removes a failed optimistic entry. Confirmed messages are soft
// deleted upstream, never discarded here.
func (t *Timeline) Discard(clientID string) bool {
	msg, ok := t.byClientID[clientID]
	if !ok || msg.Status != types.StatusFailed {
		return false
	}
	t.remove(msg.ID)
	return true
}

// Pending returns the in-flight and failed optimistic entries.
func (t *Timeline) Pending() []*types.Message {
	var out []*types.Message
	for _, msg := range t.order {
		if msg.Status == types.StatusPending || msg.Status == types.StatusFailed {
			out = append(out, msg)
		}
	}
	return out
}

// Get returns a message by id, including soft-deleted ones.
func (t *Timeline) Get(id string) (*types.Message, bool) {
	msg, ok := t.byID[id]
	return msg, ok
}

// Has reports whether the timeline indexes the id, deleted or not.
func (t *Timeline) Has(id string) bool {
	_, ok := t.byID[id]
	return ok
}

// Visible returns the renderable messages in (createdAt, id) order.
func (t *Timeline) Visible() []*types.Message {
	out := make([]*types.Message, 0, len(t.order))
	for _, msg := range t.order {
		if msg.Deleted {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func (t *Timeline) matchPending(confirmed *types.Message) *types.Message {
	if confirmed.ClientID != "" {
		if pending, ok := t.byClientID[confirmed.ClientID]; ok {
			return pending
		}
		return nil
	}

	// Correlation id lost in transit: fall back to author+body proximity.
	for _, msg := range t.order {
		if msg.Status != types.StatusPending {
			continue
		}
		if msg.AuthorID != confirmed.AuthorID || msg.Body != confirmed.Body {
			continue
		}
		delta := confirmed.CreatedAt.Sub(msg.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= proximityWindow {
			return msg
		}
	}
	return nil
}

func (t *Timeline) mergeInPlace(existing, incoming *types.Message) {
	existing.Body = incoming.Body
	existing.EditedAt = incoming.EditedAt
	existing.EditCount = incoming.EditCount
	existing.Deleted = incoming.Deleted
	existing.Reactions = cloneReactions(incoming.Reactions)
	if existing.Status == types.StatusPending || existing.Status == types.StatusFailed {
		existing.Status = types.StatusConfirmed
	}
}

func (t *Timeline) insert(msg *types.Message) {
	if msg.Status == "" {
		msg.Status = types.StatusConfirmed
	}
	t.byID[msg.ID] = msg
	if msg.ClientID != "" {
		t.byClientID[msg.ClientID] = msg
	}

	idx := sort.Search(len(t.order), func(i int) bool {
		return lessMessage(msg, t.order[i])
	})
	t.order = append(t.order, nil)
	copy(t.order[idx+1:], t.order[idx:])
	t.order[idx] = msg
}

func (t *Timeline) remove(id string) {
	msg, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	if msg.ClientID != "" {
		delete(t.byClientID, msg.ClientID)
	}
	for i, ordered := range t.order {
		if ordered.ID == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// lessMessage orders by (createdAt, id); createdAt alone is not unique
// under concurrent sends.
func lessMessage(a, b *types.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func cloneMessage(msg *types.Message) *types.Message {
	out := *msg
	out.Reactions = cloneReactions(msg.Reactions)
	if len(msg.Attachments) > 0 {
		out.Attachments = append([]types.Attachment(nil), msg.Attachments...)
	}
	if len(msg.SavedBy) > 0 {
		out.SavedBy = append([]string(nil), msg.SavedBy...)
	}
	return &out
}

func cloneReactions(reactions map[string][]string) map[string][]string {
	if reactions == nil {
		return nil
	}
	out := make(map[string][]string, len(reactions))
	for emoji, users := range reactions {
		out[emoji] = append([]string(nil), users...)
	}
	return out
}
