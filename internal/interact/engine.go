// Package interact layers the idempotent set-like operations — reactions,
// pins, saves, read receipts — on top of message identity.
package interact

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/seamlabs/weave/internal/store"
	"github.com/seamlabs/weave/internal/types"
)

// Resolver looks a message up in live state (timeline or thread cache).
type Resolver func(id string) (*types.Message, bool)

// Engine executes interactions against live message state and writes them
// through the store. Operations against a concurrently deleted message are
// vacuous successes, not errors the user needs to see.
type Engine struct {
	resolve  Resolver
	messages store.Store
	persist  store.InteractionStore

	pins     map[string]map[string]struct{}
	saves    map[string]map[string]struct{}
	receipts map[string]map[string]types.ReadReceipt
}

// New creates an engine. persist may be nil for purely in-memory sessions.
func New(resolve Resolver, messages store.Store, persist store.InteractionStore) *Engine {
	return &Engine{
		resolve:  resolve,
		messages: messages,
		persist:  persist,
		pins:     make(map[string]map[string]struct{}),
		saves:    make(map[string]map[string]struct{}),
		receipts: make(map[string]map[string]types.ReadReceipt),
	}
}

// locate finds a message in live state first, then falls back to the store
// for messages that are persisted but not cached anywhere.
func (e *Engine) locate(ctx context.Context, messageID string) (*types.Message, bool) {
	if msg, ok := e.resolve(messageID); ok {
		return msg, true
	}
	if e.messages == nil {
		return nil, false
	}
	msg, err := e.messages.FetchMessage(ctx, messageID)
	if err != nil {
		return nil, false
	}
	return msg, true
}

// React toggles userID's membership in reactions[emoji]. Removing the last
// user removes the emoji key entirely; no empty entries persist.
func (e *Engine) React(ctx context.Context, messageID, emoji, userID string) error {
	msg, ok := e.locate(ctx, messageID)
	if !ok {
		return fmt.Errorf("react to %s: %w", messageID, types.ErrNotFound)
	}
	if msg.Deleted {
		return nil
	}

	if msg.HasReaction(emoji, userID) {
		users := msg.Reactions[emoji]
		filtered := users[:0]
		for _, id := range users {
			if id != userID {
				filtered = append(filtered, id)
			}
		}
		if len(filtered) == 0 {
			delete(msg.Reactions, emoji)
			if len(msg.Reactions) == 0 {
				msg.Reactions = nil
			}
		} else {
			msg.Reactions[emoji] = filtered
		}
	} else {
		if msg.Reactions == nil {
			msg.Reactions = make(map[string][]string)
		}
		msg.Reactions[emoji] = append(msg.Reactions[emoji], userID)
	}

	if e.messages == nil {
		return nil
	}
	_, err := e.messages.UpdateMessage(ctx, messageID, store.MessagePatch{Reactions: msg.Reactions})
	if errors.Is(err, types.ErrNotFound) {
		// Deleted under us; semantically vacuous.
		return nil
	}
	return err
}

// Pin pins a message in the one channel it belongs to. Idempotent.
func (e *Engine) Pin(ctx context.Context, messageID, by string) error {
	return e.setPinned(ctx, messageID, by, true)
}

// Unpin removes a channel pin. Idempotent.
func (e *Engine) Unpin(ctx context.Context, messageID, by string) error {
	return e.setPinned(ctx, messageID, by, false)
}

func (e *Engine) setPinned(ctx context.Context, messageID, by string, pinned bool) error {
	msg, ok := e.locate(ctx, messageID)
	if !ok {
		return fmt.Errorf("pin %s: %w", messageID, types.ErrNotFound)
	}
	if msg.Deleted {
		return nil
	}

	channelPins := e.pins[msg.ChannelID]
	if channelPins == nil {
		channelPins = make(map[string]struct{})
		e.pins[msg.ChannelID] = channelPins
	}
	if pinned {
		channelPins[messageID] = struct{}{}
	} else {
		delete(channelPins, messageID)
	}
	msg.Pinned = pinned

	if e.persist == nil {
		return nil
	}
	return e.persist.SetPinned(ctx, msg.ChannelID, messageID, pinned, by)
}

// Pinned returns a channel's pinned message ids, sorted for stable output.
func (e *Engine) Pinned(channelID string) []string {
	ids := make([]string, 0, len(e.pins[channelID]))
	for id := range e.pins[channelID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Save bookmarks a message for a user. The reference is soft: it survives
// the user leaving the channel and even the message disappearing upstream.
func (e *Engine) Save(ctx context.Context, messageID, userID string) error {
	userSaves := e.saves[userID]
	if userSaves == nil {
		userSaves = make(map[string]struct{})
		e.saves[userID] = userSaves
	}
	userSaves[messageID] = struct{}{}

	if e.persist == nil {
		return nil
	}
	return e.persist.SetSaved(ctx, userID, messageID, true)
}

// Unsave removes a bookmark. Idempotent.
func (e *Engine) Unsave(ctx context.Context, messageID, userID string) error {
	delete(e.saves[userID], messageID)
	if e.persist == nil {
		return nil
	}
	return e.persist.SetSaved(ctx, userID, messageID, false)
}

// SavedRefs resolves a user's bookmarks. A hard-purged message resolves to
// an unavailable placeholder rather than erroring.
func (e *Engine) SavedRefs(ctx context.Context, userID string) []types.SavedRef {
	ids := make([]string, 0, len(e.saves[userID]))
	for id := range e.saves[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	refs := make([]types.SavedRef, 0, len(ids))
	for _, id := range ids {
		if msg, ok := e.resolve(id); ok {
			refs = append(refs, types.SavedRef{MessageID: id, Message: msg})
			continue
		}
		if e.messages != nil {
			if msg, err := e.messages.FetchMessage(ctx, id); err == nil {
				refs = append(refs, types.SavedRef{MessageID: id, Message: msg})
				continue
			}
		}
		refs = append(refs, types.SavedRef{MessageID: id, Unavailable: true})
	}
	return refs
}

// MarkReadReceipt appends a receipt, deduplicated by (message, reader).
func (e *Engine) MarkReadReceipt(ctx context.Context, messageID, readerID string) error {
	byReader := e.receipts[messageID]
	if byReader == nil {
		byReader = make(map[string]types.ReadReceipt)
		e.receipts[messageID] = byReader
	}
	if _, ok := byReader[readerID]; ok {
		return nil
	}
	receipt := types.ReadReceipt{MessageID: messageID, ReaderID: readerID, ReadAt: time.Now().UTC()}
	byReader[readerID] = receipt

	if e.persist == nil {
		return nil
	}
	return e.persist.AddReadReceipt(ctx, receipt)
}

// Receipts returns a message's receipts ordered by read time.
func (e *Engine) Receipts(messageID string) []types.ReadReceipt {
	out := make([]types.ReadReceipt, 0, len(e.receipts[messageID]))
	for _, r := range e.receipts[messageID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReadAt.Before(out[j].ReadAt) })
	return out
}

// LoadPersisted hydrates pins, saves and receipts for a channel from the
// interaction store, used on session start.
func (e *Engine) LoadPersisted(ctx context.Context, channelID, userID string) error {
	if e.persist == nil {
		return nil
	}

	pins, err := e.persist.PinnedMessages(ctx, channelID)
	if err != nil {
		return err
	}
	channelPins := make(map[string]struct{}, len(pins))
	for _, id := range pins {
		channelPins[id] = struct{}{}
		if msg, ok := e.resolve(id); ok {
			msg.Pinned = true
		}
	}
	e.pins[channelID] = channelPins

	saves, err := e.persist.SavedMessages(ctx, userID)
	if err != nil {
		return err
	}
	userSaves := make(map[string]struct{}, len(saves))
	for _, id := range saves {
		userSaves[id] = struct{}{}
	}
	e.saves[userID] = userSaves
	return nil
}
