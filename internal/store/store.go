// Package store defines the message store adapter contract and ships a
// SQLite implementation of it. The engine depends only on the interfaces;
// durability and change-notification delivery are the adapter's problem.
package store

import (
	"context"

	"github.com/seamlabs/weave/internal/types"
)

// Store is the durable message store the engine writes to and reads from.
// Change notifications are at-least-once; consumers dedupe by message id.
type Store interface {
	// CreateMessage persists a payload and returns the confirmed message
	// with its durable id. The client id round-trips for reconciliation.
	CreateMessage(ctx context.Context, payload types.OutgoingMessage) (*types.Message, error)
	// UpdateMessage applies a partial patch. Returns ErrNotFound for an
	// unknown id.
	UpdateMessage(ctx context.Context, id string, patch MessagePatch) (*types.Message, error)
	// FetchMessage loads one message regardless of deletion state.
	FetchMessage(ctx context.Context, id string) (*types.Message, error)
	// FetchBacklog returns up to limit visible top-level messages for a
	// channel, ordered by (created_at, id) ascending.
	FetchBacklog(ctx context.Context, channelID string, limit int) ([]*types.Message, error)
	// FetchReplies returns the visible replies of a top-level message in
	// (created_at, id) order.
	FetchReplies(ctx context.Context, parentID string) ([]*types.Message, error)
	// Subscribe registers for the channel's change feed. Events arrive in
	// commit order for that channel; no cross-channel ordering holds.
	Subscribe(channelID string, onEvent func(types.Event)) (Subscription, error)
}

// Subscription is an open change-feed registration.
type Subscription interface {
	Close() error
}

// MessagePatch is a partial message update. Nil fields are left untouched;
// a non-nil Reactions replaces the whole reaction map.
type MessagePatch struct {
	Body      *string
	Deleted   *bool
	Reactions map[string][]string
}

// ChannelStore persists channel registry state for callers that want the
// registry to survive restarts. The in-memory registry works without it.
type ChannelStore interface {
	ListChannels(ctx context.Context, teamID string) ([]types.Channel, error)
	UpsertChannel(ctx context.Context, ch types.Channel) error
}

// InteractionStore persists the per-channel pin set, per-user saves and
// read receipts.
type InteractionStore interface {
	SetPinned(ctx context.Context, channelID, messageID string, pinned bool, by string) error
	PinnedMessages(ctx context.Context, channelID string) ([]string, error)
	SetSaved(ctx context.Context, userID, messageID string, saved bool) error
	SavedMessages(ctx context.Context, userID string) ([]string, error)
	AddReadReceipt(ctx context.Context, r types.ReadReceipt) error
	ReadReceipts(ctx context.Context, messageID string) ([]types.ReadReceipt, error)
}
