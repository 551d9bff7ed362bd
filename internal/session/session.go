// Package session wires the registry, timeline, thread aggregator,
// dispatcher and interaction engine together for one client session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seamlabs/weave/internal/core"
	"github.com/seamlabs/weave/internal/directory"
	"github.com/seamlabs/weave/internal/dispatch"
	"github.com/seamlabs/weave/internal/interact"
	"github.com/seamlabs/weave/internal/registry"
	"github.com/seamlabs/weave/internal/store"
	"github.com/seamlabs/weave/internal/thread"
	"github.com/seamlabs/weave/internal/timeline"
	"github.com/seamlabs/weave/internal/types"
)

// DefaultSendTimeout bounds the optimistic-send confirmation wait.
const DefaultSendTimeout = 10 * time.Second

// pendingSend is the session's ledger entry for an in-flight or failed
// send. It survives channel switches so the failed state is restored when
// the user returns to the channel.
type pendingSend struct {
	payload types.OutgoingMessage
	failed  bool
}

// Session is a single user's live connection to the engine. All state is
// scoped to this session; cross-client consistency flows only through the
// store and its change feed.
type Session struct {
	UserID string

	store        store.Store
	Registry     *registry.Registry
	Directory    *directory.Directory
	Dispatcher   *dispatch.Dispatcher
	Threads      *thread.Aggregator
	Interactions *interact.Engine

	log         *slog.Logger
	sendTimeout time.Duration

	mu       sync.Mutex
	timeline *timeline.Timeline
	pending  map[string]*pendingSend
}

// Options tunes a session.
type Options struct {
	SendTimeout time.Duration
	Logger      *slog.Logger
	Persist     store.InteractionStore
	// Feed overrides where change events come from. Nil means the store's
	// own notifier; a websocket feed client plugs in here.
	Feed dispatch.EventSource
}

// New builds a session over the given store and identity lookup.
func New(userID string, s store.Store, lookup directory.Lookup, opts Options) *Session {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sess := &Session{
		UserID:      userID,
		store:       s,
		Registry:    registry.New(),
		Directory:   directory.New(lookup),
		log:         opts.Logger,
		sendTimeout: opts.SendTimeout,
		pending:     make(map[string]*pendingSend),
	}

	source := opts.Feed
	if source == nil {
		source = s
	}
	sess.Dispatcher = dispatch.New(source, opts.Logger)
	sess.Threads = thread.New(s, sess.parentKnown, opts.Logger)
	sess.Interactions = interact.New(sess.resolveMessage, s, opts.Persist)

	sess.Dispatcher.AddHandler(sess.applyEvent)
	sess.Dispatcher.SetRefresh(sess.refreshBacklog)
	return sess
}

// SelectChannel makes a channel active: the previous subscription is torn
// down before the new one opens, the old channel's messages are evicted,
// and the new backlog is loaded.
func (s *Session) SelectChannel(ctx context.Context, channelID string) (*types.Channel, error) {
	ch, err := s.Registry.Select(channelID)
	if err != nil {
		return nil, err
	}

	s.Dispatcher.Close()

	s.mu.Lock()
	s.timeline = timeline.New(channelID)
	s.mu.Unlock()
	s.Threads.Reset()

	backlog, err := s.store.FetchBacklog(ctx, channelID, timeline.DefaultBacklogLimit)
	if err != nil {
		return nil, fmt.Errorf("load backlog: %w", err)
	}

	s.mu.Lock()
	s.timeline.LoadBacklog(backlog)
	s.restorePendingLocked(channelID)
	s.mu.Unlock()

	if err := s.Dispatcher.Subscribe(channelID); err != nil {
		return nil, err
	}
	return ch, nil
}

// Timeline returns the active channel's visible messages.
func (s *Session) Timeline() []*types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeline == nil {
		return nil
	}
	return s.timeline.Visible()
}

// Send validates the draft, appends the optimistic entry and starts the
// confirmation round trip. It never blocks on the network; the returned
// message is the pending entry.
func (s *Session) Send(ctx context.Context, draft core.Draft) (*types.Message, error) {
	draft.AuthorID = s.UserID
	if draft.MentionNames == nil {
		draft.MentionNames = s.Directory.CanonicalNames()
	}
	payload, err := core.BuildSendPayload(draft)
	if err != nil {
		return nil, err
	}

	pendingMsg := core.PendingMessage(payload)

	s.mu.Lock()
	s.pending[payload.ClientID] = &pendingSend{payload: payload}
	if pendingMsg.IsReply() {
		s.Threads.AppendLocal(pendingMsg)
	} else if s.timeline != nil && s.timeline.ChannelID() == payload.ChannelID {
		s.timeline.AppendLocal(pendingMsg)
	}
	s.mu.Unlock()

	go s.confirmSend(payload)
	return pendingMsg, nil
}

// RetrySend re-sends a failed message, reusing its client id so the store
// deduplicates if the original write actually landed.
func (s *Session) RetrySend(clientID string) error {
	s.mu.Lock()
	entry, ok := s.pending[clientID]
	if !ok || !entry.failed {
		s.mu.Unlock()
		return fmt.Errorf("failed send %s: %w", clientID, types.ErrNotFound)
	}
	entry.failed = false
	if s.timeline != nil {
		if msg, found := s.timeline.Get(clientID); found {
			msg.Status = types.StatusPending
		}
	}
	s.mu.Unlock()

	go s.confirmSend(entry.payload)
	return nil
}

// DiscardFailed drops a failed send for good.
func (s *Session) DiscardFailed(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[clientID]
	if !ok || !entry.failed {
		return fmt.Errorf("failed send %s: %w", clientID, types.ErrNotFound)
	}
	delete(s.pending, clientID)
	if s.timeline != nil {
		s.timeline.Discard(clientID)
	}
	return nil
}

// MarkRead resets the active unread counter and records a read receipt
// for the newest visible message.
func (s *Session) MarkRead(ctx context.Context, channelID string) error {
	if err := s.Registry.MarkRead(channelID); err != nil {
		return err
	}

	s.mu.Lock()
	var newest *types.Message
	if s.timeline != nil && s.timeline.ChannelID() == channelID {
		visible := s.timeline.Visible()
		if len(visible) > 0 {
			newest = visible[len(visible)-1]
		}
	}
	s.mu.Unlock()

	if newest != nil && newest.AuthorID != s.UserID {
		return s.Interactions.MarkReadReceipt(ctx, newest.ID, s.UserID)
	}
	return nil
}

// confirmSend runs the store round trip for one payload with the bounded
// timeout. The optimistic entry either reconciles or transitions to the
// failed state; it is never silently dropped. A confirm that lands after a
// channel switch only clears the ledger: the durable history already has
// the message, and the evicted timeline is re-fetched on return.
func (s *Session) confirmSend(payload types.OutgoingMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	confirmed, err := s.store.CreateMessage(ctx, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("send %s: %w", payload.ClientID, types.ErrTimeout)
		}
		s.log.Warn("send failed", "client_id", payload.ClientID, "error", err)

		s.mu.Lock()
		if entry, ok := s.pending[payload.ClientID]; ok {
			entry.failed = true
		}
		if s.timeline != nil && s.timeline.ChannelID() == payload.ChannelID {
			s.timeline.MarkFailed(payload.ClientID)
		}
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	delete(s.pending, payload.ClientID)
	if confirmed.IsReply() {
		s.Threads.Reconcile(confirmed)
	} else if s.timeline != nil && s.timeline.ChannelID() == confirmed.ChannelID {
		s.timeline.Reconcile(confirmed)
	}
	s.mu.Unlock()
}

// applyEvent is the dispatcher handler: idempotent merge into timeline and
// thread state, plus unread accounting.
func (s *Session) applyEvent(event types.Event) {
	s.mu.Lock()
	if s.timeline != nil {
		s.timeline.Apply(event)
	}
	s.Threads.Apply(event)
	s.mu.Unlock()

	if event.Type == types.EventInsert && event.Message != nil {
		if event.Message.AuthorID != s.UserID {
			s.Registry.IncrementUnread(event.Message.ChannelID)
		}
		s.Registry.TouchActivity(event.Message.ChannelID, event.Message.CreatedAt)
	}
}

// refreshBacklog covers the gap after a feed reconnect: the feed does not
// replay missed events, so the whole stale range is re-fetched and merged
// through the usual idempotent path.
func (s *Session) refreshBacklog(ctx context.Context, channelID string) error {
	backlog, err := s.store.FetchBacklog(ctx, channelID, timeline.DefaultBacklogLimit)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.timeline == nil || s.timeline.ChannelID() != channelID {
		s.mu.Unlock()
		return nil
	}
	for _, msg := range backlog {
		s.timeline.Reconcile(msg)
	}
	parents := s.Threads.LoadedParents()
	s.mu.Unlock()

	// Loaded threads are re-fetched too: replies that landed or were
	// deleted during the gap only exist in the store.
	for _, parentID := range parents {
		replies, err := s.store.FetchReplies(ctx, parentID)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.Threads.RefreshThread(parentID, replies)
		s.mu.Unlock()
	}
	return nil
}

func (s *Session) restorePendingLocked(channelID string) {
	for clientID, entry := range s.pending {
		if entry.payload.ChannelID != channelID || entry.payload.ParentID != nil {
			continue
		}
		msg := core.PendingMessage(entry.payload)
		s.timeline.AppendLocal(msg)
		if entry.failed {
			s.timeline.MarkFailed(clientID)
		}
	}
}

// resolveMessage serves the interaction engine: interactions address any
// live message, top-level or thread reply.
func (s *Session) resolveMessage(id string) (*types.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeline != nil {
		if msg, ok := s.timeline.Get(id); ok {
			return msg, true
		}
	}
	return s.Threads.Get(id)
}

// parentKnown runs inside the session lock: the aggregator only consults
// it from Apply/AppendLocal, which the session always calls under mu.
func (s *Session) parentKnown(parentID string) bool {
	return s.timeline != nil && s.timeline.Has(parentID)
}
