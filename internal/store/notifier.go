package store

import (
	"sync"

	"github.com/seamlabs/weave/internal/types"
)

// Notifier fans change events out to per-channel subscribers. The SQLite
// adapter publishes from its write path, standing in for row-level change
// notifications. Delivery to one subscriber is in publish order.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(types.Event)
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]map[int]func(types.Event))}
}

// Subscribe registers a callback for one channel's events.
func (n *Notifier) Subscribe(channelID string, onEvent func(types.Event)) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs[channelID] == nil {
		n.subs[channelID] = make(map[int]func(types.Event))
	}
	n.nextID++
	id := n.nextID
	n.subs[channelID][id] = onEvent

	return &notifierSub{notifier: n, channelID: channelID, id: id}
}

// Publish delivers an event to every subscriber of its channel. Callbacks
// run on the publisher's goroutine; subscribers must not block.
func (n *Notifier) Publish(event types.Event) {
	channelID := event.ChannelID()
	if channelID == "" {
		return
	}

	n.mu.Lock()
	callbacks := make([]func(types.Event), 0, len(n.subs[channelID]))
	for _, fn := range n.subs[channelID] {
		callbacks = append(callbacks, fn)
	}
	n.mu.Unlock()

	for _, fn := range callbacks {
		fn(event)
	}
}

type notifierSub struct {
	notifier  *Notifier
	channelID string
	id        int
}

func (s *notifierSub) Close() error {
	s.notifier.mu.Lock()
	defer s.notifier.mu.Unlock()
	if subs := s.notifier.subs[s.channelID]; subs != nil {
		delete(subs, s.id)
	}
	return nil
}
