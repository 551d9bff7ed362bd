// Package dispatch subscribes to the message store's change feed for the
// active channel and fans events into timeline/thread state exactly once,
// in receipt order.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seamlabs/weave/internal/store"
	"github.com/seamlabs/weave/internal/types"
)

// State is the dispatcher lifecycle state.
type State string

const (
	StateIdle        State = "idle"
	StateSubscribing State = "subscribing"
	StateActive      State = "active"
	StateClosed      State = "closed"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// Handler consumes one change-feed event.
type Handler func(types.Event)

// EventSource is the subscription half of the store contract. A local
// store and a remote websocket feed both satisfy it.
type EventSource interface {
	Subscribe(channelID string, onEvent func(types.Event)) (store.Subscription, error)
}

// Dispatcher manages one channel subscription at a time. Events are
// processed one at a time to completion; no two passes run concurrently
// for the same channel.
type Dispatcher struct {
	store EventSource
	log   *slog.Logger

	mu sync.Mutex
	// procMu serializes handler execution: one event runs to completion
	// before the next begins.
	procMu    sync.Mutex
	state     State
	channelID string
	sub       store.Subscription
	handlers  []Handler
	stopRetry chan struct{}

	// refresh re-fetches whatever could be stale after a reconnect; the
	// feed does not replay missed events.
	refresh func(ctx context.Context, channelID string) error
	// onDegraded surfaces connectivity loss without tearing down state.
	onDegraded func(degraded bool)
}

// New creates an idle dispatcher.
func New(s EventSource, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{store: s, log: log, state: StateIdle}
}

// AddHandler registers an event consumer. Handlers run in registration
// order on every event.
func (d *Dispatcher) AddHandler(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// SetRefresh installs the stale-state refresh used after reconnects.
func (d *Dispatcher) SetRefresh(fn func(ctx context.Context, channelID string) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refresh = fn
}

// SetDegraded installs the degraded-connectivity signal.
func (d *Dispatcher) SetDegraded(fn func(bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDegraded = fn
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Subscribe opens the feed for a channel. Any previous subscription is
// torn down synchronously first, so no dual-subscription state exists.
func (d *Dispatcher) Subscribe(channelID string) error {
	d.mu.Lock()
	d.teardownLocked()
	d.channelID = channelID
	d.state = StateSubscribing
	d.mu.Unlock()

	sub, err := d.store.Subscribe(channelID, d.dispatch)
	if err != nil {
		d.mu.Lock()
		d.state = StateIdle
		d.mu.Unlock()
		return fmt.Errorf("subscribe %s: %w", channelID, err)
	}

	d.mu.Lock()
	if d.state != StateSubscribing || d.channelID != channelID {
		// Closed or re-targeted while connecting.
		d.mu.Unlock()
		_ = sub.Close()
		return nil
	}
	d.sub = sub
	d.mu.Unlock()
	return nil
}

// MarkActive transitions Subscribing to Active on a subscribe-confirmed
// signal. The first delivered event does the same implicitly.
func (d *Dispatcher) MarkActive() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateSubscribing {
		d.state = StateActive
	}
}

// Close tears down the subscription for channel switch or logout.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardownLocked()
	d.state = StateClosed
	d.channelID = ""
}

// ConnectionLost is called by feed adapters on transport failure. The
// dispatcher surfaces degradation, then retries with backoff; loaded state
// stays intact. On success, the refresh hook covers the gap.
func (d *Dispatcher) ConnectionLost() {
	d.mu.Lock()
	if d.state != StateActive && d.state != StateSubscribing {
		d.mu.Unlock()
		return
	}
	if d.sub != nil {
		_ = d.sub.Close()
		d.sub = nil
	}
	d.state = StateSubscribing
	channelID := d.channelID
	degraded := d.onDegraded
	stop := make(chan struct{})
	if d.stopRetry != nil {
		close(d.stopRetry)
	}
	d.stopRetry = stop
	d.mu.Unlock()

	if degraded != nil {
		degraded(true)
	}
	go d.retryLoop(channelID, stop)
}

func (d *Dispatcher) retryLoop(channelID string, stop chan struct{}) {
	backoff := initialBackoff
	for {
		select {
		case <-stop:
			return
		case <-time.After(backoff):
		}

		sub, err := d.store.Subscribe(channelID, d.dispatch)
		if err != nil {
			d.log.Warn("resubscribe failed", "channel", channelID, "backoff", backoff, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		d.mu.Lock()
		if d.state != StateSubscribing || d.channelID != channelID {
			d.mu.Unlock()
			_ = sub.Close()
			return
		}
		d.sub = sub
		d.state = StateActive
		refresh := d.refresh
		degraded := d.onDegraded
		d.mu.Unlock()

		if refresh != nil {
			if err := refresh(context.Background(), channelID); err != nil {
				d.log.Warn("post-reconnect refresh failed", "channel", channelID, "error", err)
			}
		}
		if degraded != nil {
			degraded(false)
		}
		return
	}
}

// dispatch applies one event under the processing lock: handlers for one
// event finish before the next event starts.
func (d *Dispatcher) dispatch(event types.Event) {
	d.mu.Lock()
	if d.state == StateClosed || d.state == StateIdle {
		d.mu.Unlock()
		return
	}
	if event.ChannelID() != d.channelID {
		d.mu.Unlock()
		return
	}
	if d.state == StateSubscribing {
		d.state = StateActive
	}
	handlers := d.handlers
	d.mu.Unlock()

	d.procMu.Lock()
	defer d.procMu.Unlock()
	for _, h := range handlers {
		h(event)
	}
}

func (d *Dispatcher) teardownLocked() {
	if d.sub != nil {
		_ = d.sub.Close()
		d.sub = nil
	}
	if d.stopRetry != nil {
		close(d.stopRetry)
		d.stopRetry = nil
	}
}
