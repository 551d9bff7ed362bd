package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seamlabs/weave/internal/store"
	"github.com/seamlabs/weave/internal/types"
)

type feedStore struct {
	mu         sync.Mutex
	notifier   *store.Notifier
	subErr     error
	subscribes int
}

func newFeedStore() *feedStore {
	return &feedStore{notifier: store.NewNotifier()}
}

func (f *feedStore) CreateMessage(ctx context.Context, payload types.OutgoingMessage) (*types.Message, error) {
	return nil, nil
}

func (f *feedStore) UpdateMessage(ctx context.Context, id string, patch store.MessagePatch) (*types.Message, error) {
	return nil, nil
}

func (f *feedStore) FetchMessage(ctx context.Context, id string) (*types.Message, error) {
	return nil, types.ErrNotFound
}

func (f *feedStore) FetchBacklog(ctx context.Context, channelID string, limit int) ([]*types.Message, error) {
	return nil, nil
}

func (f *feedStore) FetchReplies(ctx context.Context, parentID string) ([]*types.Message, error) {
	return nil, nil
}

func (f *feedStore) Subscribe(channelID string, onEvent func(types.Event)) (store.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.notifier.Subscribe(channelID, onEvent), nil
}

func (f *feedStore) publish(e types.Event) {
	f.notifier.Publish(e)
}

func insertEvent(id, channelID string) types.Event {
	return types.Event{Type: types.EventInsert, Message: &types.Message{ID: id, ChannelID: channelID, CreatedAt: time.Now()}}
}

func TestLifecycleIdleSubscribingActiveClosed(t *testing.T) {
	fs := newFeedStore()
	d := New(fs, nil)

	if d.State() != StateIdle {
		t.Fatalf("expected idle, got %s", d.State())
	}
	if err := d.Subscribe("ch-1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if d.State() != StateSubscribing {
		t.Fatalf("expected subscribing, got %s", d.State())
	}

	// First delivered event flips the state to active.
	fs.publish(insertEvent("m1", "ch-1"))
	if d.State() != StateActive {
		t.Fatalf("expected active, got %s", d.State())
	}

	d.Close()
	if d.State() != StateClosed {
		t.Fatalf("expected closed, got %s", d.State())
	}
}

func TestMarkActiveOnSubscribeConfirmed(t *testing.T) {
	fs := newFeedStore()
	d := New(fs, nil)
	if err := d.Subscribe("ch-1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d.MarkActive()
	if d.State() != StateActive {
		t.Fatalf("expected active, got %s", d.State())
	}
}

func TestEventsReachHandlersInOrder(t *testing.T) {
	fs := newFeedStore()
	d := New(fs, nil)

	var got []string
	d.AddHandler(func(e types.Event) { got = append(got, e.Message.ID) })
	if err := d.Subscribe("ch-1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	fs.publish(insertEvent("m1", "ch-1"))
	fs.publish(insertEvent("m2", "ch-1"))
	fs.publish(insertEvent("m3", "ch-1"))

	if len(got) != 3 || got[0] != "m1" || got[1] != "m2" || got[2] != "m3" {
		t.Fatalf("expected in-order delivery, got %v", got)
	}
}

func TestSwitchTearsDownPreviousSubscription(t *testing.T) {
	fs := newFeedStore()
	d := New(fs, nil)

	var got []string
	d.AddHandler(func(e types.Event) { got = append(got, e.Message.ID) })

	if err := d.Subscribe("ch-1"); err != nil {
		t.Fatalf("subscribe ch-1: %v", err)
	}
	if err := d.Subscribe("ch-2"); err != nil {
		t.Fatalf("subscribe ch-2: %v", err)
	}

	fs.publish(insertEvent("m1", "ch-1"))
	fs.publish(insertEvent("m2", "ch-2"))

	if len(got) != 1 || got[0] != "m2" {
		t.Fatalf("expected only ch-2 events after switch, got %v", got)
	}
}

func TestClosedDispatcherDropsEvents(t *testing.T) {
	fs := newFeedStore()
	d := New(fs, nil)
	var got []string
	d.AddHandler(func(e types.Event) { got = append(got, e.Message.ID) })

	if err := d.Subscribe("ch-1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d.Close()
	fs.publish(insertEvent("m1", "ch-1"))
	if len(got) != 0 {
		t.Fatalf("expected no delivery after close, got %v", got)
	}
}

func TestConnectionLostReconnectsAndRefreshes(t *testing.T) {
	fs := newFeedStore()
	d := New(fs, nil)

	var mu sync.Mutex
	refreshed := make(chan string, 1)
	var degradedSeq []bool
	d.SetRefresh(func(ctx context.Context, channelID string) error {
		refreshed <- channelID
		return nil
	})
	d.SetDegraded(func(degraded bool) {
		mu.Lock()
		degradedSeq = append(degradedSeq, degraded)
		mu.Unlock()
	})

	if err := d.Subscribe("ch-1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	d.MarkActive()

	d.ConnectionLost()
	select {
	case ch := <-refreshed:
		if ch != "ch-1" {
			t.Fatalf("expected refresh for ch-1, got %s", ch)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reconnect refresh")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := len(degradedSeq) == 2
		mu.Unlock()
		if done && d.State() == StateActive {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected recovery, state %s, degraded %v", d.State(), degradedSeq)
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if !degradedSeq[0] || degradedSeq[1] {
		t.Fatalf("expected degraded true then false, got %v", degradedSeq)
	}
}

func TestSubscribeErrorSurfaces(t *testing.T) {
	fs := newFeedStore()
	fs.subErr = errors.New("feed down")
	d := New(fs, nil)

	if err := d.Subscribe("ch-1"); err == nil {
		t.Fatal("expected error")
	}
	if d.State() != StateIdle {
		t.Fatalf("expected idle after failed subscribe, got %s", d.State())
	}
}
