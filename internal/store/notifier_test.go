package store

import (
	"testing"

	"github.com/seamlabs/weave/internal/types"
)

func TestNotifierFanOutAndClose(t *testing.T) {
	n := NewNotifier()

	var a, b []string
	subA := n.Subscribe("ch-1", func(e types.Event) { a = append(a, e.Message.ID) })
	subB := n.Subscribe("ch-1", func(e types.Event) { b = append(b, e.Message.ID) })
	other := n.Subscribe("ch-2", func(e types.Event) { t.Fatal("wrong channel delivery") })
	defer other.Close()

	n.Publish(types.Event{Type: types.EventInsert, Message: &types.Message{ID: "m1", ChannelID: "ch-1"}})
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected both subscribers notified, got %d and %d", len(a), len(b))
	}

	if err := subB.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	n.Publish(types.Event{Type: types.EventInsert, Message: &types.Message{ID: "m2", ChannelID: "ch-1"}})
	if len(a) != 2 {
		t.Fatalf("expected live subscriber to get m2, got %v", a)
	}
	if len(b) != 1 {
		t.Fatalf("expected closed subscriber to miss m2, got %v", b)
	}
	_ = subA.Close()
}

func TestNotifierIgnoresEventsWithoutChannel(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe("", func(e types.Event) { t.Fatal("unexpected delivery") })
	defer sub.Close()
	n.Publish(types.Event{Type: types.EventInsert, Message: nil})
}
