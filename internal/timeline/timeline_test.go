package timeline

import (
	"testing"
	"time"

	"github.com/seamlabs/weave/internal/types"
)

func msgAt(id, body string, at time.Time) *types.Message {
	return &types.Message{ID: id, ChannelID: "ch-1", AuthorID: "u1", Body: body, CreatedAt: at}
}

func TestLoadBacklogFiltersAndOrders(t *testing.T) {
	tl := New("ch-1")
	base := time.Now().UTC()
	parent := "msg-top"

	tl.LoadBacklog([]*types.Message{
		msgAt("msg-b", "second", base.Add(time.Second)),
		msgAt("msg-a", "first", base),
		{ID: "msg-r", ChannelID: "ch-1", ParentID: &parent, Body: "reply", CreatedAt: base},
		{ID: "msg-d", ChannelID: "ch-1", Body: "gone", Deleted: true, CreatedAt: base},
		{ID: "msg-x", ChannelID: "ch-2", Body: "other channel", CreatedAt: base},
	})

	visible := tl.Visible()
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible, got %d", len(visible))
	}
	if visible[0].ID != "msg-a" || visible[1].ID != "msg-b" {
		t.Fatalf("unexpected order: %s, %s", visible[0].ID, visible[1].ID)
	}
}

func TestOrderTieBreakByID(t *testing.T) {
	tl := New("ch-1")
	at := time.Now().UTC()

	tl.Apply(types.Event{Type: types.EventInsert, Message: msgAt("msg-b", "x", at)})
	tl.Apply(types.Event{Type: types.EventInsert, Message: msgAt("msg-a", "y", at)})

	visible := tl.Visible()
	if visible[0].ID != "msg-a" || visible[1].ID != "msg-b" {
		t.Fatalf("expected id tie-break, got %s, %s", visible[0].ID, visible[1].ID)
	}
}

func TestApplyIdempotent(t *testing.T) {
	tl := New("ch-1")
	at := time.Now().UTC()

	insert := types.Event{Type: types.EventInsert, Message: msgAt("msg-1", "hi", at)}
	tl.Apply(insert)
	tl.Apply(insert)
	if len(tl.Visible()) != 1 {
		t.Fatalf("expected 1 message after duplicate insert, got %d", len(tl.Visible()))
	}

	edited := msgAt("msg-1", "hi v2", at)
	editedAt := at.Add(time.Second)
	edited.EditedAt = &editedAt
	edited.EditCount = 1
	update := types.Event{Type: types.EventUpdate, Message: edited}
	tl.Apply(update)
	tl.Apply(update)

	got, _ := tl.Get("msg-1")
	if got.Body != "hi v2" || got.EditCount != 1 || got.EditedAt == nil {
		t.Fatalf("unexpected state after duplicate update: %+v", got)
	}

	del := types.Event{Type: types.EventDelete, Message: edited}
	tl.Apply(del)
	tl.Apply(del)
	if len(tl.Visible()) != 0 {
		t.Fatal("expected no visible messages after delete")
	}
	if !tl.Has("msg-1") {
		t.Fatal("soft-deleted message must stay indexed")
	}
}

func TestOptimisticSendReconcilesByClientID(t *testing.T) {
	tl := New("ch-1")
	at := time.Now().UTC()

	pending := &types.Message{
		ID: "client-1", ClientID: "client-1", ChannelID: "ch-1",
		AuthorID: "u1", Body: "hi team", CreatedAt: at, Status: types.StatusPending,
	}
	tl.AppendLocal(pending)
	if len(tl.Visible()) != 1 {
		t.Fatal("expected optimistic entry visible")
	}

	confirmed := msgAt("msg-m1", "hi team", at.Add(200*time.Millisecond))
	confirmed.ClientID = "client-1"
	tl.Reconcile(confirmed)

	visible := tl.Visible()
	if len(visible) != 1 {
		t.Fatalf("expected exactly 1 entry after confirm, got %d", len(visible))
	}
	if visible[0].ID != "msg-m1" || visible[0].Status != types.StatusConfirmed {
		t.Fatalf("expected confirmed msg-m1, got %s (%s)", visible[0].ID, visible[0].Status)
	}

	// The same confirmation arriving again via the live feed stays deduped.
	tl.Apply(types.Event{Type: types.EventInsert, Message: confirmed})
	if len(tl.Visible()) != 1 {
		t.Fatal("expected no duplicate from live feed replay")
	}
}

func TestReconcileProximityFallback(t *testing.T) {
	tl := New("ch-1")
	at := time.Now().UTC()

	pending := &types.Message{
		ID: "client-2", ClientID: "client-2", ChannelID: "ch-1",
		AuthorID: "u1", Body: "fallback", CreatedAt: at, Status: types.StatusPending,
	}
	tl.AppendLocal(pending)

	// Store dropped the client id; author+body+time proximity still matches.
	confirmed := msgAt("msg-m2", "fallback", at.Add(2*time.Second))
	tl.Reconcile(confirmed)

	visible := tl.Visible()
	if len(visible) != 1 || visible[0].ID != "msg-m2" {
		t.Fatalf("expected single confirmed entry, got %d", len(visible))
	}
}

func TestReconcileUnmatchedAppends(t *testing.T) {
	tl := New("ch-1")
	at := time.Now().UTC()

	other := msgAt("msg-m3", "from someone else", at)
	other.AuthorID = "u2"
	tl.Reconcile(other)
	if len(tl.Visible()) != 1 {
		t.Fatal("expected genuinely new message appended")
	}
}

func TestFailedSendRetainedThenDiscarded(t *testing.T) {
	tl := New("ch-1")
	at := time.Now().UTC()

	pending := &types.Message{
		ID: "client-3", ClientID: "client-3", ChannelID: "ch-1",
		AuthorID: "u1", Body: "slow", CreatedAt: at, Status: types.StatusPending,
	}
	tl.AppendLocal(pending)

	if !tl.MarkFailed("client-3") {
		t.Fatal("expected pending send marked failed")
	}
	if tl.MarkFailed("client-3") {
		t.Fatal("marking twice must report false")
	}
	visible := tl.Visible()
	if len(visible) != 1 || visible[0].Status != types.StatusFailed {
		t.Fatal("failed send must stay visible")
	}

	if !tl.Discard("client-3") {
		t.Fatal("expected failed send discardable")
	}
	if len(tl.Visible()) != 0 {
		t.Fatal("expected discarded send removed")
	}
}

func TestLateConfirmAfterFailureReconciles(t *testing.T) {
	tl := New("ch-1")
	at := time.Now().UTC()

	pending := &types.Message{
		ID: "client-4", ClientID: "client-4", ChannelID: "ch-1",
		AuthorID: "u1", Body: "late", CreatedAt: at, Status: types.StatusPending,
	}
	tl.AppendLocal(pending)
	tl.MarkFailed("client-4")

	confirmed := msgAt("msg-m4", "late", at.Add(time.Second))
	confirmed.ClientID = "client-4"
	tl.Apply(types.Event{Type: types.EventInsert, Message: confirmed})

	visible := tl.Visible()
	if len(visible) != 1 || visible[0].ID != "msg-m4" || visible[0].Status != types.StatusConfirmed {
		t.Fatalf("expected late confirm to replace failed entry, got %+v", visible)
	}
}

func TestAppendLocalSkipsWhenConfirmedCopyLoaded(t *testing.T) {
	tl := New("ch-1")
	at := time.Now().UTC()

	// Backlog after a channel switch already holds the confirmed copy of
	// an in-flight send.
	confirmed := msgAt("msg-durable1", "hello", at)
	confirmed.ClientID = "client-9"
	tl.LoadBacklog([]*types.Message{confirmed})

	pending := &types.Message{
		ID: "client-9", ClientID: "client-9", ChannelID: "ch-1",
		AuthorID: "u1", Body: "hello", CreatedAt: at, Status: types.StatusPending,
	}
	tl.AppendLocal(pending)

	visible := tl.Visible()
	if len(visible) != 1 {
		t.Fatalf("expected 1 entry for the logical message, got %d", len(visible))
	}
	if visible[0].ID != "msg-durable1" || visible[0].Status != types.StatusConfirmed {
		t.Fatalf("expected the confirmed copy to win, got %+v", visible[0])
	}

	// The late confirm return takes the merge path and must not add an
	// entry either.
	tl.Reconcile(confirmed)
	if len(tl.Visible()) != 1 {
		t.Fatalf("expected 1 entry after late confirm, got %d", len(tl.Visible()))
	}
}
