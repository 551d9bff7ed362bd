package core

import (
	"testing"
	"time"

	"github.com/seamlabs/weave/internal/types"
)

func TestDeriveReadStatus(t *testing.T) {
	msg := &types.Message{ID: "msg-1", AuthorID: "u1"}
	now := time.Now()

	if got := DeriveReadStatus(msg, nil, false); got != types.ReadStatusSent {
		t.Fatalf("expected sent, got %s", got)
	}

	authorOnly := []types.ReadReceipt{{MessageID: "msg-1", ReaderID: "u1", ReadAt: now}}
	if got := DeriveReadStatus(msg, authorOnly, false); got != types.ReadStatusSent {
		t.Fatalf("author receipt alone should stay sent, got %s", got)
	}

	receipts := []types.ReadReceipt{
		{MessageID: "msg-other", ReaderID: "u2", ReadAt: now},
		{MessageID: "msg-1", ReaderID: "u2", ReadAt: now},
	}
	if got := DeriveReadStatus(msg, receipts, false); got != types.ReadStatusDelivered {
		t.Fatalf("expected delivered, got %s", got)
	}
	if got := DeriveReadStatus(msg, receipts, true); got != types.ReadStatusRead {
		t.Fatalf("expected read, got %s", got)
	}
}
