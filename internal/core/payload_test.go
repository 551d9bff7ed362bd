package core

import (
	"errors"
	"testing"

	"github.com/seamlabs/weave/internal/types"
)

func TestBuildSendPayloadValidates(t *testing.T) {
	parent := "msg-parent01"
	reply := &types.Message{ID: "msg-reply001", ChannelID: "ch-1", ParentID: &parent}

	tests := []struct {
		name  string
		draft Draft
	}{
		{name: "empty body no attachments", draft: Draft{ChannelID: "ch-1", AuthorID: "u1", Body: "   \n"}},
		{name: "missing channel", draft: Draft{AuthorID: "u1", Body: "hi"}},
		{name: "missing author", draft: Draft{ChannelID: "ch-1", Body: "hi"}},
		{name: "reply to a reply", draft: Draft{ChannelID: "ch-1", AuthorID: "u1", Body: "hi", ReplyingTo: reply}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSendPayload(tt.draft)
			if !errors.Is(err, types.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestBuildSendPayloadAttachmentsOnly(t *testing.T) {
	payload, err := BuildSendPayload(Draft{
		ChannelID:   "ch-1",
		AuthorID:    "u1",
		Attachments: []types.Attachment{{Name: "a.png", URL: "https://files/a.png", Kind: types.AttachmentImage, SizeBytes: 10}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.ClientID == "" {
		t.Fatal("expected client id")
	}
	if len(payload.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(payload.Attachments))
	}
}

func TestBuildSendPayloadReplyCarriesParent(t *testing.T) {
	top := &types.Message{ID: "msg-top00001", ChannelID: "ch-1"}
	payload, err := BuildSendPayload(Draft{ChannelID: "ch-1", AuthorID: "u1", Body: "reply", ReplyingTo: top})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.ParentID == nil || *payload.ParentID != "msg-top00001" {
		t.Fatalf("expected parent msg-top00001, got %v", payload.ParentID)
	}
}

func TestPendingMessageMirrorsPayload(t *testing.T) {
	payload, err := BuildSendPayload(Draft{ChannelID: "ch-1", AuthorID: "u1", Body: "hi team"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := PendingMessage(payload)
	if pending.ID != payload.ClientID {
		t.Fatalf("expected provisional id %s, got %s", payload.ClientID, pending.ID)
	}
	if pending.Status != types.StatusPending {
		t.Fatalf("expected pending status, got %s", pending.Status)
	}
	if pending.Body != "hi team" {
		t.Fatalf("expected body preserved, got %q", pending.Body)
	}
}
