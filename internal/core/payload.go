package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/seamlabs/weave/internal/types"
)

// Draft is the composer input to BuildSendPayload.
type Draft struct {
	ChannelID   string
	AuthorID    string
	Body        string
	Attachments []types.Attachment
	ReplyingTo  *types.Message
	// MentionNames maps lowercased display names to their canonical
	// spelling; when set, mentions in the body are canonicalized.
	MentionNames map[string]string
}

// BuildSendPayload validates a draft and builds the outgoing payload. Pure:
// the network write and the optimistic timeline append belong to the
// caller. Validation failures surface before any state mutation.
func BuildSendPayload(draft Draft) (types.OutgoingMessage, error) {
	body := strings.TrimRight(draft.Body, " \t\n")
	body = CanonicalizeMentions(body, draft.MentionNames)
	if body == "" && len(draft.Attachments) == 0 {
		return types.OutgoingMessage{}, fmt.Errorf("%w: empty body with no attachments", types.ErrValidation)
	}
	if draft.ChannelID == "" {
		return types.OutgoingMessage{}, fmt.Errorf("%w: missing channel", types.ErrValidation)
	}
	if draft.AuthorID == "" {
		return types.OutgoingMessage{}, fmt.Errorf("%w: missing author", types.ErrValidation)
	}

	var parentID *string
	if draft.ReplyingTo != nil {
		if draft.ReplyingTo.IsReply() {
			return types.OutgoingMessage{}, fmt.Errorf("%w: reply target %s is not a top-level message", types.ErrValidation, draft.ReplyingTo.ID)
		}
		id := draft.ReplyingTo.ID
		parentID = &id
	}

	return types.OutgoingMessage{
		ClientID:    uuid.NewString(),
		ChannelID:   draft.ChannelID,
		ParentID:    parentID,
		AuthorID:    draft.AuthorID,
		Body:        body,
		Attachments: draft.Attachments,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// PendingMessage materializes the optimistic timeline entry for a payload.
// The client id doubles as the provisional message id until the store
// confirms and assigns the durable one.
func PendingMessage(payload types.OutgoingMessage) *types.Message {
	return &types.Message{
		ID:          payload.ClientID,
		ClientID:    payload.ClientID,
		ChannelID:   payload.ChannelID,
		ParentID:    payload.ParentID,
		AuthorID:    payload.AuthorID,
		Body:        payload.Body,
		CreatedAt:   payload.CreatedAt,
		Attachments: payload.Attachments,
		Status:      types.StatusPending,
	}
}
