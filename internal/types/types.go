package types

import "time"

// MessageStatus tracks a message through the optimistic send pipeline.
type MessageStatus string

const (
	// StatusPending is a locally appended message awaiting store confirmation.
	StatusPending MessageStatus = "pending"
	// StatusConfirmed is a message acknowledged by the store.
	StatusConfirmed MessageStatus = "confirmed"
	// StatusFailed is a send that exceeded its confirmation timeout.
	// Failed messages are retained until retried or discarded.
	StatusFailed MessageStatus = "failed"
)

// AttachmentKind distinguishes previewable images from generic files.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Channel is a named conversation scope within a team.
type Channel struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	DisplayName    string    `json:"display_name"`
	TeamID         string    `json:"team_id"`
	Archived       bool      `json:"archived,omitempty"`
	Favorite       bool      `json:"favorite,omitempty"`
	UnreadCount    int       `json:"unread_count,omitempty"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Attachment is a file descriptor owned by its message. Upload happens
// elsewhere; the engine only stores what storage returned.
type Attachment struct {
	Name      string         `json:"name"`
	URL       string         `json:"url"`
	Kind      AttachmentKind `json:"kind"`
	SizeBytes int64          `json:"size_bytes"`
}

// Message is a channel post. ParentID nil means top-level; non-nil means a
// reply to a top-level message (nesting is exactly one level deep).
type Message struct {
	ID           string              `json:"id"`
	ClientID     string              `json:"client_id,omitempty"`
	ChannelID    string              `json:"channel_id"`
	ParentID     *string             `json:"parent_id,omitempty"`
	AuthorID     string              `json:"author_id"`
	Body         string              `json:"body"`
	CreatedAt    time.Time           `json:"created_at"`
	EditedAt     *time.Time          `json:"edited_at,omitempty"`
	EditCount    int                 `json:"edit_count,omitempty"`
	Deleted      bool                `json:"deleted,omitempty"`
	Attachments  []Attachment        `json:"attachments,omitempty"`
	Reactions    map[string][]string `json:"reactions,omitempty"`
	Pinned       bool                `json:"pinned,omitempty"`
	SavedBy      []string            `json:"saved_by,omitempty"`
	Status       MessageStatus       `json:"status,omitempty"`
	ImportedFrom string              `json:"imported_from,omitempty"`
}

// IsReply reports whether the message is a thread reply.
func (m *Message) IsReply() bool {
	return m.ParentID != nil && *m.ParentID != ""
}

// HasReaction reports whether userID has reacted with emoji.
func (m *Message) HasReaction(emoji, userID string) bool {
	for _, id := range m.Reactions[emoji] {
		if id == userID {
			return true
		}
	}
	return false
}

// OutgoingMessage is the payload handed to the store on send. Built by the
// composer; carries the client correlation id used to reconcile the
// optimistic copy with the confirmed one.
type OutgoingMessage struct {
	ClientID     string       `json:"client_id"`
	ChannelID    string       `json:"channel_id"`
	ParentID     *string      `json:"parent_id,omitempty"`
	AuthorID     string       `json:"author_id"`
	Body         string       `json:"body"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	ImportedFrom string       `json:"imported_from,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ThreadState is the lazily loaded reply list for one parent message.
type ThreadState struct {
	ParentID string     `json:"parent_id"`
	Replies  []*Message `json:"replies"`
	Loaded   bool       `json:"loaded"`
}

// ReadReceipt records that a reader observed a message. Append-only,
// deduplicated by (MessageID, ReaderID).
type ReadReceipt struct {
	MessageID string    `json:"message_id"`
	ReaderID  string    `json:"reader_id"`
	ReadAt    time.Time `json:"read_at"`
}

// ReadStatus is the derived aggregate read state of a message.
type ReadStatus string

const (
	// ReadStatusSent means no receipts exist yet.
	ReadStatusSent ReadStatus = "sent"
	// ReadStatusDelivered means at least one non-author receipt exists.
	ReadStatusDelivered ReadStatus = "delivered"
	// ReadStatusRead means the author has observed non-author receipts.
	ReadStatusRead ReadStatus = "read"
)

// MentionToken is a transient parse result from the composer. Offsets are
// byte offsets into the draft text.
type MentionToken struct {
	StartOffset    int
	RawText        string
	Query          string
	ResolvedUserID string
}

// UserSummary is a read-only directory snapshot.
type UserSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      string `json:"role,omitempty"`
}

// SavedRef resolves a per-user bookmark. Unavailable is set when the
// referenced message was purged upstream; the bookmark itself survives.
type SavedRef struct {
	MessageID   string   `json:"message_id"`
	Message     *Message `json:"message,omitempty"`
	Unavailable bool     `json:"unavailable,omitempty"`
}
