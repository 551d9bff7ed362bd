package types

// EventType classifies a change-feed notification.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is a single change-feed notification for one channel. Delivery is
// at-least-once; consumers must treat events as idempotent by message id.
type Event struct {
	Type    EventType `json:"type"`
	Message *Message  `json:"message"`
}

// ChannelID returns the channel the event belongs to.
func (e Event) ChannelID() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.ChannelID
}
