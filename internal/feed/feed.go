// Package feed is a websocket change-feed client. It speaks a small
// typed JSON frame protocol to a remote feed server and surfaces decoded
// message events through the store.Store subscription contract, so the
// engine treats a remote feed and a local store identically.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seamlabs/weave/internal/store"
	"github.com/seamlabs/weave/internal/types"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// FrameType tags a wire frame.
type FrameType string

const (
	// Client to server frame types.
	FrameSubscribe   FrameType = "subscribe"
	FrameUnsubscribe FrameType = "unsubscribe"

	// Server to client frame types.
	FrameEvent FrameType = "event"
	FrameError FrameType = "error"
)

// Frame is one websocket message in either direction.
type Frame struct {
	Type      FrameType       `json:"type"`
	ChannelID string          `json:"channel_id,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// Client maintains one websocket connection and fans decoded events out
// to per-channel subscribers. A lost connection invokes the OnLost hook;
// reconnecting is the caller's policy, not the client's.
type Client struct {
	url    string
	log    *slog.Logger
	onLost func(error)

	mu     sync.Mutex
	conn   *websocket.Conn
	send   chan Frame
	subs   map[string]map[*feedSub]struct{}
	closed bool
	done   chan struct{}
}

// Options configures a feed client.
type Options struct {
	// OnLost fires once when the connection drops for any reason other
	// than Close.
	OnLost func(error)
	Logger *slog.Logger
}

// NewClient creates a client for the given websocket URL. Dial must be
// called before events flow.
func NewClient(url string, opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		url:    url,
		log:    log,
		onLost: opts.OnLost,
		subs:   make(map[string]map[*feedSub]struct{}),
	}
}

// Dial opens the connection and starts the read and write pumps. Safe to
// call again after a drop; existing subscriptions are re-announced.
func (c *Client) Dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("feed client is closed")
	}
	c.conn = conn
	c.send = make(chan Frame, 64)
	c.done = make(chan struct{})
	channels := make([]string, 0, len(c.subs))
	for channelID := range c.subs {
		channels = append(channels, channelID)
	}
	send, done := c.send, c.done
	c.mu.Unlock()

	go c.readPump(conn, done)
	go c.writePump(conn, send, done)

	for _, channelID := range channels {
		send <- Frame{Type: FrameSubscribe, ChannelID: channelID}
	}
	return nil
}

// Subscribe registers for one channel's events. The returned subscription
// satisfies store.Subscription.
func (c *Client) Subscribe(channelID string, onEvent func(types.Event)) (store.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("feed client is closed")
	}

	sub := &feedSub{client: c, channelID: channelID, onEvent: onEvent}
	first := len(c.subs[channelID]) == 0
	if c.subs[channelID] == nil {
		c.subs[channelID] = make(map[*feedSub]struct{})
	}
	c.subs[channelID][sub] = struct{}{}

	if first && c.send != nil {
		c.enqueueLocked(Frame{Type: FrameSubscribe, ChannelID: channelID})
	}
	return sub, nil
}

// Close tears down the connection and all subscriptions.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.subs = make(map[string]map[*feedSub]struct{})
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) readPump(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		close(done)
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDrop(conn, err)
			return
		}
		event, err := DecodeEventFrame(data)
		if err != nil {
			c.log.Debug("feed frame dropped", "error", err)
			continue
		}
		if event == nil {
			continue
		}
		c.deliver(*event)
	}
}

func (c *Client) writePump(conn *websocket.Conn, send chan Frame, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case frame := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleDrop(conn *websocket.Conn, err error) {
	c.mu.Lock()
	closed := c.closed
	current := c.conn == conn
	if current {
		c.conn = nil
		c.send = nil
	}
	c.mu.Unlock()

	if closed || !current {
		return
	}
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		c.log.Debug("feed connection dropped", "error", err)
	}
	if c.onLost != nil {
		c.onLost(err)
	}
}

func (c *Client) deliver(event types.Event) {
	c.mu.Lock()
	targets := make([]*feedSub, 0, len(c.subs[event.ChannelID()]))
	for sub := range c.subs[event.ChannelID()] {
		targets = append(targets, sub)
	}
	c.mu.Unlock()

	for _, sub := range targets {
		sub.onEvent(event)
	}
}

func (c *Client) enqueueLocked(frame Frame) {
	select {
	case c.send <- frame:
	default:
		c.log.Debug("feed send queue full, frame dropped", "type", frame.Type)
	}
}

func (c *Client) unsubscribe(sub *feedSub) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.subs[sub.channelID]
	if set == nil {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(c.subs, sub.channelID)
		if c.send != nil {
			c.enqueueLocked(Frame{Type: FrameUnsubscribe, ChannelID: sub.channelID})
		}
	}
}

type feedSub struct {
	client    *Client
	channelID string
	onEvent   func(types.Event)
	once      sync.Once
}

func (s *feedSub) Close() error {
	s.once.Do(func() { s.client.unsubscribe(s) })
	return nil
}

// DecodeEventFrame parses a raw frame and returns its event, nil for
// non-event frames, or an error for malformed payloads.
func DecodeEventFrame(data []byte) (*types.Event, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	switch frame.Type {
	case FrameEvent:
		var event types.Event
		if err := json.Unmarshal(frame.Event, &event); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		if event.Message == nil {
			return nil, fmt.Errorf("event frame without message")
		}
		return &event, nil
	case FrameError:
		return nil, fmt.Errorf("feed error: %s", frame.Error)
	default:
		return nil, nil
	}
}
