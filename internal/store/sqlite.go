package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/seamlabs/weave/internal/core"
	"github.com/seamlabs/weave/internal/types"
)

// SQLite is the bundled Store implementation. Change notifications are
// fanned out in-process from the write path.
type SQLite struct {
	conn     *sql.DB
	notifier *Notifier
}

// Open opens (creating if needed) the SQLite store at path.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	if err := EnsureSchema(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &SQLite{conn: conn, notifier: NewNotifier()}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// CreateMessage persists the payload and publishes an insert event.
// Re-sending a payload with an already-stored client id returns the stored
// message without a second event, so retries stay idempotent.
func (s *SQLite) CreateMessage(ctx context.Context, payload types.OutgoingMessage) (*types.Message, error) {
	if payload.ClientID != "" {
		existing, err := s.messageByClientID(ctx, payload.ClientID)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	if payload.ParentID != nil {
		parent, err := s.FetchMessage(ctx, *payload.ParentID)
		if err != nil {
			return nil, fmt.Errorf("reply parent: %w", err)
		}
		if parent.IsReply() {
			return nil, fmt.Errorf("%w: parent %s is itself a reply", types.ErrValidation, parent.ID)
		}
	}

	id, err := core.GenerateGUID("msg")
	if err != nil {
		return nil, err
	}

	createdAt := payload.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	attachmentsJSON, err := marshalAttachments(payload.Attachments)
	if err != nil {
		return nil, err
	}

	var clientID any
	if payload.ClientID != "" {
		clientID = payload.ClientID
	}
	var importedFrom any
	if payload.ImportedFrom != "" {
		importedFrom = payload.ImportedFrom
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO weave_messages (id, client_id, channel_id, parent_id, author_id, body, created_at, attachments, imported_from)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, clientID, payload.ChannelID, payload.ParentID, payload.AuthorID, payload.Body, createdAt.UnixMilli(), attachmentsJSON, importedFrom)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		UPDATE weave_channels SET last_activity_at = ? WHERE id = ?
	`, createdAt.UnixMilli(), payload.ChannelID)
	if err != nil {
		return nil, err
	}

	msg, err := s.FetchMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(types.Event{Type: types.EventInsert, Message: msg})
	return msg, nil
}

// UpdateMessage applies a patch and publishes an update or delete event.
func (s *SQLite) UpdateMessage(ctx context.Context, id string, patch MessagePatch) (*types.Message, error) {
	current, err := s.FetchMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Body != nil {
		if current.Deleted {
			return nil, fmt.Errorf("edit %s: %w", id, types.ErrConflict)
		}
		_, err = s.conn.ExecContext(ctx, `
			UPDATE weave_messages
			SET body = ?, edited_at = ?, edit_count = edit_count + 1
			WHERE id = ?
		`, *patch.Body, time.Now().UTC().UnixMilli(), id)
		if err != nil {
			return nil, err
		}
	}
	if patch.Deleted != nil {
		deleted := 0
		if *patch.Deleted {
			deleted = 1
		}
		if _, err = s.conn.ExecContext(ctx, `UPDATE weave_messages SET deleted = ? WHERE id = ?`, deleted, id); err != nil {
			return nil, err
		}
	}
	if patch.Reactions != nil {
		reactionsJSON, err := marshalReactions(patch.Reactions)
		if err != nil {
			return nil, err
		}
		if _, err = s.conn.ExecContext(ctx, `UPDATE weave_messages SET reactions = ? WHERE id = ?`, reactionsJSON, id); err != nil {
			return nil, err
		}
	}

	updated, err := s.FetchMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	eventType := types.EventUpdate
	if patch.Deleted != nil && *patch.Deleted && !current.Deleted {
		eventType = types.EventDelete
	}
	s.notifier.Publish(types.Event{Type: eventType, Message: updated})
	return updated, nil
}

// Subscribe registers for the channel's in-process change feed.
func (s *SQLite) Subscribe(channelID string, onEvent func(types.Event)) (Subscription, error) {
	return s.notifier.Subscribe(channelID, onEvent), nil
}
