package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/seamlabs/weave/internal/types"
)

// SetPinned records or clears a channel pin. Pins live beside the message
// row, one channel each, so the row itself never changes.
func (s *SQLite) SetPinned(ctx context.Context, channelID, messageID string, pinned bool, by string) error {
	if pinned {
		_, err := s.conn.ExecContext(ctx, `
			INSERT INTO weave_pins (channel_id, message_id, pinned_by, pinned_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(channel_id, message_id) DO NOTHING
		`, channelID, messageID, by, time.Now().UTC().UnixMilli())
		return err
	}
	_, err := s.conn.ExecContext(ctx, `
		DELETE FROM weave_pins WHERE channel_id = ? AND message_id = ?
	`, channelID, messageID)
	return err
}

// PinnedMessages returns the pinned message ids of a channel, oldest pin
// first.
func (s *SQLite) PinnedMessages(ctx context.Context, channelID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT message_id FROM weave_pins
		WHERE channel_id = ?
		ORDER BY pinned_at ASC
	`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

// SetSaved records or clears a per-user bookmark.
func (s *SQLite) SetSaved(ctx context.Context, userID, messageID string, saved bool) error {
	if saved {
		_, err := s.conn.ExecContext(ctx, `
			INSERT INTO weave_saves (user_id, message_id, saved_at)
			VALUES (?, ?, ?)
			ON CONFLICT(user_id, message_id) DO NOTHING
		`, userID, messageID, time.Now().UTC().UnixMilli())
		return err
	}
	_, err := s.conn.ExecContext(ctx, `
		DELETE FROM weave_saves WHERE user_id = ? AND message_id = ?
	`, userID, messageID)
	return err
}

// SavedMessages returns a user's bookmarked message ids, oldest first.
func (s *SQLite) SavedMessages(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT message_id FROM weave_saves
		WHERE user_id = ?
		ORDER BY saved_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

// AddReadReceipt appends a receipt, deduplicated by (message, reader).
func (s *SQLite) AddReadReceipt(ctx context.Context, r types.ReadReceipt) error {
	readAt := r.ReadAt
	if readAt.IsZero() {
		readAt = time.Now().UTC()
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO weave_receipts (message_id, reader_id, read_at)
		VALUES (?, ?, ?)
		ON CONFLICT(message_id, reader_id) DO NOTHING
	`, r.MessageID, r.ReaderID, readAt.UnixMilli())
	return err
}

// ReadReceipts returns the receipts of one message, oldest first.
func (s *SQLite) ReadReceipts(ctx context.Context, messageID string) ([]types.ReadReceipt, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT message_id, reader_id, read_at FROM weave_receipts
		WHERE message_id = ?
		ORDER BY read_at ASC
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []types.ReadReceipt
	for rows.Next() {
		var (
			r      types.ReadReceipt
			readAt int64
		)
		if err := rows.Scan(&r.MessageID, &r.ReaderID, &readAt); err != nil {
			return nil, err
		}
		r.ReadAt = time.UnixMilli(readAt).UTC()
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return receipts, nil
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
