package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seamlabs/weave/internal/types"
)

// messageColumns is the explicit column list for SELECT queries so column
// order survives migrations.
const messageColumns = `id, client_id, channel_id, parent_id, author_id, body, created_at, edited_at, edit_count, deleted, attachments, reactions, imported_from`

// FetchMessage loads one message by id, deleted or not.
func (s *SQLite) FetchMessage(ctx context.Context, id string) (*types.Message, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM weave_messages
		WHERE id = ?
	`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", id, types.ErrNotFound)
	}
	return msg, err
}

func (s *SQLite) messageByClientID(ctx context.Context, clientID string) (*types.Message, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM weave_messages
		WHERE client_id = ?
	`, clientID)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client id %s: %w", clientID, types.ErrNotFound)
	}
	return msg, err
}

// FetchBacklog returns the most recent limit visible top-level messages in
// (created_at, id) ascending order.
func (s *SQLite) FetchBacklog(ctx context.Context, channelID string, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM weave_messages
		WHERE channel_id = ? AND parent_id IS NULL AND deleted = 0
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	// Query walks newest-first for the LIMIT; callers want ascending.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// FetchReplies returns the visible replies of a top-level message.
func (s *SQLite) FetchReplies(ctx context.Context, parentID string) ([]*types.Message, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM weave_messages
		WHERE parent_id = ? AND deleted = 0
		ORDER BY created_at ASC, id ASC
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMessages(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*types.Message, error) {
	var (
		msg             types.Message
		clientID        sql.NullString
		parentID        sql.NullString
		createdAt       int64
		editedAt        sql.NullInt64
		deleted         int
		attachmentsJSON string
		reactionsJSON   string
		importedFrom    sql.NullString
	)

	err := row.Scan(&msg.ID, &clientID, &msg.ChannelID, &parentID, &msg.AuthorID, &msg.Body,
		&createdAt, &editedAt, &msg.EditCount, &deleted, &attachmentsJSON, &reactionsJSON, &importedFrom)
	if err != nil {
		return nil, err
	}

	msg.ClientID = clientID.String
	if parentID.Valid {
		value := parentID.String
		msg.ParentID = &value
	}
	msg.CreatedAt = time.UnixMilli(createdAt).UTC()
	if editedAt.Valid {
		value := time.UnixMilli(editedAt.Int64).UTC()
		msg.EditedAt = &value
	}
	msg.Deleted = deleted != 0
	msg.ImportedFrom = importedFrom.String
	msg.Status = types.StatusConfirmed

	if err := json.Unmarshal([]byte(attachmentsJSON), &msg.Attachments); err != nil {
		return nil, fmt.Errorf("attachments for %s: %w", msg.ID, err)
	}
	if err := json.Unmarshal([]byte(reactionsJSON), &msg.Reactions); err != nil {
		return nil, fmt.Errorf("reactions for %s: %w", msg.ID, err)
	}
	if len(msg.Reactions) == 0 {
		msg.Reactions = nil
	}

	return &msg, nil
}

func collectMessages(rows *sql.Rows) ([]*types.Message, error) {
	var messages []*types.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func marshalAttachments(attachments []types.Attachment) (string, error) {
	if len(attachments) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshalReactions(reactions map[string][]string) (string, error) {
	if len(reactions) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(reactions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
