package store

import (
	"context"
	"time"

	"github.com/seamlabs/weave/internal/types"
)

// ListChannels loads every channel of a team, registry order (creation
// order by rowid). Favorites-first sorting is the registry's job.
func (s *SQLite) ListChannels(ctx context.Context, teamID string) ([]types.Channel, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, code, display_name, team_id, archived, favorite, last_activity_at
		FROM weave_channels
		WHERE team_id = ?
		ORDER BY rowid ASC
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []types.Channel
	for rows.Next() {
		var (
			ch             types.Channel
			archived       int
			favorite       int
			lastActivityAt int64
		)
		if err := rows.Scan(&ch.ID, &ch.Code, &ch.DisplayName, &ch.TeamID, &archived, &favorite, &lastActivityAt); err != nil {
			return nil, err
		}
		ch.Archived = archived != 0
		ch.Favorite = favorite != 0
		ch.LastActivityAt = time.UnixMilli(lastActivityAt).UTC()
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return channels, nil
}

// UpsertChannel writes a channel's registry state.
func (s *SQLite) UpsertChannel(ctx context.Context, ch types.Channel) error {
	archived := 0
	if ch.Archived {
		archived = 1
	}
	favorite := 0
	if ch.Favorite {
		favorite = 1
	}
	lastActivity := ch.LastActivityAt
	if lastActivity.IsZero() {
		lastActivity = time.Now().UTC()
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO weave_channels (id, code, display_name, team_id, archived, favorite, last_activity_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			display_name = excluded.display_name,
			team_id = excluded.team_id,
			archived = excluded.archived,
			favorite = excluded.favorite,
			last_activity_at = excluded.last_activity_at
	`, ch.ID, ch.Code, ch.DisplayName, ch.TeamID, archived, favorite, lastActivity.UnixMilli())
	return err
}
