package store

import "database/sql"

const schemaSQL = `
-- Channels (registry state round-trips through here for the CLI)
CREATE TABLE IF NOT EXISTS weave_channels (
  id TEXT PRIMARY KEY,                 -- e.g., "ch-4kq9x02d"
  code TEXT NOT NULL,                  -- short handle, e.g., "eng-platform"
  display_name TEXT NOT NULL,
  team_id TEXT NOT NULL,
  archived INTEGER NOT NULL DEFAULT 0,
  favorite INTEGER NOT NULL DEFAULT 0,
  last_activity_at INTEGER NOT NULL    -- unix ms
);

CREATE INDEX IF NOT EXISTS idx_weave_channels_team ON weave_channels(team_id);

-- Messages. Soft delete only: deleted rows stay for reply-count integrity.
CREATE TABLE IF NOT EXISTS weave_messages (
  id TEXT PRIMARY KEY,                 -- e.g., "msg-a1b2c3d4"
  client_id TEXT,                      -- sender correlation id (uuid)
  channel_id TEXT NOT NULL,
  parent_id TEXT,                      -- null for top-level posts
  author_id TEXT NOT NULL,
  body TEXT NOT NULL,
  created_at INTEGER NOT NULL,         -- unix ms
  edited_at INTEGER,
  edit_count INTEGER NOT NULL DEFAULT 0,
  deleted INTEGER NOT NULL DEFAULT 0,
  attachments TEXT NOT NULL DEFAULT '[]', -- JSON array
  reactions TEXT NOT NULL DEFAULT '{}',   -- JSON object: emoji -> [user ids]
  imported_from TEXT                   -- provenance marker for bulk ingest
);

CREATE INDEX IF NOT EXISTS idx_weave_messages_channel ON weave_messages(channel_id, created_at, id);
CREATE INDEX IF NOT EXISTS idx_weave_messages_parent ON weave_messages(parent_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_weave_messages_client ON weave_messages(client_id) WHERE client_id IS NOT NULL;

-- Pins are per-channel, separate from the message row
CREATE TABLE IF NOT EXISTS weave_pins (
  channel_id TEXT NOT NULL,
  message_id TEXT NOT NULL,
  pinned_by TEXT NOT NULL,
  pinned_at INTEGER NOT NULL,
  PRIMARY KEY (channel_id, message_id)
);

-- Per-user bookmarks; survive leaving the channel
CREATE TABLE IF NOT EXISTS weave_saves (
  user_id TEXT NOT NULL,
  message_id TEXT NOT NULL,
  saved_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, message_id)
);

-- Read receipts, append-only, deduplicated by (message, reader)
CREATE TABLE IF NOT EXISTS weave_receipts (
  message_id TEXT NOT NULL,
  reader_id TEXT NOT NULL,
  read_at INTEGER NOT NULL,
  PRIMARY KEY (message_id, reader_id)
);
`

// EnsureSchema creates all tables and indexes if missing.
func EnsureSchema(conn *sql.DB) error {
	_, err := conn.Exec(schemaSQL)
	return err
}
