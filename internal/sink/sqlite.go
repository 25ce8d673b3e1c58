package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/channelpick/channel-pick/internal/group"
	"github.com/channelpick/channel-pick/internal/manifest"
)

const schema = `
CREATE TABLE IF NOT EXISTS channels (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_name TEXT NOT NULL UNIQUE,
	source_url   TEXT,
	stream_url   TEXT,
	tvg_name     TEXT,
	tvg_id       TEXT,
	tvg_logo     TEXT,
	group_title  TEXT
);
CREATE TABLE IF NOT EXISTS channel_sources (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_channel_id INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
	source_url        TEXT,
	stream_url        TEXT,
	tvg_name          TEXT,
	tvg_id            TEXT,
	tvg_logo          TEXT,
	group_title       TEXT
);
`

// SQLite persists groups to a local SQLite database: one row per channel in
// "channels" and one row per overflow member in "channel_sources". Upserting
// a channel replaces its alternates inside the same transaction.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) UpsertChannel(ctx context.Context, g group.Group) error {
	return s.WriteBatch(ctx, []group.Group{g})
}

func (s *SQLite) WriteBatch(ctx context.Context, groups []group.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()
	for _, g := range groups {
		if err := upsertGroup(ctx, tx, g); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

func upsertGroup(ctx context.Context, tx *sql.Tx, g group.Group) error {
	p := g.Primary
	_, err := tx.ExecContext(ctx, `
		INSERT INTO channels (channel_name, source_url, stream_url, tvg_name, tvg_id, tvg_logo, group_title)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_name) DO UPDATE SET
			source_url = excluded.source_url,
			stream_url = excluded.stream_url,
			tvg_name   = excluded.tvg_name,
			tvg_id     = excluded.tvg_id,
			tvg_logo   = excluded.tvg_logo,
			group_title = excluded.group_title`,
		g.ChannelName, p.SourceManifest, p.Endpoint,
		attr(p.Attrs, manifest.AttrTVGName), attr(p.Attrs, manifest.AttrTVGID),
		attr(p.Attrs, manifest.AttrTVGLogo), attr(p.Attrs, manifest.AttrGroupTitle))
	if err != nil {
		return fmt.Errorf("upsert channel %q: %w", g.ChannelName, err)
	}
	var channelID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM channels WHERE channel_name = ?`, g.ChannelName).Scan(&channelID); err != nil {
		return fmt.Errorf("lookup channel %q: %w", g.ChannelName, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM channel_sources WHERE parent_channel_id = ?`, channelID); err != nil {
		return fmt.Errorf("clear alternates %q: %w", g.ChannelName, err)
	}
	for _, alt := range g.Overflow {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO channel_sources (parent_channel_id, source_url, stream_url, tvg_name, tvg_id, tvg_logo, group_title)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			channelID, alt.SourceManifest, alt.Endpoint,
			attr(alt.Attrs, manifest.AttrTVGName), attr(alt.Attrs, manifest.AttrTVGID),
			attr(alt.Attrs, manifest.AttrTVGLogo), attr(alt.Attrs, manifest.AttrGroupTitle))
		if err != nil {
			return fmt.Errorf("upsert alternate for %q: %w", g.ChannelName, err)
		}
	}
	return nil
}

// attr returns a nullable column value: NULL when the key is absent so the
// stored row mirrors the attribute map (absent, not empty string).
func attr(attrs map[string]string, key string) any {
	v, ok := attrs[key]
	if !ok {
		return nil
	}
	return v
}
