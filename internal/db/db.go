// Package db is the metadata store gateway: upserts and reads for
// beatmapset/beatmap rows, sync cursors, and archive cache bookkeeping.
//
// The store is SQLite via database/sql. Timestamps are persisted as unix
// seconds so ordering and null handling stay portable across drivers.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	log zerolog.Logger

	// now is the write clock; swapped in tests.
	now func() time.Time
}

// Open opens (and creates, when needed) the SQLite database at dsn and runs
// the schema migrations.
func Open(dsn string, maxConns int, log zerolog.Logger) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
	}
	s := &Store{
		db:  sqlDB,
		log: log.With().Str("component", "db").Logger(),
		now: time.Now,
	}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database answers a trivial query.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func (s *Store) migrate() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS beatmapsets (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		title_unicode TEXT,
		artist TEXT NOT NULL,
		artist_unicode TEXT,
		creator TEXT NOT NULL,
		creator_id INTEGER,
		genre_id INTEGER,
		language_id INTEGER,
		rating REAL,
		source TEXT,
		tags TEXT,
		status TEXT NOT NULL,
		ranked_date INTEGER,
		submitted_date INTEGER,
		last_updated INTEGER,
		bpm REAL,
		video INTEGER NOT NULL DEFAULT 0,
		storyboard INTEGER NOT NULL DEFAULT 0,
		nsfw INTEGER NOT NULL DEFAULT 0,
		favourite_count INTEGER NOT NULL DEFAULT 0,
		play_count INTEGER NOT NULL DEFAULT 0,
		availability_download_disabled INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS beatmaps (
		id INTEGER PRIMARY KEY,
		beatmapset_id INTEGER NOT NULL,
		version TEXT NOT NULL,
		mode TEXT NOT NULL,
		mode_int INTEGER NOT NULL,
		difficulty_rating REAL,
		ar REAL,
		cs REAL,
		drain REAL,
		accuracy REAL,
		bpm REAL,
		total_length INTEGER,
		hit_length INTEGER,
		max_combo INTEGER,
		count_circles INTEGER,
		count_sliders INTEGER,
		count_spinners INTEGER,
		checksum TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_beatmaps_set ON beatmaps (beatmapset_id)`,
	`CREATE INDEX IF NOT EXISTS idx_beatmaps_checksum ON beatmaps (checksum)`,
	`CREATE TABLE IF NOT EXISTS cache_metadata (
		beatmapset_id INTEGER PRIMARY KEY,
		file_size INTEGER NOT NULL,
		storage_path TEXT NOT NULL,
		storage_backend TEXT NOT NULL,
		no_video INTEGER NOT NULL DEFAULT 0,
		last_accessed INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sync_cursors (
		id TEXT PRIMARY KEY,
		cursor_string TEXT,
		last_sync INTEGER NOT NULL
	)`,
}

// Conversion helpers between pointer fields and sql null types.

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func timeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func strFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func intFromNull(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func floatFromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func ptrArg[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
