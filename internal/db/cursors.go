package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveCursor stores the opaque continuation token for a sync worker. A nil
// cursor means the worker restarts from the beginning of its slice. Rows are
// only ever inserted or updated, never deleted.
func (s *Store) SaveCursor(ctx context.Context, workerID string, cursor *string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_cursors (id, cursor_string, last_sync) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cursor_string = excluded.cursor_string,
			last_sync = excluded.last_sync`,
		workerID, ptrArg(cursor), s.now().Unix())
	if err != nil {
		return fmt.Errorf("save cursor %s: %w", workerID, err)
	}
	return nil
}

// LoadCursor returns the persisted cursor for a worker, or nil when the
// worker has never completed a page.
func (s *Store) LoadCursor(ctx context.Context, workerID string) (*string, error) {
	var cursor sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT cursor_string FROM sync_cursors WHERE id = ?`, workerID).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cursor %s: %w", workerID, err)
	}
	return strFromNull(cursor), nil
}

// UpsertCacheMetadata records bookkeeping for a stored archive. On conflict
// every field is replaced and last_accessed is refreshed.
func (s *Store) UpsertCacheMetadata(ctx context.Context, setID, size int64, path, backend string, noVideo bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_metadata (beatmapset_id, file_size, storage_path, storage_backend, no_video, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(beatmapset_id) DO UPDATE SET
			file_size = excluded.file_size,
			storage_path = excluded.storage_path,
			storage_backend = excluded.storage_backend,
			no_video = excluded.no_video,
			last_accessed = excluded.last_accessed`,
		setID, size, path, backend, noVideo, s.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert cache metadata %d: %w", setID, err)
	}
	return nil
}

// TouchCacheMetadata refreshes last_accessed for a cached archive; used on
// cache hits. Missing rows are ignored.
func (s *Store) TouchCacheMetadata(ctx context.Context, setID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE cache_metadata SET last_accessed = ? WHERE beatmapset_id = ?`,
		s.now().Unix(), setID)
	if err != nil {
		return fmt.Errorf("touch cache metadata %d: %w", setID, err)
	}
	return nil
}
