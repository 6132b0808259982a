// Package storage persists beatmapset archives keyed by (set id, no-video).
//
// Two interchangeable backends exist: a local filesystem tree and an
// S3-compatible object store. Both use the same key derivation so archives
// can be moved between backends without renaming.
package storage

import (
	"context"
	"fmt"
)

// Store is the archive backend contract. Get returns (nil, nil) when the
// archive is absent; absence is not an error.
type Store interface {
	Get(ctx context.Context, setID int64, noVideo bool) ([]byte, error)
	Put(ctx context.Context, setID int64, noVideo bool, data []byte) error
	Exists(ctx context.Context, setID int64, noVideo bool) (bool, error)
	Delete(ctx context.Context, setID int64, noVideo bool) error
	// Name is the lower-cased backend tag recorded in cache metadata.
	Name() string
}

// objectName returns the relative object key for an archive:
// <d1>/<d2>/<sid>.osz. The shard pair is always derived from the positive
// id; the no-video variant is encoded by negating the id in the file name.
func objectName(setID int64, noVideo bool) string {
	sid := setID
	if noVideo {
		sid = -setID
	}
	abs := setID
	if abs < 0 {
		abs = -abs
	}
	return fmt.Sprintf("%d/%d/%d.osz", abs/1000, abs%1000, sid)
}
