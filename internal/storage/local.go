package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores archives under a base directory as
// <base>/<d1>/<d2>/<sid>.osz. Writes go to a sibling .tmp path and are
// renamed into place so a concurrent reader never sees a partial archive.
type Local struct {
	base string
}

func NewLocal(base string) (*Local, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &Local{base: base}, nil
}

func (l *Local) Name() string { return "local" }

func (l *Local) path(setID int64, noVideo bool) string {
	return filepath.Join(l.base, filepath.FromSlash(objectName(setID, noVideo)))
}

func (l *Local) Get(_ context.Context, setID int64, noVideo bool) ([]byte, error) {
	data, err := os.ReadFile(l.path(setID, noVideo))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (l *Local) Put(_ context.Context, setID int64, noVideo bool, data []byte) error {
	path := l.path(setID, noVideo)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (l *Local) Exists(_ context.Context, setID int64, noVideo bool) (bool, error) {
	_, err := os.Stat(l.path(setID, noVideo))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Local) Delete(_ context.Context, setID int64, noVideo bool) error {
	return os.Remove(l.path(setID, noVideo))
}
