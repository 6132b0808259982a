package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		name    string
		setID   int64
		noVideo bool
		want    string
	}{
		{"plain", 1414, false, "1/414/1414.osz"},
		{"no video negates id", 1414, true, "1/414/-1414.osz"},
		{"small id", 7, false, "0/7/7.osz"},
		{"small id no video", 7, true, "0/7/-7.osz"},
		{"exact thousand", 2000, false, "2/0/2000.osz"},
		{"large", 1234567, true, "1234/567/-1234567.osz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := objectName(tt.setID, tt.noVideo)
			if got != tt.want {
				t.Errorf("objectName(%d, %v) = %q, want %q", tt.setID, tt.noVideo, got, tt.want)
			}
		})
	}
}

func TestLocal_roundTrip(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	data := []byte("PK\x03\x04archive bytes")
	if err := l.Put(ctx, 1414, false, data); err != nil {
		t.Fatal(err)
	}

	got, err := l.Get(ctx, 1414, false)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get returned %q, want %q", got, data)
	}

	ok, err := l.Exists(ctx, 1414, false)
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v, want true, nil", ok, err)
	}

	// The no-video variant is a distinct object.
	nv, err := l.Get(ctx, 1414, true)
	if err != nil {
		t.Fatal(err)
	}
	if nv != nil {
		t.Errorf("no-video variant should be absent, got %d bytes", len(nv))
	}

	if err := l.Delete(ctx, 1414, false); err != nil {
		t.Fatal(err)
	}
	ok, err = l.Exists(ctx, 1414, false)
	if err != nil || ok {
		t.Errorf("Exists after delete = %v, %v, want false, nil", ok, err)
	}
}

func TestLocal_missIsNotError(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got, err := l.Get(context.Background(), 999999, false)
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if got != nil {
		t.Errorf("miss should return nil, got %d bytes", len(got))
	}
}

func TestLocal_putLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Put(context.Background(), 5, true, []byte("PK\x03\x04")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "0", "5", "-5.osz")); err != nil {
		t.Errorf("final object missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "0", "5", "-5.osz.tmp")); !os.IsNotExist(err) {
		t.Errorf("temp file left behind (err=%v)", err)
	}
}

func TestLocal_overwrite(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Put(ctx, 10, false, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := l.Put(ctx, 10, false, []byte("second")); err != nil {
		t.Fatal(err)
	}
	got, err := l.Get(ctx, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("Get after overwrite = %q, want %q", got, "second")
	}
}
