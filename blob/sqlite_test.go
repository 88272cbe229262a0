package blob

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "blobs.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLitePutAndGet(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	obj, err := s.Put(ctx, "blog/metadata.json", []byte(`{"posts":[]}`), "application/json")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if obj.Key != "blog/metadata.json" || obj.Size != 12 {
		t.Errorf("Put object = %+v", obj)
	}

	got, err := s.Get(ctx, "blog/metadata.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"posts":[]}` {
		t.Errorf("Get = %q", got)
	}
}

func TestSQLitePutReplaces(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, "k", []byte("one"), ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := s.Put(ctx, "k", []byte("two"), ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "two" {
		t.Errorf("Get = %q, want %q", got, "two")
	}
}

func TestSQLiteGetNotFound(t *testing.T) {
	s := setupSQLiteStore(t)

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteDelete(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, "documents/files/a.pdf", []byte("%PDF"), "application/pdf"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Delete(ctx, "documents/files/a.pdf"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, "documents/files/a.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteKeys(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	for _, k := range []string{"documents/files/b.pdf", "blog/metadata.json", "documents/files/a.pdf"} {
		if _, err := s.Put(ctx, k, []byte("x"), ""); err != nil {
			t.Fatalf("Put %s failed: %v", k, err)
		}
	}
	keys, err := s.Keys(ctx, "documents/files/")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "documents/files/a.pdf" || keys[1] != "documents/files/b.pdf" {
		t.Errorf("Keys = %v", keys)
	}
}

func TestOpenUnconfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"http without token", Config{Backend: BackendHTTP}},
		{"default backend without token", Config{}},
		{"sqlite without path", Config{Backend: BackendSQLite}},
		{"redis without url", Config{Backend: BackendRedis}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(context.Background(), tt.cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if s != nil {
				t.Fatalf("expected nil store, got %T", s)
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), Config{Backend: "s3"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpenSQLite(t *testing.T) {
	s, err := Open(context.Background(), Config{
		Backend:    BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "blobs.db"),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer Close(s)
	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("Open returned %T", s)
	}
}
