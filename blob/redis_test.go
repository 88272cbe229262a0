package blob

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var (
	_ Lister = (*RedisStore)(nil)
	_ Pinger = (*RedisStore)(nil)
	_ Lister = (*SQLiteStore)(nil)
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisKeyPrefix(t *testing.T) {
	s := NewRedisStoreFromClient(nil, "")
	if got := s.redisKey("blog/metadata.json"); got != DefaultRedisPrefix+"blog/metadata.json" {
		t.Errorf("redisKey = %q", got)
	}
}

func TestRedisPutAndGet(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	obj, err := s.Put(ctx, "blog/metadata.json", []byte(`{"posts":[]}`), "application/json")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if obj.Key != "blog/metadata.json" || obj.Size != 12 || obj.URL != "redis://"+DefaultRedisPrefix+"blog/metadata.json" {
		t.Errorf("Put object = %+v", obj)
	}
	if got, _ := mr.Get(DefaultRedisPrefix + "blog/metadata.json"); got != `{"posts":[]}` {
		t.Errorf("raw value = %q", got)
	}

	got, err := s.Get(ctx, "blog/metadata.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"posts":[]}` {
		t.Errorf("Get = %q", got)
	}
}

func TestRedisPutReplaces(t *testing.T) {
	s, _ := setupRedisStore(t)
	ctx := context.Background()

	s.Put(ctx, "k", []byte("one"), "")
	s.Put(ctx, "k", []byte("two"), "")
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "two" {
		t.Errorf("Get = %q, %v", got, err)
	}
}

func TestRedisNotFound(t *testing.T) {
	s, _ := setupRedisStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing: expected ErrNotFound, got %v", err)
	}
}

func TestRedisDelete(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	s.Put(ctx, "documents/files/a.pdf", []byte("x"), "")
	if err := s.Delete(ctx, "documents/files/a.pdf"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if mr.Exists(DefaultRedisPrefix + "documents/files/a.pdf") {
		t.Error("key still present after Delete")
	}
}

func TestRedisKeys(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	for _, k := range []string{"documents/files/b.pdf", "documents/files/a.pdf", "documents/metadata.json", "blog/metadata.json"} {
		if _, err := s.Put(ctx, k, []byte("x"), ""); err != nil {
			t.Fatal(err)
		}
	}
	mr.Set("other:documents/files/c.pdf", "foreign")

	tests := []struct {
		prefix string
		want   []string
	}{
		{"documents/files/", []string{"documents/files/a.pdf", "documents/files/b.pdf"}},
		{"documents/", []string{"documents/files/a.pdf", "documents/files/b.pdf", "documents/metadata.json"}},
		{"events/", nil},
		{"documents/f*", nil},
	}
	for _, tt := range tests {
		got, err := s.Keys(ctx, tt.prefix)
		if err != nil {
			t.Fatalf("Keys(%q): %v", tt.prefix, err)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Keys(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestRedisPing(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	mr.Close()
	if err := s.Ping(ctx); err == nil {
		t.Error("Ping succeeded against a stopped server")
	}
}

func TestOpenRedisDoesNotConnect(t *testing.T) {
	s, err := Open(context.Background(), Config{Backend: BackendRedis, RedisURL: "redis://127.0.0.1:1/0"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer Close(s)
	if _, err := s.Get(context.Background(), "blog/metadata.json"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get against unreachable server = %v, want a connection error", err)
	}

	if _, err := Open(context.Background(), Config{Backend: BackendRedis, RedisURL: "not a url"}); err == nil {
		t.Error("Open accepted an invalid redis url")
	}
}
