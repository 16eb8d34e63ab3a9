package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"wordsofdeath.app/internal/accounts"
)

func newTestCache(t *testing.T) (*Users, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewUsers(rdb), mr
}

func TestPutAndGet(t *testing.T) {
	users, _ := newTestCache(t)
	ctx := context.Background()

	want := accounts.User{
		ID:        "01ULID",
		DiscordID: "1",
		Username:  "alice",
		Roles:     []string{"admin"},
	}
	users.Put(ctx, want)

	got, ok := users.Get(ctx, "alice")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Username != "alice" || got.DiscordID != "1" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if len(got.Roles) != 1 || got.Roles[0] != "admin" {
		t.Fatalf("unexpected roles: %v", got.Roles)
	}
}

func TestGetMiss(t *testing.T) {
	users, _ := newTestCache(t)

	if _, ok := users.Get(context.Background(), "ghost"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestEntryExpires(t *testing.T) {
	users, mr := newTestCache(t)
	ctx := context.Background()

	users.Put(ctx, accounts.User{Username: "alice"})
	mr.FastForward(defaultTTL + time.Second)

	if _, ok := users.Get(ctx, "alice"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestInvalidate(t *testing.T) {
	users, _ := newTestCache(t)
	ctx := context.Background()

	users.Put(ctx, accounts.User{Username: "alice"})
	users.Invalidate(ctx, "alice")

	if _, ok := users.Get(ctx, "alice"); ok {
		t.Fatal("expected invalidated entry to be gone")
	}
}

func TestCorruptRecordIsAMiss(t *testing.T) {
	users, mr := newTestCache(t)

	mr.Set(userKeyPrefix+"alice", "{not json")

	if _, ok := users.Get(context.Background(), "alice"); ok {
		t.Fatal("expected corrupt record to miss")
	}
	if mr.Exists(userKeyPrefix + "alice") {
		t.Fatal("expected corrupt record to be dropped")
	}
}

func TestRedisDownIsAMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	users := NewUsers(rdb)
	mr.Close()

	users.Put(context.Background(), accounts.User{Username: "alice"})
	if _, ok := users.Get(context.Background(), "alice"); ok {
		t.Fatal("expected miss when redis is unreachable")
	}
}
