package kv

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"odds_grid/internal/domain"

	"github.com/redis/go-redis/v9"
)

func TestRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := ConnectRedis(ctx, Options{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected error connecting to closed port")
	}
}

func TestRedisStore_StorageErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	s := NewRedisStore(rdb, "test:")
	defer s.Close()

	err := s.Set(context.Background(), "scrollTop", "10")
	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if se.Op != "set" || se.Key != "scrollTop" {
		t.Errorf("unexpected error fields: %+v", se)
	}
}

// Runs against a real server when ODDSGRID_TEST_REDIS is set (e.g. localhost:6379).
func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("ODDSGRID_TEST_REDIS")
	if addr == "" {
		t.Skip("ODDSGRID_TEST_REDIS not set")
	}

	ctx := context.Background()
	s, err := ConnectRedis(ctx, Options{Addr: addr, KeyPrefix: "oddsgrid-test:"})
	if err != nil {
		t.Fatalf("ConnectRedis failed: %v", err)
	}
	defer s.Close()
	defer s.Remove(ctx, "selected_odd")

	if _, ok, err := s.Get(ctx, "selected_odd"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "selected_odd", `{"a":"oddX"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := s.Get(ctx, "selected_odd")
	if err != nil || !ok || v != `{"a":"oddX"}` {
		t.Errorf("Get = %q, %v, %v", v, ok, err)
	}
	if err := s.Remove(ctx, "selected_odd"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "selected_odd"); ok {
		t.Error("expected key removed")
	}
}
