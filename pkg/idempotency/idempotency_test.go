package idempotency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	keys    map[string]string
	setErr  error
	lastTTL time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]string{}}
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	return f.keys[key], nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	f.lastTTL = ttl
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = "1"
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return strings.Join([]string{"cw", "idempotency", scope, id}, ":")
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("unexpected manager error: %v", err)
	}

	already, err := manager.CheckAndMarkProcessed(context.Background(), "channel-fanout", "msg-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if already {
		t.Fatal("first sighting must not be marked processed")
	}
	if store.lastTTL != time.Hour {
		t.Fatalf("expected ttl to pass through, got %s", store.lastTTL)
	}

	already, err = manager.CheckAndMarkProcessed(context.Background(), "channel-fanout", "msg-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !already {
		t.Fatal("second sighting must be marked processed")
	}

	// Different consumers keep independent ledgers.
	already, err = manager.CheckAndMarkProcessed(context.Background(), "other", "msg-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if already {
		t.Fatal("consumers must not share processed marks")
	}
}

func TestDeleteAllowsReprocessing(t *testing.T) {
	store := newFakeStore()
	manager, _ := NewManager(store, time.Hour)

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "channel-fanout", "msg-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := manager.Delete(context.Background(), "channel-fanout", "msg-1"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	already, err := manager.CheckAndMarkProcessed(context.Background(), "channel-fanout", "msg-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if already {
		t.Fatal("deleted mark must allow reprocessing")
	}
}

func TestValidation(t *testing.T) {
	store := newFakeStore()
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewManager(store, -time.Second); err == nil {
		t.Fatal("expected error for negative ttl")
	}

	manager, _ := NewManager(store, time.Hour)
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", "id"); err == nil {
		t.Fatal("expected error for empty consumer")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "consumer", ""); err == nil {
		t.Fatal("expected error for empty id")
	}

	store.setErr = errors.New("redis down")
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "consumer", "id"); err == nil {
		t.Fatal("expected store error to surface")
	}
}
