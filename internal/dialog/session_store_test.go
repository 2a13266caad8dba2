package dialog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestSessionStore(t *testing.T) *RedisSessionStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, time.Hour, nil)
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store := newTestSessionStore(t)
	ctx := context.Background()

	session := &Session{ID: "whatsapp:+5511999990000", Profile: Profile{Name: "Maria Silva", Email: "maria@example.com"}}
	session.Push(FlowScheduling, time.Now())
	session.Top().Step = StepAwaitingSlotChoice

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, session.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil for existing session")
	}
	if loaded.Profile.Name != "Maria Silva" {
		t.Errorf("profile name = %q", loaded.Profile.Name)
	}
	if top := loaded.Top(); top == nil || top.Step != StepAwaitingSlotChoice {
		t.Errorf("stack not preserved: %+v", loaded.Stack)
	}
	if loaded.Version != 1 {
		t.Errorf("version = %d, want 1", loaded.Version)
	}
}

func TestSessionStoreLoadMissingReturnsNil(t *testing.T) {
	store := newTestSessionStore(t)

	loaded, err := store.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Errorf("loaded = %+v, want nil", loaded)
	}
}

func TestSessionStoreSaveDetectsConflict(t *testing.T) {
	store := newTestSessionStore(t)
	ctx := context.Background()

	session := &Session{ID: "x"}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	copyA, _ := store.Load(ctx, "x")
	copyB, _ := store.Load(ctx, "x")

	copyA.Profile.Name = "A"
	if err := store.Save(ctx, copyA); err != nil {
		t.Fatalf("save A: %v", err)
	}

	copyB.Profile.Name = "B"
	if err := store.Save(ctx, copyB); !errors.Is(err, ErrSessionConflict) {
		t.Fatalf("save B err = %v, want ErrSessionConflict", err)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	store := newTestSessionStore(t)
	ctx := context.Background()

	session := &Session{ID: "x"}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if loaded, _ := store.Load(ctx, "x"); loaded != nil {
		t.Error("session survived Delete")
	}
}
