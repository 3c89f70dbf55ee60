package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t, time.Minute)
	ctx := context.Background()

	err := store.Save(ctx, &Session{UserID: 42, State: StateAwaitingDestination, SourceID: "-100123"})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	session, err := store.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if session == nil {
		t.Fatal("expected a session")
	}
	if session.State != StateAwaitingDestination || session.SourceID != "-100123" {
		t.Errorf("session: got %+v", session)
	}

	if err := store.Delete(ctx, 42); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if session, _ := store.Get(ctx, 42); session != nil {
		t.Errorf("expected no session after delete, got %+v", session)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	_ = store.Save(ctx, &Session{UserID: 42, State: StateAwaitingSource})

	if ttl := mr.TTL(sessionKey(42)); ttl != time.Minute {
		t.Errorf("ttl: got %v, want %v", ttl, time.Minute)
	}

	mr.FastForward(2 * time.Minute)

	session, err := store.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if session != nil {
		t.Errorf("expected expired session to be gone, got %+v", session)
	}
}

func TestDialogOverRedis(t *testing.T) {
	store, _ := newRedisStore(t, time.Minute)
	ctx := context.Background()
	creator := &stubCreator{}
	d := New(store, creator)

	_ = d.Start(ctx, 7)
	if _, err := d.Handle(ctx, 7, Input{Text: "-100111"}); err != nil {
		t.Fatalf("source step failed: %v", err)
	}
	res, err := d.Handle(ctx, 7, Input{ForwardedFromChatID: -100222})
	if err != nil {
		t.Fatalf("destination step failed: %v", err)
	}
	if res.Subscription.SourceID != "-100111" || res.Subscription.DestinationID != "-100222" {
		t.Errorf("subscription: got %+v", res.Subscription)
	}
}
