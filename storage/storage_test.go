package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(DriverSQLite, filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestCreateThenListBySource(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sub, err := s.CreateSubscription(ctx, "-100111", "-100222#7", "42")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if sub.ID == 0 {
		t.Fatal("expected a non-zero id")
	}
	if sub.CreatedDate.IsZero() {
		t.Error("expected created date to be set")
	}

	subs, err := s.ListSubscriptionsBySource(ctx, "-100111")
	if err != nil {
		t.Fatalf("list by source failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(subs))
	}

	got := subs[0]
	if got.ID != sub.ID {
		t.Errorf("ID: got %d, want %d", got.ID, sub.ID)
	}
	if got.SourceID != "-100111" {
		t.Errorf("SourceID: got %q, want %q", got.SourceID, "-100111")
	}
	if got.DestinationID != "-100222#7" {
		t.Errorf("DestinationID: got %q, want %q", got.DestinationID, "-100222#7")
	}
	if got.UserIDCreated != "42" {
		t.Errorf("UserIDCreated: got %q, want %q", got.UserIDCreated, "42")
	}
}

func TestListBySourceIsExactMatch(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, src := range []string{"-100111", "-100111#5", "-1001110"} {
		if _, err := s.CreateSubscription(ctx, src, "-100999", "1"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	subs, err := s.ListSubscriptionsBySource(ctx, "-100111")
	if err != nil {
		t.Fatalf("list by source failed: %v", err)
	}
	if len(subs) != 1 || subs[0].SourceID != "-100111" {
		t.Errorf("expected only the exact source to match, got %+v", subs)
	}
}

func TestListBySourceWithoutMatches(t *testing.T) {
	s := newTestStorage(t)

	subs, err := s.ListSubscriptionsBySource(context.Background(), "-100404")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected empty result, got %d", len(subs))
	}
}

func TestDuplicatesAreAllowed(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	first, err := s.CreateSubscription(ctx, "-100111", "-100222", "1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := s.CreateSubscription(ctx, "-100111", "-100222", "1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if first.ID == second.ID {
		t.Errorf("expected distinct ids, both are %d", first.ID)
	}

	subs, _ := s.ListSubscriptionsBySource(ctx, "-100111")
	if len(subs) != 2 {
		t.Errorf("got %d subscriptions, want 2", len(subs))
	}
}

func TestListByOwner(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, _ = s.CreateSubscription(ctx, "-100111", "-100222", "alice")
	_, _ = s.CreateSubscription(ctx, "-100333", "-100444", "bob")
	_, _ = s.CreateSubscription(ctx, "-100555", "-100666", "alice")

	all, err := s.ListSubscriptions(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d subscriptions, want 3", len(all))
	}

	owned, err := s.ListSubscriptionsByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("list by owner failed: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("got %d subscriptions, want 2", len(owned))
	}
	for _, sub := range owned {
		if sub.UserIDCreated != "alice" {
			t.Errorf("unexpected owner %q", sub.UserIDCreated)
		}
	}
}

func TestDeleteRequiresOwner(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sub, err := s.CreateSubscription(ctx, "-100111", "-100222", "alice")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	deleted, err := s.DeleteSubscription(ctx, sub.ID, "mallory")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted {
		t.Error("delete with a foreign owner must not succeed")
	}

	subs, _ := s.ListSubscriptionsBySource(ctx, "-100111")
	if len(subs) != 1 {
		t.Fatalf("record must stay intact, got %d", len(subs))
	}

	deleted, err = s.DeleteSubscription(ctx, sub.ID, "alice")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !deleted {
		t.Error("expected owner delete to succeed")
	}

	deleted, err = s.DeleteSubscription(ctx, sub.ID, "alice")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted {
		t.Error("second delete must report false")
	}

	deleted, _ = s.DeleteSubscription(ctx, 9999, "alice")
	if deleted {
		t.Error("delete of a missing id must report false")
	}
}

func TestIDsAreNotReused(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, _ = s.CreateSubscription(ctx, "-100111", "-100222", "1")
	last, err := s.CreateSubscription(ctx, "-100111", "-100333", "1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if ok, _ := s.DeleteSubscription(ctx, last.ID, "1"); !ok {
		t.Fatal("expected delete to succeed")
	}

	next, err := s.CreateSubscription(ctx, "-100111", "-100444", "1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if next.ID <= last.ID {
		t.Errorf("id reused: got %d after deleting %d", next.ID, last.ID)
	}
}

func TestConcurrentCreatesGetUniqueIDs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	const n = 20
	ids := make(chan uint, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := s.CreateSubscription(ctx, "-100111", "-100222", "1")
			if err != nil {
				t.Errorf("create failed: %v", err)
				return
			}
			ids <- sub.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("got %d unique ids, want %d", len(seen), n)
	}
}

func TestFailuresAreStorageErrors(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if _, err := s.CreateSubscription(ctx, "-100111", "-100222", "1"); !errors.Is(err, ErrStorage) {
		t.Errorf("create: expected ErrStorage, got %v", err)
	}
	if _, err := s.ListSubscriptionsBySource(ctx, "-100111"); !errors.Is(err, ErrStorage) {
		t.Errorf("list by source: expected ErrStorage, got %v", err)
	}
	if _, err := s.DeleteSubscription(ctx, 1, "1"); !errors.Is(err, ErrStorage) {
		t.Errorf("delete: expected ErrStorage, got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrStorage) {
		t.Errorf("ping: expected ErrStorage, got %v", err)
	}
}

func TestUnknownDriver(t *testing.T) {
	if _, err := New("oracle", "whatever"); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
}
