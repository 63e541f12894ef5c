package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func TestBoltStoreMarksAndExpiresJokes(t *testing.T) {
	opts := Options{
		JokeTTL:         time.Minute,
		CleanupInterval: time.Hour,
	}

	store, err := openBolt(filepath.Join(t.TempDir(), "nested", "jokes.db"), opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }

	seen, err := store.SeenJoke(42)
	if err != nil || seen {
		t.Fatalf("expected unseen joke, seen=%v err=%v", seen, err)
	}

	if err := store.MarkJoke(42); err != nil {
		t.Fatalf("MarkJoke: %v", err)
	}

	seen, err = store.SeenJoke(42)
	if err != nil || !seen {
		t.Fatalf("expected joke marked as seen, got seen=%v err=%v", seen, err)
	}
	if seen, _ := store.SeenJoke(43); seen {
		t.Fatalf("expected other joke ids to stay unseen")
	}

	now = now.Add(2 * time.Minute)
	seen, err = store.SeenJoke(42)
	if err != nil {
		t.Fatalf("SeenJoke after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire")
	}
}

func TestBoltStoreCleanupRemovesExpiredEntries(t *testing.T) {
	store, err := openBolt(filepath.Join(t.TempDir(), "jokes.db"), Options{
		JokeTTL:         time.Minute,
		CleanupInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }
	for _, id := range []int64{1, 2, 3} {
		if err := store.MarkJoke(id); err != nil {
			t.Fatalf("MarkJoke(%d): %v", id, err)
		}
	}

	now = now.Add(2 * time.Hour)
	if err := store.maybeCleanup(now); err != nil {
		t.Fatalf("maybeCleanup: %v", err)
	}

	count := 0
	err = store.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(jokeBucket)).Stats().KeyN
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected expired entries to be removed, %d left", count)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkJoke(1); err != nil {
		t.Fatalf("noop store MarkJoke: %v", err)
	}
	if seen, _ := store.SeenJoke(1); seen {
		t.Fatalf("noop store should never report seen jokes")
	}
}

func TestNewStoreValidatesArguments(t *testing.T) {
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for missing redis address")
	}
	if _, err := NewStore("cassandra", "x", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestNewStoreBBoltReturnsWorkingStore(t *testing.T) {
	store, err := NewStore("BBolt", filepath.Join(t.TempDir(), "jokes.db"), Options{})
	if err != nil {
		t.Fatalf("NewStore bbolt: %v", err)
	}
	defer store.Close()
	if err := store.MarkJoke(9); err != nil {
		t.Fatalf("MarkJoke: %v", err)
	}
	if seen, err := store.SeenJoke(9); err != nil || !seen {
		t.Fatalf("expected seen joke, seen=%v err=%v", seen, err)
	}
}
