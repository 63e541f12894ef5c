package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

var errBucketMissing = errors.New("joke bucket missing")

// jokes bucket: 8-byte big-endian joke id -> 8-byte big-endian expiry (unix seconds).
const (
	jokeBucket = "jokes"
	uint64Size = 8
)

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	jokeTTL         time.Duration
	cleanupInterval time.Duration
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	now             func() time.Time
}

// openBolt opens (or creates) the BoltDB file and its jokes bucket.
func openBolt(path string, opts Options) (*boltStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(jokeBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		jokeTTL:         opts.JokeTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenJoke reports whether the joke was marked and its entry has not expired.
// Expired entries found on lookup are deleted.
func (b *boltStore) SeenJoke(id int64) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}

	now := b.now()
	if err := b.maybeCleanup(now); err != nil {
		return false, err
	}

	key := encodeUint64(uint64(id))
	var seen, expired bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(jokeBucket))
		if bucket == nil {
			return errBucketMissing
		}
		value := bucket.Get(key)
		if value == nil {
			return nil
		}
		if live(value, now) {
			seen = true
		} else {
			expired = true
		}
		return nil
	})
	if err != nil || !expired {
		return seen, err
	}

	return false, b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(jokeBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Delete(key)
	})
}

// MarkJoke records the joke as delivered until the TTL elapses.
func (b *boltStore) MarkJoke(id int64) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := b.now()
	if err := b.maybeCleanup(now); err != nil {
		return err
	}

	expiry := encodeUint64(uint64(now.Add(b.jokeTTL).Unix()))
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(jokeBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put(encodeUint64(uint64(id)), expiry)
	})
}

// maybeCleanup drops expired joke entries at most once per cleanup interval.
func (b *boltStore) maybeCleanup(now time.Time) error {
	if now.Sub(time.Unix(b.lastCleanup.Load(), 0)) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	// another caller may have finished a sweep while we waited
	if now.Sub(time.Unix(b.lastCleanup.Load(), 0)) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(jokeBucket))
		if bucket == nil {
			return errBucketMissing
		}
		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			if !live(v, now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cleanup expired jokes: %w", err)
	}
	b.lastCleanup.Store(now.Unix())
	return nil
}

// live reports whether an encoded expiry is still in the future.
func live(value []byte, now time.Time) bool {
	if len(value) != uint64Size {
		return false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	return unix > 0 && time.Unix(unix, 0).After(now)
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, uint64Size)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
