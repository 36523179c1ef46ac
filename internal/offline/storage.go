package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.etcd.io/bbolt"
)

const rootBucket = "caches"

// CacheEntry is one stored request/response pair.
type CacheEntry struct {
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"storedAt"`
}

func entryKey(method, url string) []byte {
	return []byte(method + " " + url)
}

// CacheStorage keeps named cache buckets nested under one root bucket so other
// data in the same bbolt file is never enumerated as a cache.
type CacheStorage struct {
	db *bbolt.DB
}

func NewCacheStorage(db *bbolt.DB) (*CacheStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("cache db is required")
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ensure cache root: %w", err)
	}
	return &CacheStorage{db: db}, nil
}

// Keys lists the cache bucket names in byte order.
func (s *CacheStorage) Keys() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(rootBucket)).ForEach(func(k, v []byte) error {
			if v == nil {
				names = append(names, string(k))
			}
			return nil
		})
	})
	return names, err
}

// Match looks up method+url in every bucket and returns the first hit.
func (s *CacheStorage) Match(method, url string) (*CacheEntry, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		return root.ForEach(func(name, v []byte) error {
			if raw != nil || v != nil {
				return nil
			}
			if v := root.Bucket(name).Get(entryKey(method, url)); v != nil {
				raw = append([]byte(nil), v...)
			}
			return nil
		})
	})
	if err != nil || raw == nil {
		return nil, false, err
	}
	return decodeEntry(raw)
}

func decodeEntry(raw []byte) (*CacheEntry, bool, error) {
	var e CacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return &e, true, nil
}

// Put stores entries into the named bucket, creating it if needed, in one transaction.
func (s *CacheStorage) Put(name string, entries ...*CacheEntry) error {
	encoded := make([][]byte, len(entries))
	for i, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode cache entry: %w", err)
		}
		encoded[i] = b
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket([]byte(rootBucket)).CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		for i, e := range entries {
			if err := b.Put(entryKey(e.Method, e.URL), encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a whole bucket. It reports false when the bucket did not exist.
func (s *CacheStorage) Delete(name string) (bool, error) {
	deleted := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket([]byte(rootBucket)).DeleteBucket([]byte(name))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// Entries returns the keys stored in one bucket.
func (s *CacheStorage) Entries(name string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(rootBucket)).Bucket([]byte(name))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}
