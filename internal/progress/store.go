package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/events"
	"go.etcd.io/bbolt"
)

const bucketName = "progress"

// Named slots of the LocalProgressSnapshot.
const (
	SlotGameState    = "gameState"
	SlotCollection   = "unlockedYokai"
	SlotAchievements = "achievements"
	SlotPreferences  = "preferences"
)

// WatchedSlots are the slots whose changes schedule a cloud push.
var WatchedSlots = []string{SlotGameState, SlotCollection, SlotAchievements, SlotPreferences}

var (
	ErrNotFound    = errors.New("progress slot not found")
	ErrInvalidSlot = errors.New("invalid progress slot")
	ErrInvalidJSON = errors.New("slot value must be valid JSON")
)

// Store is the on-device source of truth. Writes publish progress.changed on the bus.
type Store struct {
	db  *bbolt.DB
	bus *events.Bus
}

func New(db *bbolt.DB, bus *events.Bus) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("progress db is required")
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ensure progress bucket: %w", err)
	}
	return &Store{db: db, bus: bus}, nil
}

func (s *Store) Get(ctx context.Context, slot string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out json.RawMessage
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(slot))
		if v == nil {
			return ErrNotFound
		}
		out = append(json.RawMessage(nil), v...)
		return nil
	})
	return out, err
}

func (s *Store) Set(ctx context.Context, slot string, value json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return ErrInvalidSlot
	}
	if !json.Valid(value) {
		return ErrInvalidJSON
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return ErrInvalidJSON
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(slot), buf.Bytes())
	})
	if err != nil {
		return fmt.Errorf("put slot %s: %w", slot, err)
	}
	s.bus.Publish(events.Event{Topic: events.TopicProgressChanged, Key: slot})
	return nil
}

func (s *Store) Delete(ctx context.Context, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	emptied := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		existed := b.Get([]byte(slot)) != nil
		if err := b.Delete([]byte(slot)); err != nil {
			return err
		}
		k, _ := b.Cursor().First()
		emptied = existed && k == nil
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	s.bus.Publish(events.Event{Topic: events.TopicProgressChanged, Key: slot})
	if emptied {
		s.bus.Publish(events.Event{Topic: events.TopicProgressCleared})
	}
	return nil
}

// Snapshot returns every slot. The map is empty, never nil, for a fresh store.
func (s *Store) Snapshot(ctx context.Context) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			out[string(k)] = append(json.RawMessage(nil), v...)
			return nil
		})
	})
	return out, err
}

func (s *Store) Empty(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	empty := true
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, _ := tx.Bucket([]byte(bucketName)).Cursor().First()
		empty = k == nil
		return nil
	})
	return empty, err
}

// Restore replaces all slots with snapshot in one transaction. It does not
// publish change events: restored data came from the cloud.
func (s *Store) Restore(ctx context.Context, snapshot map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for slot, v := range snapshot {
		if strings.TrimSpace(slot) == "" {
			return ErrInvalidSlot
		}
		if !json.Valid(v) {
			return fmt.Errorf("slot %s: %w", slot, ErrInvalidJSON)
		}
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket([]byte(bucketName))
		if err != nil {
			return err
		}
		for slot, v := range snapshot {
			if err := b.Put([]byte(slot), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear wipes local progress. Only explicit user action should call it.
// It publishes progress.cleared so the reset reaches the cloud.
func (s *Store) Clear(ctx context.Context) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.Restore(ctx, nil); err != nil {
		return err
	}
	for slot := range snap {
		s.bus.Publish(events.Event{Topic: events.TopicProgressChanged, Key: slot})
	}
	s.bus.Publish(events.Event{Topic: events.TopicProgressCleared})
	return nil
}

// IsWatched reports whether slot changes schedule a cloud push.
func IsWatched(slot string) bool {
	for _, w := range WatchedSlots {
		if w == slot {
			return true
		}
	}
	return false
}
