package services

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/v2"

	"github/itish2003/vaultchat/models"
)

// HistoryStore persists exchanges in a PebbleDB key-value store.
// Keys are 8-byte big-endian sequence numbers increasing monotonically.
type HistoryStore struct {
	db   *pebble.DB
	mu   sync.Mutex
	next uint64
}

// OpenHistoryStore returns nil, nil when dir is empty: history is disabled.
func OpenHistoryStore(dir string) (*HistoryStore, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := pebble.Open(filepath.Join(filepath.Clean(dir), "history"), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}
	s := &HistoryStore{db: db}
	it, err := db.NewIter(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	defer func() { _ = it.Close() }()
	if it.Last() && len(it.Key()) >= 8 {
		s.next = binary.BigEndian.Uint64(it.Key()[:8]) + 1
	}
	return s, nil
}

func (s *HistoryStore) Append(e models.Exchange) error {
	if s == nil || s.db == nil {
		return nil
	}
	val, err := json.Marshal(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, s.next)
	s.next++
	return s.db.Set(key, val, pebble.Sync)
}

// Recent returns up to limit exchanges, newest first. limit <= 0 means all.
func (s *HistoryStore) Recent(limit int) ([]models.Exchange, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	it, err := s.db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	out := make([]models.Exchange, 0, 32)
	for valid := it.Last(); valid; valid = it.Prev() {
		if limit > 0 && len(out) >= limit {
			break
		}
		var e models.Exchange
		if err := json.Unmarshal(it.Value(), &e); err == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *HistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
