// Package history keeps recent item values and computes trigger functions over them.
package history

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"zte.szuro.net/internal/logger"
	"zte.szuro.net/pkg/zbx"
)

const keyPrefix = 'v'

// Value is a single stored item value.
type Value struct {
	Clock    int
	Ns       int
	Value    string
	Severity int
	Source   string
	EventID  int
}

// Time returns the collection time of the value.
func (v Value) Time() time.Time {
	return time.Unix(int64(v.Clock), int64(v.Ns))
}

// Store persists item values in badger, newest values win when trimming.
type Store struct {
	db     *badger.DB
	retain int
	ttl    time.Duration
}

// Open opens a store in dir. An empty dir keeps values in memory only.
func Open(dir string, retain int, ttl time.Duration) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(logger.Default())
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	logger.Debug("Opened history store", slog.String("path", dir), slog.Int("retain", retain))
	return &Store{db: db, retain: retain, ttl: ttl}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func itemPrefix(itemid int) []byte {
	key := make([]byte, 9)
	key[0] = keyPrefix
	binary.BigEndian.PutUint64(key[1:], uint64(itemid))
	return key
}

func valueKey(itemid, clock, ns int) []byte {
	key := make([]byte, 25)
	copy(key, itemPrefix(itemid))
	binary.BigEndian.PutUint64(key[9:], uint64(clock))
	binary.BigEndian.PutUint64(key[17:], uint64(ns))
	return key
}

// Add stores h and drops values of the item beyond the retention limit.
func (s *Store) Add(h zbx.History) error {
	v := Value{
		Clock:    h.Clock,
		Ns:       h.Ns,
		Value:    h.ValueString(),
		Severity: h.Severity,
		Source:   h.Source,
		EventID:  h.EventID,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(valueKey(h.ItemID, h.Clock, h.Ns), buf.Bytes())
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		if err := txn.SetEntry(e); err != nil {
			return err
		}
		return s.trim(txn, h.ItemID)
	})
}

// trim deletes the oldest values past the retention limit. The entry set in
// the same transaction is visible to the iterator.
func (s *Store) trim(txn *badger.Txn, itemid int) error {
	if s.retain <= 0 {
		return nil
	}
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Reverse = true
	opts.Prefix = itemPrefix(itemid)
	it := txn.NewIterator(opts)
	defer it.Close()

	var stale [][]byte
	n := 0
	for it.Seek(seekLast(itemid)); it.Valid(); it.Next() {
		n++
		if n > s.retain {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
	}
	for _, key := range stale {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func seekLast(itemid int) []byte {
	return append(itemPrefix(itemid), bytes.Repeat([]byte{0xff}, 16)...)
}

// Values returns values of the item selected by p, newest first.
func (s *Store) Values(itemid int, p Period, now time.Time) ([]Value, error) {
	if p.IsZero() {
		return nil, nil
	}
	end := now.Add(-p.Shift)
	var start time.Time
	if p.Window > 0 {
		start = end.Add(-p.Window)
	}

	var values []Value
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = itemPrefix(itemid)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seekLast(itemid)); it.Valid(); it.Next() {
			var v Value
			err := it.Item().Value(func(val []byte) error {
				return gob.NewDecoder(bytes.NewReader(val)).Decode(&v)
			})
			if err != nil {
				logger.Error("Failed to decode history value", slog.Int("itemid", itemid), slog.Any("error", err))
				continue
			}
			t := v.Time()
			if t.After(end) {
				continue
			}
			if p.Window > 0 && !t.After(start) {
				break
			}
			values = append(values, v)
			if p.Count > 0 && len(values) == p.Count {
				break
			}
		}
		return nil
	})
	return values, err
}
