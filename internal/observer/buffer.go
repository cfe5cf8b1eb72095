package observer

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"zte.szuro.net/internal/logger"
	zbxpkg "zte.szuro.net/pkg/zbx"
)

// EventBuffer keeps events that could not be shipped so they can be sent
// again later. Entries expire after the configured TTL.
type EventBuffer struct {
	ttl time.Duration
	db  *badger.DB
}

// OpenEventBuffer opens a buffer in dir. ttlHours of zero or less disables
// buffering and returns a nil buffer.
func OpenEventBuffer(dir string, ttlHours int64) (*EventBuffer, error) {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttl <= 0 {
		return nil, nil
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(logger.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open offline buffer: %w", err)
	}
	logger.Debug("Initialized BadgerDB for offline buffering", slog.String("path", dir))
	return &EventBuffer{ttl: ttl, db: db}, nil
}

func (b *EventBuffer) Close() error {
	if b == nil {
		return nil
	}
	return b.db.Close()
}

// Put stores events keyed by their hash.
func (b *EventBuffer) Put(events []zbxpkg.Event) error {
	if b == nil {
		return errors.New("cannot write to nil buffer")
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range events {
		var value bytes.Buffer
		if err := gob.NewEncoder(&value).Encode(e); err != nil {
			return err
		}
		if err := wb.SetEntry(badger.NewEntry(e.Hash(), value.Bytes()).WithTTL(b.ttl)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Fetch returns up to batchSize buffered events in key order.
func (b *EventBuffer) Fetch(batchSize int) (buffered []zbxpkg.Event, err error) {
	if b == nil {
		return nil, errors.New("cannot read from nil buffer")
	}
	err = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = batchSize
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(buffered) < batchSize; it.Next() {
			var e zbxpkg.Event
			err := it.Item().Value(func(val []byte) error {
				return gob.NewDecoder(bytes.NewReader(val)).Decode(&e)
			})
			if err != nil {
				logger.Error("Failed to decode from buffer", slog.String("buffer", b.db.Opts().Dir), slog.Any("error", err))
				continue
			}
			buffered = append(buffered, e)
		}
		return nil
	})
	return
}

func (b *EventBuffer) Delete(events []zbxpkg.Event) error {
	if b == nil {
		return errors.New("cannot delete from nil buffer")
	}
	return b.db.Update(func(txn *badger.Txn) error {
		for _, e := range events {
			if err := txn.Delete(e.Hash()); err != nil {
				return err
			}
		}
		return nil
	})
}
