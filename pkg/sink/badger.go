package sink

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// BadgerEmitter archives events in a local Badger database so exports
// survive the process. Keys are "event:<unixnano>:<seq>", which keeps the
// archive iterable in roughly insertion order.
type BadgerEmitter struct {
	db  *badger.DB
	seq atomic.Uint64
}

// NewBadgerEmitter opens (or creates) the archive at dir.
func NewBadgerEmitter(dir string) (*BadgerEmitter, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("sink.NewBadgerEmitter: open %s: %w", dir, err)
	}
	return &BadgerEmitter{db: db}, nil
}

func (e *BadgerEmitter) eventKey() []byte {
	return []byte(fmt.Sprintf("event:%d:%d", time.Now().UnixNano(), e.seq.Add(1)))
}

// Emit stores each event as a JSON value under a fresh key.
func (e *BadgerEmitter) Emit(events []event.Event) error {
	err := e.db.Update(func(txn *badger.Txn) error {
		for i := range events {
			val, err := json.Marshal(&events[i])
			if err != nil {
				return err
			}
			if err := txn.Set(e.eventKey(), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.SinkEmits.WithLabelValues("badger", "error").Inc()
		return fmt.Errorf("sink.BadgerEmitter: %w", err)
	}
	metrics.SinkEmits.WithLabelValues("badger", "ok").Inc()
	metrics.SinkEvents.WithLabelValues("badger").Add(float64(len(events)))
	return nil
}

// Archived scans the archive and returns every stored event in key order.
func (e *BadgerEmitter) Archived() ([]event.Event, error) {
	var out []event.Event
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("event:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var ev event.Event
				if err := json.Unmarshal(val, &ev); err != nil {
					return nil // skip corrupt entries
				}
				out = append(out, ev)
				return nil
			})
			if err != nil {
				continue
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sink.BadgerEmitter: scan: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (e *BadgerEmitter) Close() error {
	return e.db.Close()
}
