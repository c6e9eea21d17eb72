package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/roach88/reel/internal/ir"
)

// DefaultMaxConflictRetries bounds how often BadgerStore.Update re-runs a
// callback that lost an optimistic-concurrency race.
const DefaultMaxConflictRetries = 16

// eventSeqBandwidth is how many event seqs a badger.Sequence leases at once.
const eventSeqBandwidth = 100

// Key layout:
//
//	r/<address>        -> kind 0x00 body
//	e/<be64 seq>       -> eventRow JSON
//	m/event_seq        -> badger.Sequence lease
var (
	recordPrefix = []byte("r/")
	eventPrefix  = []byte("e/")
	eventSeqKey  = []byte("m/event_seq")
)

// BadgerStore is the Badger Backend.
//
// Badger transactions are optimistic: two concurrent Updates that read the
// same key conflict at commit. BadgerStore retries the losing callback from
// scratch, so it re-reads the record and re-runs every check before writing.
//
// Event seqs come from a badger.Sequence, outside every transaction's
// conflict set, so Updates on disjoint records never conflict. Seqs are
// unique and increasing but may skip values: a callback that drew a seq and
// then lost a conflict leaves a gap, and so does a crash before Close
// releases the lease.
type BadgerStore struct {
	db         *badger.DB
	seq        *badger.Sequence
	logger     *slog.Logger
	maxRetries int

	mu     sync.RWMutex
	closed bool
}

var _ Backend = (*BadgerStore)(nil)

// BadgerOption configures a BadgerStore.
type BadgerOption func(*BadgerStore)

// WithBadgerLogger sets the logger used for retry diagnostics.
func WithBadgerLogger(logger *slog.Logger) BadgerOption {
	return func(s *BadgerStore) {
		s.logger = logger
	}
}

// WithMaxConflictRetries overrides DefaultMaxConflictRetries.
func WithMaxConflictRetries(n int) BadgerOption {
	return func(s *BadgerStore) {
		s.maxRetries = n
	}
}

// OpenBadger opens a Badger database in dir. An empty dir opens an
// in-memory database.
func OpenBadger(dir string, opts ...BadgerOption) (*BadgerStore, error) {
	s := &BadgerStore{
		logger:     slog.Default(),
		maxRetries: DefaultMaxConflictRetries,
	}
	for _, opt := range opts {
		opt(s)
	}

	badgerOpts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithLoggingLevel(badger.WARNING)
	if dir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	seq, err := db.GetSequence(eventSeqKey, eventSeqBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open event sequence: %w", err)
	}
	s.db = db
	s.seq = seq
	return s, nil
}

// Close releases the event sequence lease and closes the database.
// Calling Close more than once is a no-op.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.db == nil {
		return nil
	}
	s.closed = true
	return errors.Join(s.seq.Release(), s.db.Close())
}

// acquire holds the read lock for one entry point and fails once the store
// is closed. The caller must call s.mu.RUnlock when err is nil.
func (s *BadgerStore) acquire() error {
	s.mu.RLock()
	if s.closed || s.db == nil {
		s.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

// Update runs fn in a read-write transaction, retrying on ErrConflict.
func (s *BadgerStore) Update(ctx context.Context, fn func(Txn) error) error {
	if err := s.acquire(); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	defer s.mu.RUnlock()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return fn(&badgerTxn{txn: txn, seq: s.seq})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt >= s.maxRetries {
			return fmt.Errorf("update: gave up after %d conflicts: %w", attempt+1, err)
		}
		s.logger.Debug("transaction conflict, retrying", "attempt", attempt+1)
	}
}

// View runs fn in a read-only transaction.
func (s *BadgerStore) View(ctx context.Context, fn func(Txn) error) error {
	if err := s.acquire(); err != nil {
		return fmt.Errorf("view: %w", err)
	}
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn, readOnly: true})
	})
}

// ReadEvents returns events with seq > after in ascending seq order.
func (s *BadgerStore) ReadEvents(ctx context.Context, after int64, limit int) ([]ir.Event, error) {
	if err := s.acquire(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer s.mu.RUnlock()

	events := []ir.Event{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: eventPrefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Seek(eventKey(after + 1)); it.ValidForPrefix(eventPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && len(events) >= limit {
				return nil
			}
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read event value: %w", err)
			}
			var row eventRow
			if err := json.Unmarshal(raw, &row); err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			ev, err := row.toEvent()
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

func recordKey(addr ir.Address) []byte {
	return append(bytes.Clone(recordPrefix), string(addr)...)
}

func eventKey(seq int64) []byte {
	key := bytes.Clone(eventPrefix)
	return binary.BigEndian.AppendUint64(key, uint64(seq))
}

// badgerTxn implements Txn over a badger transaction.
type badgerTxn struct {
	txn      *badger.Txn
	seq      *badger.Sequence
	readOnly bool
}

func (t *badgerTxn) Get(addr ir.Address) (Record, error) {
	item, err := t.txn.Get(recordKey(addr))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record %s: %w", addr.Short(), err)
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return Record{}, fmt.Errorf("get record %s: %w", addr.Short(), err)
	}
	kind, body, ok := bytes.Cut(raw, []byte{0x00})
	if !ok {
		return Record{}, fmt.Errorf("get record %s: malformed value", addr.Short())
	}
	return Record{Address: addr, Kind: ir.Kind(kind), Body: body}, nil
}

func (t *badgerTxn) Insert(rec Record) error {
	if t.readOnly {
		return ErrReadOnly
	}
	exists, err := Exists(t, rec.Address)
	if err != nil {
		return err
	}
	if exists {
		return ErrAddressInUse
	}
	return t.set(rec)
}

func (t *badgerTxn) Update(rec Record) error {
	if t.readOnly {
		return ErrReadOnly
	}
	cur, err := t.Get(rec.Address)
	if err != nil {
		return err
	}
	if cur.Kind != rec.Kind {
		return ErrNotFound
	}
	return t.set(rec)
}

func (t *badgerTxn) set(rec Record) error {
	val := make([]byte, 0, len(rec.Kind)+1+len(rec.Body))
	val = append(val, string(rec.Kind)...)
	val = append(val, 0x00)
	val = append(val, rec.Body...)
	if err := t.txn.Set(recordKey(rec.Address), val); err != nil {
		return fmt.Errorf("set record %s: %w", rec.Address.Short(), err)
	}
	return nil
}

// AppendEvent draws the next seq from the store's sequence. Nothing shared
// is read inside txn, so appends on disjoint records do not conflict.
func (t *badgerTxn) AppendEvent(ev *ir.Event) error {
	if t.readOnly {
		return ErrReadOnly
	}
	next, err := t.seq.Next()
	if err != nil {
		return fmt.Errorf("append event: next seq: %w", err)
	}

	row, err := stampEvent(ev, int64(next)+1)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if err := t.txn.Set(eventKey(row.Seq), data); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}
