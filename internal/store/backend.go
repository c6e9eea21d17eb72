package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/reel/internal/ir"
)

var (
	// ErrNotFound is returned when no record exists at an address.
	ErrNotFound = errors.New("record not found")

	// ErrAddressInUse is returned by Insert when the address is occupied.
	ErrAddressInUse = errors.New("address already in use")

	// ErrKindMismatch is returned when the record at an address has a
	// different kind than the caller expected.
	ErrKindMismatch = errors.New("record kind mismatch")

	// ErrReadOnly is returned by write methods of a View transaction.
	ErrReadOnly = errors.New("write in read-only transaction")

	// ErrClosed is returned by a backend used after Close.
	ErrClosed = errors.New("store is closed")
)

// Record is the raw form of a stored record.
type Record struct {
	Address ir.Address
	Kind    ir.Kind
	Body    []byte
}

// Txn is the set of reads and writes available inside one transaction.
type Txn interface {
	// Get returns the record at addr, or ErrNotFound.
	Get(addr ir.Address) (Record, error)

	// Insert writes a new record. Returns ErrAddressInUse if the address
	// already holds a record; the existing record is left untouched.
	Insert(rec Record) error

	// Update overwrites an existing record of the same kind.
	// Returns ErrNotFound if nothing is stored at the address.
	Update(rec Record) error

	// AppendEvent assigns the next sequence number and the content-addressed
	// ID to ev and appends it to the event log.
	AppendEvent(ev *ir.Event) error
}

// Backend is a transactional record store.
type Backend interface {
	// Update runs fn in a read-write transaction. All writes commit together
	// if fn returns nil and are discarded otherwise. fn may be called more
	// than once; it must not have side effects outside txn.
	Update(ctx context.Context, fn func(Txn) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Txn) error) error

	// ReadEvents returns up to limit events with seq > after, in seq order.
	// A limit <= 0 returns every remaining event.
	ReadEvents(ctx context.Context, after int64, limit int) ([]ir.Event, error)

	// Close releases the backend.
	Close() error
}

// Get loads and decodes the record of the given kind at addr.
func Get[T any](txn Txn, kind ir.Kind, addr ir.Address) (T, error) {
	var v T
	rec, err := txn.Get(addr)
	if err != nil {
		return v, err
	}
	if rec.Kind != kind {
		return v, fmt.Errorf("%w: %s holds %s, want %s", ErrKindMismatch, addr.Short(), rec.Kind, kind)
	}
	if err := json.Unmarshal(rec.Body, &v); err != nil {
		return v, fmt.Errorf("decode %s %s: %w", kind, addr.Short(), err)
	}
	return v, nil
}

// Insert encodes v and inserts it at addr with create-only semantics.
func Insert(txn Txn, kind ir.Kind, addr ir.Address, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	return txn.Insert(Record{Address: addr, Kind: kind, Body: body})
}

// Put encodes v and overwrites the existing record at addr.
func Put(txn Txn, kind ir.Kind, addr ir.Address, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	return txn.Update(Record{Address: addr, Kind: kind, Body: body})
}

// Exists reports whether any record is stored at addr.
func Exists(txn Txn, addr ir.Address) (bool, error) {
	_, err := txn.Get(addr)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
