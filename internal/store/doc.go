// Package store provides durable storage for reel ledger records and events.
//
// Records live at derived addresses (see ir/address.go) and are written with
// create-only semantics: Insert fails with ErrAddressInUse when the address
// is occupied, and nothing is ever deleted. Every committed operation also
// appends one event to an ordered event log inside the same transaction.
//
// # Backends
//
//   - Store: SQLite (mattn/go-sqlite3). Single connection and immediate
//     transactions, so transactions are applied one at a time (single writer).
//   - BadgerStore: Badger v4. Optimistic transactions; Update re-runs the whole
//     callback on ErrConflict so every read is re-done and every check is
//     re-validated against the latest committed state. Event seqs come from a
//     badger.Sequence and may have gaps.
//
// A closed BadgerStore fails every call with an error wrapping ErrClosed.
//
// # Atomicity
//
// Backend.Update runs a callback inside one transaction. Returning an error
// from the callback discards every write it made, including the event.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Event IDs are content-addressed via ir.Event.ComputeID.
package store
