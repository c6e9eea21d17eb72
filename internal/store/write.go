package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/reel/internal/ir"
)

// sqliteTxn implements Txn over a database/sql transaction.
type sqliteTxn struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
}

func (t *sqliteTxn) Get(addr ir.Address) (Record, error) {
	rec := Record{Address: addr}
	var body string
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT kind, body FROM records WHERE address = ?
	`, string(addr)).Scan(&rec.Kind, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record %s: %w", addr.Short(), err)
	}
	rec.Body = []byte(body)
	return rec, nil
}

// Insert uses ON CONFLICT(address) DO NOTHING and reports a conflict as
// ErrAddressInUse, so an existing record is never overwritten.
func (t *sqliteTxn) Insert(rec Record) error {
	if t.readOnly {
		return ErrReadOnly
	}
	result, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO records (address, kind, body)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`, string(rec.Address), string(rec.Kind), string(rec.Body))
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.Address.Short(), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert record %s: rows affected: %w", rec.Address.Short(), err)
	}
	if rowsAffected == 0 {
		return ErrAddressInUse
	}
	return nil
}

func (t *sqliteTxn) Update(rec Record) error {
	if t.readOnly {
		return ErrReadOnly
	}
	result, err := t.tx.ExecContext(t.ctx, `
		UPDATE records SET body = ?, version = version + 1
		WHERE address = ? AND kind = ?
	`, string(rec.Body), string(rec.Address), string(rec.Kind))
	if err != nil {
		return fmt.Errorf("update record %s: %w", rec.Address.Short(), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record %s: rows affected: %w", rec.Address.Short(), err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendEvent takes seq = MAX(seq)+1. Safe because the single connection
// serializes transactions.
func (t *sqliteTxn) AppendEvent(ev *ir.Event) error {
	if t.readOnly {
		return ErrReadOnly
	}
	var last int64
	if err := t.tx.QueryRowContext(t.ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&last); err != nil {
		return fmt.Errorf("append event: last seq: %w", err)
	}

	row, err := stampEvent(ev, last+1)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO events (seq, id, flow_token, type, caller, timestamp, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		row.Seq,
		row.ID,
		row.FlowToken,
		string(row.Type),
		string(row.Caller),
		row.Timestamp,
		string(row.Data),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}
