package store

import (
	"context"
	"fmt"

	"github.com/roach88/reel/internal/ir"
)

// ReadEvents returns events with seq > after in ascending seq order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadEvents(ctx context.Context, after int64, limit int) ([]ir.Event, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, flow_token, type, caller, timestamp, data
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		var (
			row  eventRow
			data string
		)
		if err := rows.Scan(&row.Seq, &row.ID, &row.FlowToken, &row.Type, &row.Caller, &row.Timestamp, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		row.Data = []byte(data)
		ev, err := row.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
