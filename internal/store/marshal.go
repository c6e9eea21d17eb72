package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/reel/internal/ir"
)

// eventRow is the persisted form of an event. Data holds the payload as
// plain JSON; the type column selects the payload decoder on read.
type eventRow struct {
	Seq       int64           `json:"seq"`
	ID        string          `json:"id"`
	FlowToken string          `json:"flow_token"`
	Type      ir.EventType    `json:"type"`
	Caller    ir.Identity     `json:"caller"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// stampEvent assigns seq and the content-addressed ID to ev and returns its
// persisted form.
func stampEvent(ev *ir.Event, seq int64) (eventRow, error) {
	ev.Seq = seq
	id, err := ev.ComputeID()
	if err != nil {
		return eventRow{}, err
	}
	ev.ID = id

	data, err := json.Marshal(ev.Data)
	if err != nil {
		return eventRow{}, fmt.Errorf("marshal %s payload: %w", ev.Type, err)
	}
	return eventRow{
		Seq:       ev.Seq,
		ID:        ev.ID,
		FlowToken: ev.FlowToken,
		Type:      ev.Type,
		Caller:    ev.Caller,
		Timestamp: ev.Timestamp,
		Data:      data,
	}, nil
}

// toEvent decodes a persisted row back into an event.
func (r eventRow) toEvent() (ir.Event, error) {
	data, err := ir.DecodePayload(r.Type, r.Data)
	if err != nil {
		return ir.Event{}, fmt.Errorf("event %d: %w", r.Seq, err)
	}
	return ir.Event{
		ID:        r.ID,
		Seq:       r.Seq,
		FlowToken: r.FlowToken,
		Type:      r.Type,
		Caller:    r.Caller,
		Timestamp: r.Timestamp,
		Data:      data,
	}, nil
}
