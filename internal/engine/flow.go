package engine

import (
	"github.com/google/uuid"
)

// FlowTokenGenerator generates correlation tokens, one per operation request.
// Implemented by UUIDv7Generator (production) and testutil.SequenceFlowGenerator
// (tests).
type FlowTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 flow tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so tokens sort by
// creation time in logs and event streams.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
