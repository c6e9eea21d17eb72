package testutil

import (
	"fmt"
	"sync"
)

// SequenceFlowGenerator generates predictable flow tokens: "<prefix>-1",
// "<prefix>-2", ...
//
// The same scenario run with a fresh generator produces byte-identical
// event logs, which golden comparisons rely on.
//
// Thread-safety: SequenceFlowGenerator is safe for concurrent use.
type SequenceFlowGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceFlowGenerator creates a generator. An empty prefix uses "flow".
func NewSequenceFlowGenerator(prefix string) *SequenceFlowGenerator {
	if prefix == "" {
		prefix = "flow"
	}
	return &SequenceFlowGenerator{prefix: prefix}
}

// Generate returns the next token.
//
// Implements engine.FlowTokenGenerator interface.
func (g *SequenceFlowGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
