// Package ir provides the record model for the reel ledger.
//
// This package contains type definitions and pure functions only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Record addresses are derived, never chosen by callers (see address.go)
//   - Identities are opaque and only ever compared for equality
//   - Counters use fixed-width integers matching their persisted layout
//   - Content-addressed IDs are computed from canonical JSON (RFC 8785)
//   - All JSON tags use snake_case
package ir
