// Package engine applies ledger operations.
//
// The Engine dispatches the seven mutating operations (CreateState,
// CreateUser, CreateVideo, CreateComment, Approve, Disapprove, LikeVideo)
// and the read operations over a store.Backend.
//
// Operation flow:
//  1. Derive the target address from the operation's inputs (package ir).
//  2. Load or initialise the records involved.
//  3. Run the invariant checks in the operation's fixed order.
//  4. Write the mutation and append exactly one event.
//  5. Commit, then hand the event to the Emitter.
//
// Steps 1-4 run inside one backend transaction. A failed check returns a
// *LedgerError and aborts the transaction, so rejected operations never
// mutate state and never emit. Under the Badger backend the transaction may
// be re-executed after a conflict; every check then runs again against fresh
// state.
//
// Error handling:
// Rule violations are *LedgerError values with a Code and a Kind. Use
// IsKind, CodeOf or errors.Is against the Err* sentinels. Any other error is
// an infrastructure failure wrapped with the operation name.
package engine
