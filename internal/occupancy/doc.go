// Package occupancy implements the occupancy ledger: the authoritative set of
// tickets currently inside the venue and the per-gate and per-category
// counters derived from it.
//
// The ledger does not decide admission. Callers decide whether an entry or
// exit is valid and the ledger applies it, refusing transitions that would
// break its invariants:
//   - Total equals the number of tickets whose state is inside.
//   - The sum of ByGate and the sum of ByCategory both equal Total.
//   - No counter is ever negative.
//
// Membership states are created on a ticket's first entry and never removed,
// so the last exit time survives for re-entry checks.
//
// A Ledger is not safe for concurrent mutation; the engine serializes access.
package occupancy
