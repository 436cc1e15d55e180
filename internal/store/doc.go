// Package store provides SQLite-backed storage for the venue's box-office
// and scanner data.
//
// The store holds three tables:
//   - owners: ticket holders
//   - tickets: one row per ticket, with its category
//   - scans: the gate scan log, append-only
//
// Scans are read back ordered by scan_time then id, which is arrival order
// for scans sharing a timestamp. The engine consumes them through
// Store.Scans, which implements scan.Source.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
