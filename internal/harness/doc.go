// Package harness runs venue scenarios against the occupancy engine.
//
// A scenario lists the tickets on sale, a capacity, an ordered scan flow and
// assertions on the final state. Each step may carry its own expectation.
//
// # Scenario Format
//
//	name: reject_at_capacity
//	description: "A standard ticket is turned away at capacity"
//	date: 2025-09-30
//	capacity: 1
//	tickets:
//	  - { id: T002, owner: U456, category: Standard }
//	flow:
//	  - { ticket: T002, gate: A, at: "10:00", type: entry, expect: { decision: admitted } }
//	assertions:
//	  - type: occupancy
//	    total: 1
//	  - type: rejected
//	    tickets: [T003]
//
// A step's at is either a "15:04" clock time on the scenario date or a full
// timestamp.
//
// # Assertion Types
//
//   - occupancy: total, by_gate and by_category of the final snapshot
//   - as_of: the same fields, for the snapshot at a past instant
//   - anomalies: count and flagged tickets for one kind (or all kinds)
//   - rejected: the ordered rejected entries
//   - inside: the tickets inside at the end
//   - admission: times_at_capacity, vip_override_count, would_be_occupancy
//
// # Deterministic Testing
//
// Runs use a fixed run id and discard engine logs, so the trace of a
// scenario is identical across runs and can be compared to a golden file.
package harness
