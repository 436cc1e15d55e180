// Package engine ties the ticket directory, occupancy ledger, anomaly
// detector and admission controller into a single stream processor.
//
// ARCHITECTURE:
//
// Single-Writer Processing:
// Scan order is the only source of truth for duplicate, re-entry and
// capacity decisions, so events are applied strictly one at a time:
// - ProcessEvent holds the write lock for the whole of one event
// - Run drains the FIFO queue one event at a time (no fan-out)
// - Read-only queries (CurrentSnapshot, AnomalyLog, ...) take the read lock
//
// Event Processing Flow:
// 1. Normalize and validate the scan
// 2. Refuse scans older than the last applied scan (OUT_OF_ORDER_EVENT)
// 3. Resolve the ticket in the directory (UNKNOWN_TICKET)
// 4. Anomaly detector inspects the scan against current membership
// 5. Admission controller decides and mutates the ledger
// 6. Analytics observe the scan; the scan is appended to the journal
//
// A refused scan changes nothing: no sequence number, no journal entry,
// no anomaly record.
//
// Anomalies and capacity rejections are results, not errors. Errors are
// reserved for malformed input and internal consistency failures.
//
// Historical queries replay the journal through a fresh processor with the
// same settings, so each OccupancyAsOf call costs O(n) in journal length.
package engine
