// Package anomaly classifies scans that indicate misuse or faulty scanners.
//
// Detection is observational: the detector classifies an event against the
// ledger's membership before the event is applied, records it when something
// looks wrong, and never blocks the event. Records are append-only.
package anomaly

import (
	"sort"
	"time"

	"github.com/roach88/turnstile/internal/scan"
)

// DefaultReentryWindow is how soon after an exit a re-entry counts as rapid.
const DefaultReentryWindow = 5 * time.Minute

// Kind identifies an anomaly class.
type Kind string

const (
	// DuplicateEntry is an entry scan for a ticket already inside.
	DuplicateEntry Kind = "duplicate_entry"
	// ExitWithoutEntry is an exit scan for a ticket that is not inside.
	ExitWithoutEntry Kind = "exit_without_entry"
	// RapidReentry is an entry within the re-entry window of the ticket's last exit.
	RapidReentry Kind = "rapid_reentry"
)

// Kinds lists every anomaly kind in reporting order.
var Kinds = []Kind{DuplicateEntry, ExitWithoutEntry, RapidReentry}

// Record is a single detected anomaly.
type Record struct {
	Seq      int64     `json:"seq"`
	TicketID string    `json:"ticket_id"`
	Kind     Kind      `json:"kind"`
	Gate     string    `json:"gate"`
	At       time.Time `json:"at"`

	// SinceExit is set for RapidReentry.
	SinceExit time.Duration `json:"since_exit,omitempty"`
}

// Membership is the ledger state the detector reads.
type Membership interface {
	Inside(ticketID string) bool
	LastExit(ticketID string) (time.Time, bool)
}

// Detector classifies events and keeps the anomaly log.
type Detector struct {
	window time.Duration
	log    []Record
	counts map[Kind]int
}

// NewDetector returns a detector using the given re-entry window.
// A non-positive window falls back to DefaultReentryWindow.
func NewDetector(window time.Duration) *Detector {
	if window <= 0 {
		window = DefaultReentryWindow
	}
	return &Detector{
		window: window,
		counts: make(map[Kind]int),
	}
}

// Window returns the configured re-entry window.
func (d *Detector) Window() time.Duration {
	return d.window
}

// Classify reports the anomaly ev would raise against m, which must reflect
// the state before ev is applied. It does not touch the log.
//
// The duplicate check runs before the re-entry check: a ticket that is
// already inside cannot be re-entering.
func (d *Detector) Classify(m Membership, ev scan.Event, seq int64) *Record {
	inside := m.Inside(ev.TicketID)

	var rec *Record
	switch ev.Direction {
	case scan.Entry:
		if inside {
			rec = &Record{Kind: DuplicateEntry}
			break
		}
		if lastExit, ok := m.LastExit(ev.TicketID); ok {
			if since := ev.At.Sub(lastExit); since <= d.window {
				rec = &Record{Kind: RapidReentry, SinceExit: since}
			}
		}
	case scan.Exit:
		if !inside {
			rec = &Record{Kind: ExitWithoutEntry}
		}
	}

	if rec == nil {
		return nil
	}

	rec.Seq = seq
	rec.TicketID = ev.TicketID
	rec.Gate = ev.Gate
	rec.At = ev.At
	return rec
}

// Append adds rec to the log.
func (d *Detector) Append(rec Record) {
	d.log = append(d.log, rec)
	d.counts[rec.Kind]++
}

// Log returns a copy of all records in detection order.
func (d *Detector) Log() []Record {
	out := make([]Record, len(d.log))
	copy(out, d.log)
	return out
}

// Len returns the number of records.
func (d *Detector) Len() int {
	return len(d.log)
}

// Count returns how many records of kind were detected.
func (d *Detector) Count(kind Kind) int {
	return d.counts[kind]
}

// Tickets returns the sorted distinct ticket ids flagged with kind.
func (d *Detector) Tickets(kind Kind) []string {
	seen := make(map[string]struct{})
	for _, r := range d.log {
		if r.Kind == kind {
			seen[r.TicketID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
