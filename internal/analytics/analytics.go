// Package analytics counts scan traffic independently of occupancy state.
//
// Where the ledger tracks who is inside, the tracker counts what happened:
// scans per gate, entry attempts per category and a sliding window of the
// most recent scans for activity feeds.
package analytics

import (
	"sort"

	"github.com/roach88/turnstile/internal/scan"
	"github.com/roach88/turnstile/internal/ticket"
)

// DefaultRecentWindow is the number of scans kept in the activity window.
const DefaultRecentWindow = 100

// GateCount pairs a gate with a scan count.
type GateCount struct {
	Gate  string `json:"gate"`
	Scans int    `json:"scans"`
}

// Report is a copy of the tracker's counters.
type Report struct {
	ScansPerGate      map[string]int          `json:"scans_per_gate"`
	EntriesByCategory map[ticket.Category]int `json:"entries_by_category"`
	Recent            []scan.Event            `json:"-"`
	RecentEntryCount  int                     `json:"recent_entry_count"`
}

// Tracker accumulates scan analytics. It is not safe for concurrent use.
type Tracker struct {
	scansPerGate      map[string]int
	entriesByCategory map[ticket.Category]int

	// recent is a ring buffer; next is the slot the next scan overwrites.
	recent []scan.Event
	next   int
	full   bool
}

// NewTracker keeps the last window scans. A non-positive window uses
// DefaultRecentWindow.
func NewTracker(window int) *Tracker {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	return &Tracker{
		scansPerGate:      make(map[string]int),
		entriesByCategory: make(map[ticket.Category]int),
		recent:            make([]scan.Event, window),
	}
}

// Observe counts one scan. Every entry attempt is counted, including
// duplicates and rejections.
func (t *Tracker) Observe(ev scan.Event, cat ticket.Category) {
	t.scansPerGate[ev.Gate]++
	if ev.Direction == scan.Entry {
		t.entriesByCategory[cat]++
	}

	t.recent[t.next] = ev
	t.next = (t.next + 1) % len(t.recent)
	if t.next == 0 {
		t.full = true
	}
}

// Recent returns the window contents, oldest first.
func (t *Tracker) Recent() []scan.Event {
	if !t.full {
		out := make([]scan.Event, t.next)
		copy(out, t.recent[:t.next])
		return out
	}
	out := make([]scan.Event, 0, len(t.recent))
	out = append(out, t.recent[t.next:]...)
	out = append(out, t.recent[:t.next]...)
	return out
}

// BusiestGates returns up to n gates by scan count, highest first. Ties
// are broken by gate name. A non-positive n returns every gate.
func (t *Tracker) BusiestGates(n int) []GateCount {
	gates := make([]GateCount, 0, len(t.scansPerGate))
	for g, c := range t.scansPerGate {
		gates = append(gates, GateCount{Gate: g, Scans: c})
	}
	sort.Slice(gates, func(i, j int) bool {
		if gates[i].Scans != gates[j].Scans {
			return gates[i].Scans > gates[j].Scans
		}
		return gates[i].Gate < gates[j].Gate
	})
	if n > 0 && len(gates) > n {
		gates = gates[:n]
	}
	return gates
}

// Report copies the current counters.
func (t *Tracker) Report() Report {
	r := Report{
		ScansPerGate:      make(map[string]int, len(t.scansPerGate)),
		EntriesByCategory: make(map[ticket.Category]int, len(t.entriesByCategory)),
		Recent:            t.Recent(),
	}
	for k, v := range t.scansPerGate {
		r.ScansPerGate[k] = v
	}
	for k, v := range t.entriesByCategory {
		r.EntriesByCategory[k] = v
	}
	for _, ev := range r.Recent {
		if ev.Direction == scan.Entry {
			r.RecentEntryCount++
		}
	}
	return r
}
