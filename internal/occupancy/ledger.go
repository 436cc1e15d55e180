package occupancy

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/turnstile/internal/ticket"
)

var (
	// ErrAlreadyInside is returned by AdmitEntry for a ticket already inside.
	ErrAlreadyInside = errors.New("ticket already inside")

	// ErrNotInside is returned by AdmitExit for a ticket that is not inside.
	ErrNotInside = errors.New("ticket not inside")
)

// MembershipState is the ledger's view of one ticket.
type MembershipState struct {
	TicketID string
	Category ticket.Category
	Inside   bool

	// Gate is the gate last used, for entry or exit.
	Gate string

	// EntryGate is the gate the current (or most recent) visit counts against
	// in the per-gate breakdown. An exit decrements this gate even when the
	// ticket leaves through a different one.
	EntryGate string

	LastEntry time.Time
	LastExit  time.Time
	HasExited bool
}

// Snapshot is a point-in-time view of the ledger counters.
// Gates and categories with no one inside are omitted.
type Snapshot struct {
	Total        int                     `json:"total"`
	ByGate       map[string]int          `json:"by_gate"`
	ByCategory   map[ticket.Category]int `json:"by_category"`
	TotalEntries int                     `json:"total_entries"`
	TotalExits   int                     `json:"total_exits"`
}

// Check verifies the snapshot's internal sums.
func (s Snapshot) Check() error {
	gateSum := 0
	for gate, n := range s.ByGate {
		if n < 0 {
			return fmt.Errorf("gate %s count is negative: %d", gate, n)
		}
		gateSum += n
	}
	catSum := 0
	for cat, n := range s.ByCategory {
		if n < 0 {
			return fmt.Errorf("category %s count is negative: %d", cat, n)
		}
		catSum += n
	}
	if gateSum != s.Total || catSum != s.Total {
		return fmt.Errorf("counter mismatch: total=%d by_gate=%d by_category=%d", s.Total, gateSum, catSum)
	}
	return nil
}

// Ledger tracks membership and occupancy counters.
type Ledger struct {
	members    map[string]*MembershipState
	total      int
	byGate     map[string]int
	byCategory map[ticket.Category]int
	entries    int
	exits      int
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		members:    make(map[string]*MembershipState),
		byGate:     make(map[string]int),
		byCategory: make(map[ticket.Category]int),
	}
}

// AdmitEntry marks t inside through gate and increments the counters.
// The error wraps ErrAlreadyInside if t is already inside; the ledger is
// unchanged in that case.
func (l *Ledger) AdmitEntry(t ticket.Ticket, gate string, at time.Time) error {
	st, ok := l.members[t.ID]
	if !ok {
		st = &MembershipState{TicketID: t.ID, Category: t.Category}
		l.members[t.ID] = st
	}
	if st.Inside {
		return fmt.Errorf("%w: %s (entered at gate %s)", ErrAlreadyInside, t.ID, st.EntryGate)
	}

	st.Inside = true
	st.Gate = gate
	st.EntryGate = gate
	st.LastEntry = at

	l.total++
	l.byGate[gate]++
	l.byCategory[st.Category]++
	l.entries++
	return nil
}

// AdmitExit marks ticketID outside, decrements the counters and records the
// exit time. The error wraps ErrNotInside if the ticket is not inside.
func (l *Ledger) AdmitExit(ticketID, gate string, at time.Time) error {
	st, ok := l.members[ticketID]
	if !ok || !st.Inside {
		return fmt.Errorf("%w: %s", ErrNotInside, ticketID)
	}

	st.Inside = false
	st.Gate = gate
	st.LastExit = at
	st.HasExited = true

	l.total--
	decrement(l.byGate, st.EntryGate)
	decrement(l.byCategory, st.Category)
	l.exits++
	return nil
}

func decrement[K comparable](m map[K]int, k K) {
	m[k]--
	if m[k] <= 0 {
		delete(m, k)
	}
}

// Inside reports whether ticketID is currently inside.
func (l *Ledger) Inside(ticketID string) bool {
	st, ok := l.members[ticketID]
	return ok && st.Inside
}

// LastExit returns the time of the ticket's most recent exit, if any.
func (l *Ledger) LastExit(ticketID string) (time.Time, bool) {
	st, ok := l.members[ticketID]
	if !ok || !st.HasExited {
		return time.Time{}, false
	}
	return st.LastExit, true
}

// State returns a copy of the ticket's membership state.
func (l *Ledger) State(ticketID string) (MembershipState, bool) {
	st, ok := l.members[ticketID]
	if !ok {
		return MembershipState{}, false
	}
	return *st, true
}

// Total returns the number of tickets inside.
func (l *Ledger) Total() int {
	return l.total
}

// InsideTickets returns the sorted ids of tickets currently inside.
func (l *Ledger) InsideTickets() []string {
	ids := make([]string, 0, l.total)
	for id, st := range l.members {
		if st.Inside {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Snapshot copies the current counters. Cost is proportional to the number
// of occupied gates and categories, not to the number of tickets.
func (l *Ledger) Snapshot() Snapshot {
	s := Snapshot{
		Total:        l.total,
		ByGate:       make(map[string]int, len(l.byGate)),
		ByCategory:   make(map[ticket.Category]int, len(l.byCategory)),
		TotalEntries: l.entries,
		TotalExits:   l.exits,
	}
	for k, v := range l.byGate {
		s.ByGate[k] = v
	}
	for k, v := range l.byCategory {
		s.ByCategory[k] = v
	}
	return s
}

// Verify recounts membership and compares it with the incremental counters.
// It scans every membership state and is meant for tests and diagnostics.
func (l *Ledger) Verify() error {
	inside := 0
	for _, st := range l.members {
		if st.Inside {
			inside++
		}
	}
	if inside != l.total {
		return fmt.Errorf("total %d does not match %d tickets inside", l.total, inside)
	}
	return l.Snapshot().Check()
}
