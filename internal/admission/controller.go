// Package admission decides entry attempts against the venue's capacity.
//
// Per ticket, the controller drives Outside -> Inside on an admitted entry
// and Inside -> Outside on an exit. Only entries for tickets not already
// inside are subject to the capacity rule:
//   - below capacity, anyone is admitted;
//   - at or above capacity, Priority tickets are admitted as an override and
//     everyone else is rejected.
//
// Exits always succeed. Alongside the real ledger the controller keeps an
// unconstrained "would-be" occupancy that applies every scan regardless of
// capacity, for comparison.
package admission

import (
	"fmt"
	"time"

	"github.com/roach88/turnstile/internal/scan"
	"github.com/roach88/turnstile/internal/ticket"
)

// Unlimited disables the capacity ceiling.
const Unlimited = 0

// Decision is the controller's verdict for one scan.
type Decision string

const (
	Admitted         Decision = "admitted"
	AdmittedOverride Decision = "admitted_override"
	Rejected         Decision = "rejected"

	// AlreadyInside is an idempotent admit for a ticket that is already in.
	AlreadyInside Decision = "already_inside"

	Exited Decision = "exited"

	// ExitIgnored is an exit for a ticket that was not inside.
	ExitIgnored Decision = "exit_ignored"
)

// Outcome is the result of deciding one scan.
type Outcome struct {
	Seq       int64          `json:"seq"`
	TicketID  string         `json:"ticket_id"`
	Gate      string         `json:"gate"`
	Direction scan.Direction `json:"direction"`
	Decision  Decision       `json:"decision"`

	// Occupancy is the ledger total after the scan was applied.
	Occupancy int `json:"occupancy"`

	// NewSaturation is set on the scan that opened a saturation episode.
	NewSaturation bool `json:"new_saturation,omitempty"`
}

// Inside reports whether the ticket is inside after this outcome.
func (o Outcome) Inside() bool {
	switch o.Decision {
	case Admitted, AdmittedOverride, AlreadyInside:
		return true
	}
	return false
}

// Stats are the controller's running counters. They only grow within a run,
// except WouldBeOccupancy which follows the unconstrained stream.
type Stats struct {
	Capacity         int      `json:"capacity"`
	TimesAtCapacity  int      `json:"times_at_capacity"`
	RejectedEntries  []string `json:"rejected_entries"`
	OverrideCount    int      `json:"vip_override_count"`
	WouldBeOccupancy int      `json:"would_be_occupancy"`
}

// Ledger is the occupancy state the controller mutates.
type Ledger interface {
	Total() int
	Inside(ticketID string) bool
	AdmitEntry(t ticket.Ticket, gate string, at time.Time) error
	AdmitExit(ticketID, gate string, at time.Time) error
}

// Controller applies the capacity rule to a ledger.
type Controller struct {
	capacity int
	ledger   Ledger

	theoretical map[string]struct{}

	// saturated is true from the first entry attempt made at or above
	// capacity until occupancy drops below capacity again.
	saturated bool

	timesAtCapacity int
	rejected        []string
	overrides       int
}

// NewController returns a controller enforcing capacity on l.
// A capacity of Unlimited (or less) admits everyone.
func NewController(l Ledger, capacity int) *Controller {
	if capacity < 0 {
		capacity = Unlimited
	}
	return &Controller{
		capacity:    capacity,
		ledger:      l,
		theoretical: make(map[string]struct{}),
	}
}

// Capacity returns the configured ceiling, or Unlimited.
func (c *Controller) Capacity() int {
	return c.capacity
}

// Decide applies ev for t. ev.TicketID must equal t.ID.
// An error means the ledger refused a transition the controller believed
// valid; nothing was applied in that case.
func (c *Controller) Decide(t ticket.Ticket, ev scan.Event, seq int64) (Outcome, error) {
	out := Outcome{
		Seq:       seq,
		TicketID:  t.ID,
		Gate:      ev.Gate,
		Direction: ev.Direction,
	}

	var err error
	switch ev.Direction {
	case scan.Entry:
		out.Decision, out.NewSaturation, err = c.enter(t, ev)
		if err == nil {
			c.theoretical[t.ID] = struct{}{}
		}
	case scan.Exit:
		out.Decision, err = c.exit(ev)
		if err == nil {
			delete(c.theoretical, t.ID)
		}
	default:
		err = fmt.Errorf("unknown direction %q", ev.Direction)
	}
	if err != nil {
		return Outcome{}, err
	}

	out.Occupancy = c.ledger.Total()
	return out, nil
}

func (c *Controller) enter(t ticket.Ticket, ev scan.Event) (Decision, bool, error) {
	if c.ledger.Inside(t.ID) {
		return AlreadyInside, false, nil
	}

	if !c.atCapacity() {
		if err := c.ledger.AdmitEntry(t, ev.Gate, ev.At); err != nil {
			return "", false, err
		}
		return Admitted, false, nil
	}

	opened := c.markSaturated()

	if t.Category == ticket.Priority {
		if err := c.ledger.AdmitEntry(t, ev.Gate, ev.At); err != nil {
			return "", false, err
		}
		c.overrides++
		return AdmittedOverride, opened, nil
	}

	c.rejected = append(c.rejected, t.ID)
	return Rejected, opened, nil
}

func (c *Controller) exit(ev scan.Event) (Decision, error) {
	if !c.ledger.Inside(ev.TicketID) {
		return ExitIgnored, nil
	}
	if err := c.ledger.AdmitExit(ev.TicketID, ev.Gate, ev.At); err != nil {
		return "", err
	}
	if !c.atCapacity() {
		c.saturated = false
	}
	return Exited, nil
}

func (c *Controller) atCapacity() bool {
	return c.capacity != Unlimited && c.ledger.Total() >= c.capacity
}

// markSaturated counts a new saturation episode the first time it is seen.
func (c *Controller) markSaturated() bool {
	if c.saturated {
		return false
	}
	c.saturated = true
	c.timesAtCapacity++
	return true
}

// Saturated reports whether a saturation episode is in progress.
func (c *Controller) Saturated() bool {
	return c.saturated
}

// WouldBeOccupancy is the occupancy without any capacity limit.
func (c *Controller) WouldBeOccupancy() int {
	return len(c.theoretical)
}

// Stats returns a copy of the running counters.
func (c *Controller) Stats() Stats {
	rejected := make([]string, len(c.rejected))
	copy(rejected, c.rejected)
	return Stats{
		Capacity:         c.capacity,
		TimesAtCapacity:  c.timesAtCapacity,
		RejectedEntries:  rejected,
		OverrideCount:    c.overrides,
		WouldBeOccupancy: len(c.theoretical),
	}
}
