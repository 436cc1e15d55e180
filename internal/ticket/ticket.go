package ticket

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/turnstile/internal/ident"
)

// ErrUnknownTicket is returned when a ticket id was never registered.
var ErrUnknownTicket = errors.New("unknown ticket")

// Category classifies a ticket for admission and reporting.
type Category string

const (
	// Priority tickets may be admitted past the capacity ceiling.
	Priority Category = "Priority"
	// Standard tickets are subject to the capacity ceiling.
	Standard Category = "Standard"
)

// ParseCategory maps the labels used by ticket exports onto a Category.
// "VIP" and "General" are accepted as aliases. Matching ignores case.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(ident.Normalize(s)) {
	case "priority", "vip":
		return Priority, nil
	case "standard", "general":
		return Standard, nil
	default:
		return "", fmt.Errorf("invalid ticket category %q", s)
	}
}

// Ticket is an immutable directory entry.
type Ticket struct {
	ID       string
	OwnerID  string
	Category Category
}

// Directory maps ticket ids to tickets.
type Directory struct {
	tickets map[string]Ticket
	owners  map[string][]string
}

// NewDirectory builds a directory from a ticket list.
// Ids are normalized; empty or repeated ids and unknown categories are rejected.
func NewDirectory(tickets []Ticket) (*Directory, error) {
	d := &Directory{
		tickets: make(map[string]Ticket, len(tickets)),
		owners:  make(map[string][]string),
	}

	for i, t := range tickets {
		t.ID = ident.Normalize(t.ID)
		t.OwnerID = ident.Normalize(t.OwnerID)

		if t.ID == "" {
			return nil, fmt.Errorf("ticket %d: empty ticket id", i)
		}
		if t.Category != Priority && t.Category != Standard {
			return nil, fmt.Errorf("ticket %s: invalid category %q", t.ID, t.Category)
		}
		if _, exists := d.tickets[t.ID]; exists {
			return nil, fmt.Errorf("ticket %s: registered twice", t.ID)
		}

		d.tickets[t.ID] = t
		if t.OwnerID != "" {
			d.owners[t.OwnerID] = append(d.owners[t.OwnerID], t.ID)
		}
	}

	for _, ids := range d.owners {
		sort.Strings(ids)
	}

	return d, nil
}

// Lookup returns the ticket registered under id.
// The error wraps ErrUnknownTicket if id was never registered.
func (d *Directory) Lookup(id string) (Ticket, error) {
	t, ok := d.tickets[ident.Normalize(id)]
	if !ok {
		return Ticket{}, fmt.Errorf("%w: %s", ErrUnknownTicket, id)
	}
	return t, nil
}

// Category returns the category of the ticket registered under id.
func (d *Directory) Category(id string) (Category, error) {
	t, err := d.Lookup(id)
	if err != nil {
		return "", err
	}
	return t.Category, nil
}

// TicketsForOwner returns the sorted ticket ids held by an owner.
// One owner may hold several tickets; each is tracked independently.
func (d *Directory) TicketsForOwner(ownerID string) []string {
	ids := d.owners[ident.Normalize(ownerID)]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Len returns the number of registered tickets.
func (d *Directory) Len() int {
	return len(d.tickets)
}

// Tickets returns all tickets sorted by id.
func (d *Directory) Tickets() []Ticket {
	out := make([]Ticket, 0, len(d.tickets))
	for _, t := range d.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
