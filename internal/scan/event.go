// Package scan defines gate scan events and the sources that produce them.
package scan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/turnstile/internal/ident"
)

// ErrMalformedEvent is returned when a scan record cannot be decoded or is
// missing a required field.
var ErrMalformedEvent = errors.New("malformed scan event")

// Direction is the way a ticket passes through a gate.
type Direction string

const (
	Entry Direction = "entry"
	Exit  Direction = "exit"
)

// ParseDirection parses the scan_type wire value.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(ident.Normalize(s))) {
	case Entry:
		return Entry, nil
	case Exit:
		return Exit, nil
	default:
		return "", fmt.Errorf("%w: scan_type %q", ErrMalformedEvent, s)
	}
}

// Event is a single scan of one ticket at one gate.
type Event struct {
	TicketID  string
	Gate      string
	At        time.Time
	Direction Direction
}

// Normalized returns a copy with identifiers normalized and the timestamp in UTC.
func (e Event) Normalized() Event {
	e.TicketID = ident.Normalize(e.TicketID)
	e.Gate = ident.Normalize(e.Gate)
	e.At = e.At.UTC()
	return e
}

// Validate reports whether the event carries every required field.
func (e Event) Validate() error {
	switch {
	case e.TicketID == "":
		return fmt.Errorf("%w: missing ticket_id", ErrMalformedEvent)
	case e.Gate == "":
		return fmt.Errorf("%w: missing gate", ErrMalformedEvent)
	case e.At.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrMalformedEvent)
	case e.Direction != Entry && e.Direction != Exit:
		return fmt.Errorf("%w: invalid direction %q", ErrMalformedEvent, e.Direction)
	}
	return nil
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s@%s gate=%s", e.TicketID, e.Direction, e.At.Format(time.RFC3339), e.Gate)
}
