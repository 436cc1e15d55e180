// Package testutil provides the shared venue fixture used across tests: the
// box-office ticket list and the gate scan stream from the 2025-09-30 event.
package testutil

import (
	"testing"
	"time"

	"github.com/roach88/turnstile/internal/scan"
	"github.com/roach88/turnstile/internal/ticket"
)

// EventDay is the date every fixture timestamp falls on.
var EventDay = time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)

// At returns the fixture timestamp for a "15:04" clock time on EventDay.
// Panics on a malformed clock string.
func At(clock string) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		panic("testutil.At: " + err.Error())
	}
	return EventDay.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

// Entry builds an entry scan at a "15:04" clock time.
func Entry(ticketID, gate, clock string) scan.Event {
	return scan.Event{TicketID: ticketID, Gate: gate, At: At(clock), Direction: scan.Entry}
}

// Exit builds an exit scan at a "15:04" clock time.
func Exit(ticketID, gate, clock string) scan.Event {
	return scan.Event{TicketID: ticketID, Gate: gate, At: At(clock), Direction: scan.Exit}
}

// Tickets returns the fixture ticket list. Owner U123 holds two tickets.
func Tickets() []ticket.Ticket {
	return []ticket.Ticket{
		{ID: "T001", OwnerID: "U123", Category: ticket.Priority},
		{ID: "T002", OwnerID: "U456", Category: ticket.Standard},
		{ID: "T003", OwnerID: "U789", Category: ticket.Standard},
		{ID: "T004", OwnerID: "U111", Category: ticket.Standard},
		{ID: "T005", OwnerID: "U222", Category: ticket.Priority},
		{ID: "T006", OwnerID: "U333", Category: ticket.Standard},
		{ID: "T007", OwnerID: "U444", Category: ticket.Standard},
		{ID: "T008", OwnerID: "U123", Category: ticket.Standard},
	}
}

// Directory builds a directory from Tickets.
func Directory(t testing.TB) *ticket.Directory {
	t.Helper()
	d, err := ticket.NewDirectory(Tickets())
	if err != nil {
		t.Fatalf("fixture directory: %v", err)
	}
	return d
}

// Stream returns the fixture scan stream. T003 scans in twice without
// leaving in between.
func Stream() []scan.Event {
	return []scan.Event{
		Entry("T001", "A", "10:00"),
		Entry("T002", "A", "10:01"),
		Entry("T003", "B", "10:02"),
		Entry("T004", "C", "10:03"),
		Entry("T005", "B", "10:05"),
		Exit("T001", "A", "11:00"),
		Entry("T006", "A", "11:05"),
		Exit("T002", "A", "11:10"),
		Entry("T003", "B", "11:15"),
		Entry("T007", "C", "11:20"),
		Entry("T008", "A", "11:25"),
		Exit("T003", "B", "12:00"),
		Exit("T004", "C", "12:05"),
	}
}

// StreamJSONL is Stream in the scanners' JSON-lines wire format.
const StreamJSONL = `{"ticket_id": "T001", "gate": "A", "timestamp": "2025-09-30T10:00:00", "scan_type": "entry"}
{"ticket_id": "T002", "gate": "A", "timestamp": "2025-09-30T10:01:00", "scan_type": "entry"}
{"ticket_id": "T003", "gate": "B", "timestamp": "2025-09-30T10:02:00", "scan_type": "entry"}
{"ticket_id": "T004", "gate": "C", "timestamp": "2025-09-30T10:03:00", "scan_type": "entry"}
{"ticket_id": "T005", "gate": "B", "timestamp": "2025-09-30T10:05:00", "scan_type": "entry"}
{"ticket_id": "T001", "gate": "A", "timestamp": "2025-09-30T11:00:00", "scan_type": "exit"}
{"ticket_id": "T006", "gate": "A", "timestamp": "2025-09-30T11:05:00", "scan_type": "entry"}
{"ticket_id": "T002", "gate": "A", "timestamp": "2025-09-30T11:10:00", "scan_type": "exit"}
{"ticket_id": "T003", "gate": "B", "timestamp": "2025-09-30T11:15:00", "scan_type": "entry"}
{"ticket_id": "T007", "gate": "C", "timestamp": "2025-09-30T11:20:00", "scan_type": "entry"}
{"ticket_id": "T008", "gate": "A", "timestamp": "2025-09-30T11:25:00", "scan_type": "entry"}
{"ticket_id": "T003", "gate": "B", "timestamp": "2025-09-30T12:00:00", "scan_type": "exit"}
{"ticket_id": "T004", "gate": "C", "timestamp": "2025-09-30T12:05:00", "scan_type": "exit"}
`

// TicketsCSV is Tickets in the box-office export format.
const TicketsCSV = `ticket_id,user_id,ticket_type,price
T001,U123,VIP,150.00
T002,U456,General,50.00
T003,U789,General,50.00
T004,U111,General,50.00
T005,U222,VIP,150.00
T006,U333,General,50.00
T007,U444,General,50.00
T008,U123,General,50.00
`
