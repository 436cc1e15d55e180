package scan

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// timestampLayouts are tried in order. Zone-less forms are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// record is the JSON shape emitted by gate scanners.
type record struct {
	TicketID  string `json:"ticket_id"`
	Gate      string `json:"gate"`
	Timestamp string `json:"timestamp"`
	ScanType  string `json:"scan_type"`
}

// ParseTimestamp parses an ISO-8601 timestamp as sent by scanners.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q is not ISO-8601", ErrMalformedEvent, s)
}

// FormatTimestamp renders t the way Encode does.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Decode parses a single JSON scan record.
func Decode(data []byte) (Event, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	at, err := ParseTimestamp(rec.Timestamp)
	if err != nil {
		return Event{}, err
	}
	dir, err := ParseDirection(rec.ScanType)
	if err != nil {
		return Event{}, err
	}

	ev := Event{
		TicketID:  rec.TicketID,
		Gate:      rec.Gate,
		At:        at,
		Direction: dir,
	}.Normalized()

	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Encode renders an event as a JSON scan record.
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(record{
		TicketID:  ev.TicketID,
		Gate:      ev.Gate,
		Timestamp: FormatTimestamp(ev.At),
		ScanType:  string(ev.Direction),
	})
}
