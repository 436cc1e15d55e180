package ticket

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column names accepted for each field. The second form matches the
// exports produced by the box office (user_id, ticket_type).
var (
	idColumns       = []string{"ticket_id", "id"}
	ownerColumns    = []string{"owner_id", "user_id"}
	categoryColumns = []string{"category", "ticket_type"}
)

// ReadCSV parses a ticket list with a header row.
// Columns other than id, owner and category are ignored.
func ReadCSV(r io.Reader) ([]Ticket, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read ticket csv: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read ticket csv header: %w", err)
	}

	idCol := columnIndex(header, idColumns)
	ownerCol := columnIndex(header, ownerColumns)
	catCol := columnIndex(header, categoryColumns)
	if idCol < 0 || catCol < 0 {
		return nil, fmt.Errorf("read ticket csv: header must name a ticket id and a category column, got %v", header)
	}

	var tickets []Ticket
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ticket csv: %w", err)
		}

		line, _ := cr.FieldPos(0)
		cat, err := ParseCategory(rec[catCol])
		if err != nil {
			return nil, fmt.Errorf("read ticket csv line %d: %w", line, err)
		}

		t := Ticket{ID: rec[idCol], Category: cat}
		if ownerCol >= 0 {
			t.OwnerID = rec[ownerCol]
		}
		tickets = append(tickets, t)
	}

	return tickets, nil
}

// LoadCSVFile reads a ticket list from path and builds a directory from it.
func LoadCSVFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ticket file: %w", err)
	}
	defer f.Close()

	tickets, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return NewDirectory(tickets)
}

func columnIndex(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}
