package ticket

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"Priority", Priority, false},
		{"vip", Priority, false},
		{" VIP ", Priority, false},
		{"Standard", Standard, false},
		{"General", Standard, false},
		{"backstage", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectory_Lookup(t *testing.T) {
	d, err := NewDirectory([]Ticket{
		{ID: "T001", OwnerID: "U123", Category: Priority},
		{ID: "T002", OwnerID: "U456", Category: Standard},
	})
	require.NoError(t, err)

	got, err := d.Lookup("T001")
	require.NoError(t, err)
	assert.Equal(t, Ticket{ID: "T001", OwnerID: "U123", Category: Priority}, got)

	cat, err := d.Category(" T002 ")
	require.NoError(t, err)
	assert.Equal(t, Standard, cat)

	_, err = d.Lookup("T999")
	require.ErrorIs(t, err, ErrUnknownTicket)
	assert.Contains(t, err.Error(), "T999")
}

func TestNewDirectory_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		tickets []Ticket
		errText string
	}{
		{
			name:    "empty id",
			tickets: []Ticket{{ID: "  ", Category: Standard}},
			errText: "empty ticket id",
		},
		{
			name:    "duplicate id",
			tickets: []Ticket{{ID: "T1", Category: Standard}, {ID: "T1", Category: Priority}},
			errText: "registered twice",
		},
		{
			name:    "bad category",
			tickets: []Ticket{{ID: "T1", Category: "Backstage"}},
			errText: "invalid category",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDirectory(tt.tickets)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestDirectory_TicketsForOwner(t *testing.T) {
	d, err := NewDirectory([]Ticket{
		{ID: "T008", OwnerID: "U123", Category: Standard},
		{ID: "T001", OwnerID: "U123", Category: Priority},
		{ID: "T002", OwnerID: "U456", Category: Standard},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"T001", "T008"}, d.TicketsForOwner("U123"))
	assert.Empty(t, d.TicketsForOwner("U000"))
	assert.Equal(t, 3, d.Len())

	ids := make([]string, 0, 3)
	for _, tk := range d.Tickets() {
		ids = append(ids, tk.ID)
	}
	assert.Equal(t, []string{"T001", "T002", "T008"}, ids)
}

func TestReadCSV(t *testing.T) {
	input := `ticket_id,user_id,ticket_type,price
T001,U123,VIP,150.00
T002,U456,General,50.00
`
	tickets, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, Ticket{ID: "T001", OwnerID: "U123", Category: Priority}, tickets[0])
	assert.Equal(t, Ticket{ID: "T002", OwnerID: "U456", Category: Standard}, tickets[1])
}

func TestReadCSV_Errors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing header")
	})

	t.Run("missing category column", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("ticket_id,owner_id\nT1,U1\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "category")
	})

	t.Run("bad category value", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("ticket_id,category\nT1,Backstage\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})
}
