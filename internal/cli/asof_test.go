package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turnstile/internal/testutil"
)

func TestAsOfCommandText(t *testing.T) {
	tickets, events := writeInputs(t)

	tests := []struct {
		at   string
		want string
	}{
		{"2025-09-30T09:00:00", "Occupancy: 0 inside"},
		{"2025-09-30T10:03:00", "Occupancy: 4 inside"},
		{"2025-09-30T11:30:00", "Occupancy: 6 inside"},
		{"2025-09-30T12:00:00Z", "Occupancy: 5 inside"},
		{"2025-09-30T14:00:00+02:00", "Occupancy: 5 inside"},
	}

	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			cmd := NewAsOfCommand(&RootOptions{Format: "text"})
			out, err := execute(cmd, "--tickets", tickets, "--events", events, "--at", tt.at)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestAsOfCommandCapacity(t *testing.T) {
	tickets, events := writeInputs(t)

	cmd := NewAsOfCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, "--tickets", tickets, "--events", events, "--at", "2025-09-30T11:30:00", "--capacity", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "As of 2025-09-30T11:30:00Z")
	assert.Contains(t, out, "Occupancy: 4 inside (capacity 4)")
}

func TestAsOfCommandJSON(t *testing.T) {
	tickets, events := writeInputs(t)

	cmd := NewAsOfCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, "--tickets", tickets, "--events", events, "--at", "2025-09-30T11:30:00")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   AsOfResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "2025-09-30T11:30:00Z", resp.Data.At)
	assert.Equal(t, 6, resp.Data.Occupancy.Total)
	assert.Equal(t, map[string]int{"A": 2, "B": 2, "C": 2}, resp.Data.Occupancy.ByGate)
}

func TestAsOfCommandDatabase(t *testing.T) {
	tickets, events := writeInputs(t)
	db := filepath.Join(t.TempDir(), "venue.db")

	_, err := execute(NewImportCommand(&RootOptions{Format: "text"}), "--db", db, "--tickets", tickets, "--events", events)
	require.NoError(t, err)

	out, err := execute(NewAsOfCommand(&RootOptions{Format: "text"}), "--db", db, "--at", "2025-09-30T11:30:00")
	require.NoError(t, err)
	assert.Contains(t, out, "Occupancy: 6 inside (unlimited)")
}

func TestAsOfCommandRequiresAt(t *testing.T) {
	tickets, events := writeInputs(t)

	_, err := execute(NewAsOfCommand(&RootOptions{Format: "text"}), "--tickets", tickets, "--events", events)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "at" not set`)
}

func TestAsOfCommandInvalidAt(t *testing.T) {
	tickets, events := writeInputs(t)

	_, err := execute(NewAsOfCommand(&RootOptions{Format: "text"}), "--tickets", tickets, "--events", events, "--at", "half past ten")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --at")
}

func TestAsOfCommandSkipsMalformedLines(t *testing.T) {
	tickets, _ := writeInputs(t)
	events := filepath.Join(t.TempDir(), "scans.jsonl")
	log := "{broken\n" + testutil.StreamJSONL
	require.NoError(t, os.WriteFile(events, []byte(log), 0o644))

	out, err := execute(NewAsOfCommand(&RootOptions{Format: "text"}), "--tickets", tickets, "--events", events, "--at", "2025-09-30T11:30:00")
	require.NoError(t, err)
	assert.Contains(t, out, "Occupancy: 6 inside")
}
