package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turnstile/internal/store"
	"github.com/roach88/turnstile/internal/testutil"
)

func TestImportCommand(t *testing.T) {
	tickets, events := writeInputs(t)
	db := filepath.Join(t.TempDir(), "venue.db")

	out, err := execute(NewImportCommand(&RootOptions{Format: "text"}), "--db", db, "--tickets", tickets, "--events", events)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 8 tickets and 13 scans")
	assert.Contains(t, out, "(1 flagged suspicious)")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	loaded, err := st.LoadTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.Tickets(), loaded)

	n, err := st.CountScans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	// T003's second entry is the ninth scan.
	flagged, err := st.SuspiciousScans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, flagged)
}

func TestImportCommandTicketsOnly(t *testing.T) {
	tickets, _ := writeInputs(t)
	db := filepath.Join(t.TempDir(), "venue.db")

	cmd := NewImportCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, "--db", db, "--tickets", tickets)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ImportResult{Database: db, Tickets: 8}, resp.Data)
}

func TestImportCommandDatabaseFromConfig(t *testing.T) {
	tickets, _ := writeInputs(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "from-config.db")
	cfgPath := filepath.Join(dir, "turnstile.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("db:\n  path: "+db+"\n"), 0o644))

	cmd := NewImportCommand(&RootOptions{Format: "text", ConfigPath: cfgPath})
	out, err := execute(cmd, "--tickets", tickets)
	require.NoError(t, err)
	assert.Contains(t, out, db)

	_, err = os.Stat(db)
	assert.NoError(t, err)
}

func TestImportCommandRequiresTickets(t *testing.T) {
	db := filepath.Join(t.TempDir(), "venue.db")

	_, err := execute(NewImportCommand(&RootOptions{Format: "text"}), "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "tickets" not set`)
}

func TestImportCommandBadTickets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.csv")
	require.NoError(t, os.WriteFile(path, []byte("ticket_id,user_id,ticket_type\nT001,U1,Balcony\n"), 0o644))

	_, err := execute(NewImportCommand(&RootOptions{Format: "text"}), "--db", filepath.Join(t.TempDir(), "venue.db"), "--tickets", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load tickets")
}

func TestImportCommandSkipsMalformedLines(t *testing.T) {
	tickets, _ := writeInputs(t)
	events := filepath.Join(t.TempDir(), "scans.jsonl")
	log := `{"ticket_id": "T001", "gate": "A", "timestamp": "garbage", "scan_type": "entry"}
` + testutil.StreamJSONL
	require.NoError(t, os.WriteFile(events, []byte(log), 0o644))
	db := filepath.Join(t.TempDir(), "venue.db")

	out, err := execute(NewImportCommand(&RootOptions{Format: "text"}), "--db", db, "--tickets", tickets, "--events", events)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 8 tickets and 13 scans")
	assert.Contains(t, out, "skipped 1 malformed lines")
}

func TestImportCommandRefusesSecondScanLog(t *testing.T) {
	tickets, events := writeInputs(t)
	db := filepath.Join(t.TempDir(), "venue.db")

	_, err := execute(NewImportCommand(&RootOptions{Format: "text"}), "--db", db, "--tickets", tickets, "--events", events)
	require.NoError(t, err)

	_, err = execute(NewImportCommand(&RootOptions{Format: "text"}), "--db", db, "--tickets", tickets, "--events", events)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "already holds 13 scans")

	// Tickets alone can still be refreshed.
	_, err = execute(NewImportCommand(&RootOptions{Format: "text"}), "--db", db, "--tickets", tickets)
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	n, err := st.CountScans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 13, n)
}
