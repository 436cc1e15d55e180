package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turnstile/internal/testutil"
)

// writeInputs writes the fixture ticket CSV and scan log to a temp dir.
func writeInputs(t *testing.T) (ticketsPath, eventsPath string) {
	t.Helper()
	dir := t.TempDir()
	ticketsPath = filepath.Join(dir, "tickets.csv")
	eventsPath = filepath.Join(dir, "scans.jsonl")
	require.NoError(t, os.WriteFile(ticketsPath, []byte(testutil.TicketsCSV), 0o644))
	require.NoError(t, os.WriteFile(eventsPath, []byte(testutil.StreamJSONL), 0o644))
	return ticketsPath, eventsPath
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
