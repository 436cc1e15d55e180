package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/turnstile/internal/engine"
	"github.com/roach88/turnstile/internal/scan"
	"github.com/roach88/turnstile/internal/store"
	"github.com/roach88/turnstile/internal/ticket"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	Tickets  string
	Events   string
}

// ImportResult is the payload of the import command.
type ImportResult struct {
	Database string `json:"database"`
	Tickets  int    `json:"tickets"`
	Scans    int    `json:"scans"`
	Flagged  int    `json:"flagged_suspicious"`

	// Malformed counts scan log lines that could not be decoded. They are
	// not stored.
	Malformed int `json:"malformed,omitempty"`
}

func (r ImportResult) String() string {
	msg := fmt.Sprintf("Imported %d tickets and %d scans into %s (%d flagged suspicious)",
		r.Tickets, r.Scans, r.Database, r.Flagged)
	if r.Malformed > 0 {
		msg += fmt.Sprintf(", skipped %d malformed lines", r.Malformed)
	}
	return msg
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a ticket CSV and scan log into SQLite",
		Long: `Load the box-office ticket export and a scanner log into a SQLite
database, creating it if needed. Without --db the path comes from the
config file (db.path). Each scan is stored in arrival order as received;
scans the anomaly detector flags are marked suspicious. Lines that cannot
be decoded are skipped.

Tickets may be re-imported at any time. Scans are judged against the whole
log, so a scan log can only be imported into a database that holds no
scans yet.

Examples:
  turnstile import --db ./venue.db --tickets tickets.csv --events scans.jsonl
  turnstile import --db ./venue.db --tickets tickets.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config db.path)")
	cmd.Flags().StringVar(&opts.Tickets, "tickets", "", "ticket directory CSV (required)")
	_ = cmd.MarkFlagRequired("tickets")
	cmd.Flags().StringVar(&opts.Events, "events", "", "scan log (JSON lines)")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command) error {
	cfg, err := opts.prepare(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if opts.Database == "" {
		opts.Database = cfg.DB.Path
	}

	dir, err := ticket.LoadCSVFile(opts.Tickets)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load tickets", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if opts.Events != "" {
		stored, err := st.CountScans(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count stored scans", err)
		}
		if stored > 0 {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("database %s already holds %d scans; import the scan log into a new database", opts.Database, stored))
		}
	}

	if err := st.ImportTickets(ctx, dir.Tickets()); err != nil {
		return WrapExitError(ExitCommandError, "failed to store tickets", err)
	}
	result := ImportResult{Database: opts.Database, Tickets: dir.Len()}

	if opts.Events != "" {
		f, err := os.Open(opts.Events)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open scan log", err)
		}
		defer f.Close()

		eng := engine.New(dir,
			engine.WithCapacity(cfg.Venue.Capacity),
			engine.WithReentryWindow(cfg.Venue.ReentryWindow),
		)
		if err := importScans(ctx, st, eng, scan.NewLineSource(f), &result); err != nil {
			return err
		}
	}

	slog.Info("import complete", "db", opts.Database, "tickets", result.Tickets, "scans", result.Scans, "flagged", result.Flagged, "malformed", result.Malformed)
	return opts.formatter(cmd).Success(result)
}

// importScans stores every decodable scan in arrival order and flags the
// ones the engine reports as anomalous. Refused scans are stored but not
// flagged.
func importScans(ctx context.Context, st *store.Store, eng *engine.Engine, src scan.Source, result *ImportResult) error {
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, scan.ErrMalformedEvent) {
			slog.Warn("skipping malformed scan", "error", err)
			result.Malformed++
			continue
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read scans", err)
		}

		id, err := st.AppendScan(ctx, ev)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to store scan", err)
		}
		result.Scans++

		res, procErr := eng.ProcessEvent(ev)
		if procErr != nil {
			slog.Warn("scan refused", "id", id, "ticket_id", ev.TicketID, "error", procErr)
			continue
		}
		if res.Anomaly != nil {
			if err := st.FlagSuspicious(ctx, id); err != nil {
				return WrapExitError(ExitCommandError, "failed to flag scan", err)
			}
			result.Flagged++
		}
	}
}
