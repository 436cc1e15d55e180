package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/turnstile/internal/config"
	"github.com/roach88/turnstile/internal/engine"
	"github.com/roach88/turnstile/internal/scan"
	"github.com/roach88/turnstile/internal/store"
	"github.com/roach88/turnstile/internal/ticket"
)

// InputOptions selects where tickets and scans come from: a ticket CSV plus
// a JSON-lines scan log, or a SQLite database.
type InputOptions struct {
	Tickets  string
	Events   string
	Database string

	Capacity      int
	ReentryWindow time.Duration
}

func (o *InputOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Tickets, "tickets", "", "ticket directory CSV")
	cmd.Flags().StringVar(&o.Events, "events", "", "scan log (JSON lines)")
	cmd.Flags().StringVar(&o.Database, "db", "", "SQLite database holding tickets and scans")
	cmd.Flags().IntVar(&o.Capacity, "capacity", 0, "capacity ceiling, 0 for unlimited (overrides config)")
	cmd.Flags().DurationVar(&o.ReentryWindow, "reentry-window", 0, "rapid re-entry window (overrides config)")
}

// engineOptions merges config with the flags the user actually set.
func (o *InputOptions) engineOptions(cmd *cobra.Command, cfg config.Config) []engine.Option {
	capacity := cfg.Venue.Capacity
	if cmd.Flags().Changed("capacity") {
		capacity = o.Capacity
	}
	window := cfg.Venue.ReentryWindow
	if cmd.Flags().Changed("reentry-window") {
		window = o.ReentryWindow
	}
	return []engine.Option{
		engine.WithCapacity(capacity),
		engine.WithReentryWindow(window),
		engine.WithRecentWindow(cfg.Analytics.RecentWindow),
	}
}

func (o *InputOptions) validate(cmd *cobra.Command) error {
	files := o.Tickets != "" || o.Events != ""
	if files && o.Database != "" {
		return NewExitError(ExitCommandError, "use either --db or --tickets/--events, not both")
	}
	if !files && o.Database == "" {
		return NewExitError(ExitCommandError, "an input is required: --db or --tickets with --events")
	}
	if files && (o.Tickets == "" || o.Events == "") {
		return NewExitError(ExitCommandError, "--tickets and --events must be given together")
	}
	if cmd.Flags().Changed("capacity") && o.Capacity < 0 {
		return NewExitError(ExitCommandError, "--capacity must be >= 0")
	}
	if cmd.Flags().Changed("reentry-window") && o.ReentryWindow <= 0 {
		return NewExitError(ExitCommandError, "--reentry-window must be positive")
	}
	return nil
}

// input is an opened ticket directory and scan source.
type input struct {
	dir    *ticket.Directory
	src    scan.Source
	closer func() error
}

func (in *input) Close() error {
	if in.closer == nil {
		return nil
	}
	return in.closer()
}

// open loads the ticket directory and opens the scan source. A non-zero
// until bounds a database read; file sources are bounded by the caller.
func (o *InputOptions) open(ctx context.Context, until time.Time) (*input, error) {
	if o.Database != "" {
		return openDatabase(ctx, o.Database, until)
	}
	return openFiles(o.Tickets, o.Events)
}

func openFiles(ticketsPath, eventsPath string) (*input, error) {
	dir, err := ticket.LoadCSVFile(ticketsPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load tickets", err)
	}

	f, err := os.Open(eventsPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open scan log", err)
	}
	return &input{dir: dir, src: scan.NewLineSource(f), closer: f.Close}, nil
}

func openDatabase(ctx context.Context, path string, until time.Time) (*input, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	dir, err := st.Directory(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load tickets", err)
	}

	src, err := st.Scans(ctx, until)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read scans", err)
	}

	return &input{
		dir: dir,
		src: src,
		closer: func() error {
			return errors.Join(src.Close(), st.Close())
		},
	}, nil
}
