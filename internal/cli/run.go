package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/turnstile/internal/engine"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	InputOptions

	// RunIDGenerator allows overriding the run id source (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator engine.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a scan log and print the occupancy summary",
		Long: `Process every scan in order against the ticket directory and print
the end-of-run summary: occupancy by gate and category, admission counters,
anomalies and the busiest gates.

Scans that cannot be applied (unknown tickets, out-of-order timestamps,
malformed records) are logged to stderr and skipped.

Examples:
  turnstile run --tickets tickets.csv --events scans.jsonl
  turnstile run --tickets tickets.csv --events scans.jsonl --capacity 500
  turnstile run --db ./venue.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, cmd)
		},
	}

	opts.addFlags(cmd)

	return cmd
}

func runProcess(opts *RunOptions, cmd *cobra.Command) error {
	if err := opts.validate(cmd); err != nil {
		return err
	}
	cfg, err := opts.prepare(cmd)
	if err != nil {
		return err
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := opts.open(ctx, zeroTime)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			slog.Error("error closing input", "error", closeErr)
		}
	}()

	engOpts := opts.engineOptions(cmd, cfg)
	if opts.RunIDGenerator != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDGenerator))
	}
	eng := engine.New(in.dir, engOpts...)

	slog.Info("processing scans", "run_id", eng.RunID(), "tickets", in.dir.Len())
	stats, err := eng.Drain(ctx, in.src)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read scans", err)
	}
	slog.Info("scans processed", "run_id", eng.RunID(), "applied", stats.Applied, "refused", stats.Refused)

	summary := eng.Summary()
	f := opts.formatter(cmd)
	if opts.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: summary, RunID: summary.RunID})
	}
	return f.Success(summaryText{summary})
}
