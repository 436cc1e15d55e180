package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/turnstile/internal/engine"
	"github.com/roach88/turnstile/internal/occupancy"
	"github.com/roach88/turnstile/internal/scan"
)

// AsOfOptions holds flags for the asof command.
type AsOfOptions struct {
	*RootOptions
	InputOptions
	At string
}

// AsOfResult is the JSON payload of the asof command.
type AsOfResult struct {
	At        string             `json:"at"`
	Capacity  int                `json:"capacity"`
	Occupancy occupancy.Snapshot `json:"occupancy"`
}

func (r AsOfResult) String() string {
	return fmt.Sprintf("As of %s\n%s", r.At, snapshotText{r.Occupancy, r.Capacity})
}

// NewAsOfCommand creates the asof command.
func NewAsOfCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AsOfOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "asof",
		Short: "Report occupancy at a past instant",
		Long: `Replay the scan log up to and including the given instant and print
the occupancy at that moment. Capacity applies, so the answer is the
admitted occupancy.

Timestamps are RFC 3339 or zone-less ISO-8601 (read as UTC).

Examples:
  turnstile asof --tickets tickets.csv --events scans.jsonl --at 2025-09-30T11:30:00
  turnstile asof --db ./venue.db --at 2025-09-30T11:30:00Z --capacity 4`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsOf(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.At, "at", "", "instant to report (required)")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func runAsOf(opts *AsOfOptions, cmd *cobra.Command) error {
	if err := opts.validate(cmd); err != nil {
		return err
	}
	at, err := scan.ParseTimestamp(opts.At)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --at", err)
	}
	cfg, err := opts.prepare(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	in, err := opts.open(ctx, at)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			slog.Error("error closing input", "error", closeErr)
		}
	}()

	engOpts := opts.engineOptions(cmd, cfg)
	snap, err := engine.OccupancyAsOf(ctx, in.dir, in.src, at, engOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	capacity := cfg.Venue.Capacity
	if cmd.Flags().Changed("capacity") {
		capacity = opts.Capacity
	}
	return opts.formatter(cmd).Success(AsOfResult{
		At:        scan.FormatTimestamp(at),
		Capacity:  capacity,
		Occupancy: snap,
	})
}
