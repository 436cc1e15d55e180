package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/turnstile/internal/occupancy"
	"github.com/roach88/turnstile/internal/scan"
	"github.com/roach88/turnstile/internal/ticket"
)

// OccupancyAsOf replays src from the beginning and returns the occupancy
// after every scan with a timestamp at or before t. Replay stops at the first
// scan past t, so the source is read once and never to the end unless t is
// after the last scan.
//
// Refused scans (unknown tickets, malformed records) are skipped exactly as
// the live engine skips them. Capacity settings from opts apply, so the
// result is the admitted occupancy, not the would-be occupancy.
func OccupancyAsOf(ctx context.Context, dir *ticket.Directory, src scan.Source, t time.Time, opts ...Option) (occupancy.Snapshot, error) {
	cfg := newSettings(opts)
	return replayUntil(ctx, newReplayProcessor("replay", dir, cfg), src, t)
}

// newReplayProcessor returns a processor that does not log. Replays revisit
// scans the live engine already reported.
func newReplayProcessor(runID string, dir *ticket.Directory, cfg settings) *processor {
	p := newProcessor(runID, dir, cfg)
	p.log = slog.New(slog.DiscardHandler)
	return p
}

func replayUntil(ctx context.Context, p *processor, src scan.Source, t time.Time) (occupancy.Snapshot, error) {
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, scan.ErrMalformedEvent) {
			_ = p.refuseUndecodable(err)
			continue
		}
		if err != nil {
			return occupancy.Snapshot{}, fmt.Errorf("replay: %w", err)
		}

		if ev.At.After(t) {
			break
		}

		if _, err := p.apply(ev); err != nil {
			if IsConsistencyViolation(err) {
				return occupancy.Snapshot{}, fmt.Errorf("replay: %w", err)
			}
			// Refused input was refused live too.
			continue
		}
	}
	return p.ledger.Snapshot(), nil
}
