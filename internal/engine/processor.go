package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/turnstile/internal/admission"
	"github.com/roach88/turnstile/internal/analytics"
	"github.com/roach88/turnstile/internal/anomaly"
	"github.com/roach88/turnstile/internal/occupancy"
	"github.com/roach88/turnstile/internal/scan"
	"github.com/roach88/turnstile/internal/ticket"
)

// Result is what processing one scan produced.
type Result struct {
	// Anomaly is set when the detector flagged the scan.
	Anomaly *anomaly.Record
	Outcome admission.Outcome
}

// processor is the aggregate of ledger, detector and controller for one
// stream. It has no locking of its own; Engine serializes access and
// replays use a private processor.
type processor struct {
	runID string
	dir   *ticket.Directory
	log   *slog.Logger

	ledger     *occupancy.Ledger
	detector   *anomaly.Detector
	controller *admission.Controller
	tracker    *analytics.Tracker
	clock      *Clock

	journal   []scan.Event
	watermark time.Time
	started   bool

	refused map[ErrorCode]int
}

func newProcessor(runID string, dir *ticket.Directory, s settings) *processor {
	ledger := occupancy.New()
	return &processor{
		runID:      runID,
		dir:        dir,
		log:        s.logger,
		ledger:     ledger,
		detector:   anomaly.NewDetector(s.reentryWindow),
		controller: admission.NewController(ledger, s.capacity),
		tracker:    analytics.NewTracker(s.recentWindow),
		clock:      NewClock(),
		refused:    make(map[ErrorCode]int),
	}
}

// apply processes one scan. On error nothing is applied.
func (p *processor) apply(ev scan.Event) (Result, error) {
	ev = ev.Normalized()

	if err := ev.Validate(); err != nil {
		return Result{}, p.refuse(&ProcessingError{
			Code:     ErrCodeMalformedEvent,
			Message:  "scan is missing required fields",
			TicketID: ev.TicketID,
			Err:      err,
		})
	}

	if p.started && ev.At.Before(p.watermark) {
		return Result{}, p.refuse(&ProcessingError{
			Code:     ErrCodeOutOfOrder,
			Message:  fmt.Sprintf("scan at %s precedes last applied scan at %s", scan.FormatTimestamp(ev.At), scan.FormatTimestamp(p.watermark)),
			TicketID: ev.TicketID,
			Details: map[string]string{
				"timestamp": scan.FormatTimestamp(ev.At),
				"watermark": scan.FormatTimestamp(p.watermark),
			},
		})
	}

	tk, err := p.dir.Lookup(ev.TicketID)
	if err != nil {
		return Result{}, p.refuse(&ProcessingError{
			Code:     ErrCodeUnknownTicket,
			Message:  "ticket is not in the directory",
			TicketID: ev.TicketID,
			Err:      err,
		})
	}

	seq := p.clock.Next()

	// Classified against the state before the scan, recorded only once the
	// controller has applied it.
	rec := p.detector.Classify(p.ledger, ev, seq)

	out, err := p.controller.Decide(tk, ev, seq)
	if err != nil {
		p.log.Error("ledger refused admitted transition",
			"run_id", p.runID,
			"seq", seq,
			"ticket_id", tk.ID,
			"direction", ev.Direction,
			"gate", ev.Gate,
			"error", err,
			"event", "internal_consistency",
		)
		return Result{}, p.refuse(&ProcessingError{
			Code:     ErrCodeConsistency,
			Message:  "ledger refused a transition the controller admitted",
			TicketID: tk.ID,
			Seq:      seq,
			Err:      err,
		})
	}

	if rec != nil {
		p.detector.Append(*rec)
		p.log.Warn("scan anomaly",
			"run_id", p.runID,
			"seq", seq,
			"ticket_id", rec.TicketID,
			"kind", rec.Kind,
			"gate", rec.Gate,
			"event", "anomaly",
		)
	}

	if out.Decision == admission.Rejected {
		p.log.Info("entry rejected at capacity",
			"run_id", p.runID,
			"seq", seq,
			"ticket_id", tk.ID,
			"gate", ev.Gate,
			"occupancy", out.Occupancy,
			"capacity", p.controller.Capacity(),
		)
	}

	p.tracker.Observe(ev, tk.Category)
	p.journal = append(p.journal, ev)
	p.watermark = ev.At
	p.started = true

	p.log.Debug("scan processed",
		"run_id", p.runID,
		"seq", seq,
		"ticket_id", tk.ID,
		"gate", ev.Gate,
		"direction", ev.Direction,
		"decision", out.Decision,
		"occupancy", out.Occupancy,
	)

	return Result{Anomaly: rec, Outcome: out}, nil
}

// refuseUndecodable counts a source record that failed to decode.
func (p *processor) refuseUndecodable(cause error) error {
	return p.refuse(&ProcessingError{
		Code:    ErrCodeMalformedEvent,
		Message: "scan record could not be decoded",
		Err:     cause,
	})
}

func (p *processor) refuse(err *ProcessingError) error {
	p.refused[err.Code]++
	return err
}
