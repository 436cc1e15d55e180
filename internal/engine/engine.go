package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/turnstile/internal/admission"
	"github.com/roach88/turnstile/internal/analytics"
	"github.com/roach88/turnstile/internal/anomaly"
	"github.com/roach88/turnstile/internal/occupancy"
	"github.com/roach88/turnstile/internal/scan"
	"github.com/roach88/turnstile/internal/ticket"
)

// ResultHandler receives the result of every scan taken from the queue or a
// source. Exactly one of res and err is meaningful.
type ResultHandler func(ev scan.Event, res Result, err error)

// settings are shared by the live engine and its replays.
type settings struct {
	capacity      int
	reentryWindow time.Duration
	recentWindow  int
	runIDGen      RunIDGenerator
	onResult      ResultHandler
	logger        *slog.Logger
}

func newSettings(opts []Option) settings {
	cfg := settings{
		capacity:      admission.Unlimited,
		reentryWindow: anomaly.DefaultReentryWindow,
		recentWindow:  analytics.DefaultRecentWindow,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runIDGen == nil {
		cfg.runIDGen = UUIDv7Generator{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// Option configures an Engine.
type Option func(*settings)

// WithCapacity sets the capacity ceiling. admission.Unlimited disables it.
func WithCapacity(n int) Option {
	return func(s *settings) {
		s.capacity = n
	}
}

// WithReentryWindow sets how soon after an exit a re-entry is flagged.
//
// Default: 5 minutes (anomaly.DefaultReentryWindow)
func WithReentryWindow(d time.Duration) Option {
	return func(s *settings) {
		s.reentryWindow = d
	}
}

// WithRecentWindow sets how many scans the activity window keeps.
func WithRecentWindow(n int) Option {
	return func(s *settings) {
		s.recentWindow = n
	}
}

// WithRunIDGenerator overrides the run id source (default UUIDv7).
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(s *settings) {
		s.runIDGen = g
	}
}

// WithResultHandler installs a callback for scans processed by Run and Drain.
// The callback runs on the processing goroutine, after the lock is released.
func WithResultHandler(h ResultHandler) Option {
	return func(s *settings) {
		s.onResult = h
	}
}

// WithLogger sets the logger for processing and run-loop events
// (default slog.Default at construction).
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// Engine processes one ordered scan stream.
//
// Thread-safety model:
//   - ProcessEvent, Drain: serialized by an exclusive lock; one scan at a time
//   - Enqueue: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - CurrentSnapshot, AnomalyLog, AdmissionStats, ...: safe from any goroutine
type Engine struct {
	mu    sync.RWMutex
	proc  *processor
	cfg   settings
	queue *eventQueue
}

// New creates an engine over a populated ticket directory.
func New(dir *ticket.Directory, opts ...Option) *Engine {
	cfg := newSettings(opts)
	return &Engine{
		proc:  newProcessor(cfg.runIDGen.Generate(), dir, cfg),
		cfg:   cfg,
		queue: newEventQueue(),
	}
}

// RunID identifies this processing run.
func (e *Engine) RunID() string {
	return e.proc.runID
}

// ProcessEvent applies one scan and returns the anomaly (if any) and the
// admission outcome. A returned error is a *ProcessingError and means the
// scan was refused without changing any state.
func (e *Engine) ProcessEvent(ev scan.Event) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.proc.apply(ev)
}

// CurrentSnapshot returns the occupancy counters as of the last applied scan.
func (e *Engine) CurrentSnapshot() occupancy.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.proc.ledger.Snapshot()
}

// AnomalyLog returns every anomaly detected so far, in detection order.
func (e *Engine) AnomalyLog() []anomaly.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.proc.detector.Log()
}

// AdmissionStats returns the admission controller's counters.
func (e *Engine) AdmissionStats() admission.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.proc.controller.Stats()
}

// Analytics returns the scan traffic report.
func (e *Engine) Analytics() analytics.Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.proc.tracker.Report()
}

// Membership returns the ledger state of one ticket.
func (e *Engine) Membership(ticketID string) (occupancy.MembershipState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.proc.ledger.State(ticketID)
}

// InsideTickets returns the sorted ids of tickets currently inside.
func (e *Engine) InsideTickets() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.proc.ledger.InsideTickets()
}

// Journal returns a copy of every applied scan in order.
func (e *Engine) Journal() []scan.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]scan.Event, len(e.proc.journal))
	copy(out, e.proc.journal)
	return out
}

// OccupancyAsOf returns the occupancy after every applied scan with a
// timestamp at or before t. The journal is replayed through a fresh
// processor with the engine's settings, so the answer matches what the
// live ledger held at that moment. Cost is O(n) per call.
func (e *Engine) OccupancyAsOf(t time.Time) (occupancy.Snapshot, error) {
	e.mu.RLock()
	journal := e.proc.journal[:len(e.proc.journal):len(e.proc.journal)]
	runID := e.proc.runID
	dir := e.proc.dir
	e.mu.RUnlock()

	p := newReplayProcessor(runID, dir, e.cfg)
	return replayUntil(context.Background(), p, scan.NewSliceSource(journal), t)
}

// Enqueue submits a scan for processing by the Run loop.
// Thread-safe. Returns false once the engine has been stopped.
func (e *Engine) Enqueue(ev scan.Event) bool {
	return e.queue.Enqueue(ev)
}

// Run drains the queue one scan at a time until ctx is cancelled or Stop is
// called. Scans queued before Stop are still processed.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// A refused scan is logged with its code and processing continues; the
// stream has no meaningful retry.
func (e *Engine) Run(ctx context.Context) error {
	e.proc.log.Info("engine starting", "run_id", e.RunID(), "capacity", e.cfg.capacity)

	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			e.handle(ev)
			continue
		}

		select {
		case <-ctx.Done():
			e.proc.log.Info("engine stopping: context cancelled", "run_id", e.RunID())
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Drained() {
				e.proc.log.Info("engine stopping: queue closed", "run_id", e.RunID())
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once the queue is drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Drain processes every scan from src in order. Refused scans are reported
// to the result handler (or logged) and skipped. A record the source could
// not decode counts as a refused malformed scan. The returned error is a
// source failure or context cancellation, never a refused scan.
func (e *Engine) Drain(ctx context.Context, src scan.Source) (DrainStats, error) {
	var stats DrainStats
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if errors.Is(err, scan.ErrMalformedEvent) {
			e.handleUndecodable(err)
			stats.Refused++
			continue
		}
		if err != nil {
			return stats, err
		}

		if e.handle(ev) != nil {
			stats.Refused++
		} else {
			stats.Applied++
		}
	}
}

// DrainStats counts what Drain did.
type DrainStats struct {
	Applied int `json:"applied"`
	Refused int `json:"refused"`
}

func (e *Engine) handle(ev scan.Event) error {
	res, err := e.ProcessEvent(ev)

	if e.cfg.onResult != nil {
		e.cfg.onResult(ev, res, err)
		return err
	}
	if err != nil {
		logRefused(e.proc.log, e.RunID(), ev, err)
	}
	return err
}

// handleUndecodable refuses a record that never became an event.
func (e *Engine) handleUndecodable(cause error) {
	e.mu.Lock()
	err := e.proc.refuseUndecodable(cause)
	e.mu.Unlock()

	if e.cfg.onResult != nil {
		e.cfg.onResult(scan.Event{}, Result{}, err)
		return
	}
	logRefused(e.proc.log, e.RunID(), scan.Event{}, err)
}

// logRefused logs a refused scan with enough context to replay it by hand.
func logRefused(log *slog.Logger, runID string, ev scan.Event, err error) {
	code, _ := CodeOf(err)
	level := slog.LevelWarn
	if code == ErrCodeConsistency {
		level = slog.LevelError
	}
	log.Log(context.Background(), level, "scan refused",
		"run_id", runID,
		"code", code,
		"ticket_id", ev.TicketID,
		"gate", ev.Gate,
		"direction", ev.Direction,
		"timestamp", scan.FormatTimestamp(ev.At),
		"error", err,
	)
}
