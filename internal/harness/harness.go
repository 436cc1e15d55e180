package harness

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/turnstile/internal/engine"
	"github.com/roach88/turnstile/internal/scan"
)

const defaultRunID = "scenario"

// Harness holds the engine for one scenario execution.
type Harness struct {
	scenario *Scenario
	engine   *engine.Engine
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh engine. A returned error means the scenario
// itself could not be executed (bad tickets, bad timestamps); failed
// expectations are reported in Result.Errors instead.
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	if err := h.executeFlow(result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	for _, msg := range EvaluateAssertions(h.engine, scenario, scenario.Assertions) {
		result.AddError(msg)
	}

	result.Summary = h.engine.Summary()
	return result, nil
}

func newHarness(s *Scenario) (*Harness, error) {
	dir, err := s.directory()
	if err != nil {
		return nil, fmt.Errorf("failed to build ticket directory: %w", err)
	}

	runID := s.RunID
	if runID == "" {
		runID = defaultRunID
	}

	opts := []engine.Option{
		engine.WithCapacity(s.Capacity),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runID)),
		engine.WithLogger(slog.New(slog.DiscardHandler)), // Suppress logs in tests
	}
	if s.ReentryWindow != "" {
		d, err := time.ParseDuration(s.ReentryWindow)
		if err != nil {
			return nil, fmt.Errorf("reentry_window: %w", err)
		}
		opts = append(opts, engine.WithReentryWindow(d))
	}

	return &Harness{scenario: s, engine: engine.New(dir, opts...)}, nil
}

// executeFlow applies every step in order and checks step expectations.
func (h *Harness) executeFlow(result *Result) error {
	for i, step := range h.scenario.Flow {
		ev, err := h.scenario.event(step)
		if err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}

		res, procErr := h.engine.ProcessEvent(ev)
		te := h.trace(ev, res, procErr)
		result.Trace = append(result.Trace, te)

		if step.Expect != nil {
			for _, msg := range checkStep(step.Expect, te) {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, ev, msg))
			}
		} else if procErr != nil {
			result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, ev, procErr))
		}
	}
	return nil
}

func (h *Harness) trace(ev scan.Event, res engine.Result, err error) TraceEvent {
	ev = ev.Normalized()
	te := TraceEvent{
		TicketID:  ev.TicketID,
		Gate:      ev.Gate,
		Direction: string(ev.Direction),
		At:        scan.FormatTimestamp(ev.At),
	}
	if err != nil {
		code, _ := engine.CodeOf(err)
		te.Error = string(code)
		te.Occupancy = h.engine.CurrentSnapshot().Total
		return te
	}

	te.Seq = res.Outcome.Seq
	te.Decision = string(res.Outcome.Decision)
	te.Occupancy = res.Outcome.Occupancy
	if res.Anomaly != nil {
		te.Anomaly = string(res.Anomaly.Kind)
	}
	return te
}

func checkStep(want *StepExpect, got TraceEvent) []string {
	var errs []string
	if want.Error != got.Error {
		if want.Error == "" {
			errs = append(errs, fmt.Sprintf("unexpected error %s", got.Error))
		} else {
			errs = append(errs, fmt.Sprintf("error = %q, expected %q", got.Error, want.Error))
		}
	}
	if want.Decision != "" && want.Decision != got.Decision {
		errs = append(errs, fmt.Sprintf("decision = %q, expected %q", got.Decision, want.Decision))
	}
	if want.Anomaly != "" && want.Anomaly != got.Anomaly {
		errs = append(errs, fmt.Sprintf("anomaly = %q, expected %q", got.Anomaly, want.Anomaly))
	}
	if want.Occupancy != nil && *want.Occupancy != got.Occupancy {
		errs = append(errs, fmt.Sprintf("occupancy = %d, expected %d", got.Occupancy, *want.Occupancy))
	}
	return errs
}
