package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/turnstile/internal/anomaly"
	"github.com/roach88/turnstile/internal/engine"
	"github.com/roach88/turnstile/internal/occupancy"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Index    int
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertions[%d] %s: expected %s, got %s", e.Index, e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against the engine's final
// state and returns one message per failure.
func EvaluateAssertions(eng *engine.Engine, s *Scenario, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertOccupancy:
			err = assertSnapshot(i, a, eng.CurrentSnapshot())
		case AssertAsOf:
			err = assertAsOf(i, a, eng, s)
		case AssertAnomalies:
			err = assertAnomalies(i, a, eng.AnomalyLog())
		case AssertRejected:
			err = assertTickets(i, a, eng.AdmissionStats().RejectedEntries)
		case AssertInside:
			err = assertTickets(i, a, eng.InsideTickets())
		case AssertAdmission:
			err = assertAdmission(i, a, eng)
		default:
			err = fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertAsOf(i int, a Assertion, eng *engine.Engine, s *Scenario) error {
	at, err := s.resolveTime(a.At)
	if err != nil {
		return fmt.Errorf("assertions[%d]: %w", i, err)
	}
	snap, err := eng.OccupancyAsOf(at)
	if err != nil {
		return fmt.Errorf("assertions[%d]: as_of %s: %w", i, a.At, err)
	}
	return assertSnapshot(i, a, snap)
}

// assertSnapshot compares the fields the assertion sets. Gate and category
// maps are compared exactly; a zero count may be omitted.
func assertSnapshot(i int, a Assertion, snap occupancy.Snapshot) error {
	if a.Total != nil && *a.Total != snap.Total {
		return &AssertionError{Index: i, Type: a.Type, Expected: fmt.Sprintf("total %d", *a.Total), Actual: fmt.Sprintf("total %d", snap.Total)}
	}
	if a.ByGate != nil && !reflect.DeepEqual(nonZero(a.ByGate), nonZero(snap.ByGate)) {
		return &AssertionError{Index: i, Type: a.Type, Expected: "by_gate " + formatCounts(a.ByGate), Actual: "by_gate " + formatCounts(snap.ByGate)}
	}
	if a.ByCategory != nil {
		got := make(map[string]int, len(snap.ByCategory))
		for cat, n := range snap.ByCategory {
			got[string(cat)] = n
		}
		if !reflect.DeepEqual(nonZero(a.ByCategory), nonZero(got)) {
			return &AssertionError{Index: i, Type: a.Type, Expected: "by_category " + formatCounts(a.ByCategory), Actual: "by_category " + formatCounts(got)}
		}
	}
	return nil
}

func assertAnomalies(i int, a Assertion, log []anomaly.Record) error {
	var matching []anomaly.Record
	for _, rec := range log {
		if a.Kind == "" || string(rec.Kind) == a.Kind {
			matching = append(matching, rec)
		}
	}

	label := "anomalies"
	if a.Kind != "" {
		label = a.Kind
	}

	if a.Count != nil && *a.Count != len(matching) {
		return &AssertionError{Index: i, Type: a.Type, Expected: fmt.Sprintf("%d %s", *a.Count, label), Actual: fmt.Sprintf("%d", len(matching))}
	}

	if a.Tickets != nil {
		seen := make(map[string]bool)
		got := []string{}
		for _, rec := range matching {
			if !seen[rec.TicketID] {
				seen[rec.TicketID] = true
				got = append(got, rec.TicketID)
			}
		}
		sort.Strings(got)
		want := append([]string{}, a.Tickets...)
		sort.Strings(want)
		if !reflect.DeepEqual(want, got) {
			return &AssertionError{Index: i, Type: a.Type, Expected: fmt.Sprintf("%s tickets %v", label, want), Actual: fmt.Sprintf("%v", got)}
		}
	}
	return nil
}

// assertTickets compares ordered ticket lists.
func assertTickets(i int, a Assertion, got []string) error {
	if got == nil {
		got = []string{}
	}
	want := a.Tickets
	if want == nil {
		want = []string{}
	}
	if !reflect.DeepEqual(want, got) {
		return &AssertionError{Index: i, Type: a.Type, Expected: fmt.Sprintf("%v", want), Actual: fmt.Sprintf("%v", got)}
	}
	return nil
}

func assertAdmission(i int, a Assertion, eng *engine.Engine) error {
	stats := eng.AdmissionStats()
	checks := []struct {
		name string
		want *int
		got  int
	}{
		{"times_at_capacity", a.TimesAtCapacity, stats.TimesAtCapacity},
		{"vip_override_count", a.OverrideCount, stats.OverrideCount},
		{"would_be_occupancy", a.WouldBeOccupancy, stats.WouldBeOccupancy},
	}
	for _, c := range checks {
		if c.want != nil && *c.want != c.got {
			return &AssertionError{Index: i, Type: a.Type, Expected: fmt.Sprintf("%s %d", c.name, *c.want), Actual: fmt.Sprintf("%d", c.got)}
		}
	}
	return nil
}

func nonZero(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, m[k])
	}
	return "{" + strings.Join(parts, " ") + "}"
}
