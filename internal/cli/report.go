package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/roach88/turnstile/internal/admission"
	"github.com/roach88/turnstile/internal/anomaly"
	"github.com/roach88/turnstile/internal/engine"
	"github.com/roach88/turnstile/internal/occupancy"
)

var zeroTime time.Time

// summaryText renders an engine summary for terminals.
type summaryText struct {
	engine.Summary
}

func (s summaryText) String() string {
	var b strings.Builder

	refused := 0
	for _, n := range s.Refused {
		refused += n
	}
	fmt.Fprintf(&b, "Run %s: %d scans applied, %d refused\n", s.RunID, s.Applied, refused)
	if s.LastScanAt != "" {
		fmt.Fprintf(&b, "Last scan: %s\n", s.LastScanAt)
	}

	b.WriteString(snapshotText{s.Occupancy, s.Admission.Capacity}.String())
	fmt.Fprintf(&b, "Admission: %s\n", admissionLine(s.Admission))

	fmt.Fprintf(&b, "Anomalies: %d\n", s.AnomalyCount)
	for _, kind := range anomaly.Kinds {
		tickets := s.Anomalies[kind]
		list := "-"
		if len(tickets) > 0 {
			list = strings.Join(tickets, " ")
		}
		fmt.Fprintf(&b, "  %s: %s\n", kind, list)
	}

	gates := make([]string, len(s.BusiestGates))
	for i, g := range s.BusiestGates {
		gates[i] = fmt.Sprintf("%s (%d)", g.Gate, g.Scans)
	}
	fmt.Fprintf(&b, "Busiest gates: %s", strings.Join(gates, ", "))

	return b.String()
}

// snapshotText renders occupancy counters.
type snapshotText struct {
	occupancy.Snapshot
	capacity int
}

func (s snapshotText) String() string {
	var b strings.Builder

	limit := "unlimited"
	if s.capacity != admission.Unlimited {
		limit = fmt.Sprintf("capacity %d", s.capacity)
	}
	fmt.Fprintf(&b, "Occupancy: %d inside (%s)\n", s.Total, limit)

	gates := make(map[string]int, len(s.ByGate))
	for k, v := range s.ByGate {
		gates[k] = v
	}
	cats := make(map[string]int, len(s.ByCategory))
	for k, v := range s.ByCategory {
		cats[string(k)] = v
	}
	fmt.Fprintf(&b, "  by gate:     %s\n", counts(gates))
	fmt.Fprintf(&b, "  by category: %s\n", counts(cats))
	fmt.Fprintf(&b, "  entries %d, exits %d\n", s.TotalEntries, s.TotalExits)

	return b.String()
}

func admissionLine(st admission.Stats) string {
	rejected := "-"
	if len(st.RejectedEntries) > 0 {
		rejected = strings.Join(st.RejectedEntries, " ")
	}
	return fmt.Sprintf("times at capacity %d, rejected %d [%s], priority overrides %d, would-be occupancy %d",
		st.TimesAtCapacity, len(st.RejectedEntries), rejected, st.OverrideCount, st.WouldBeOccupancy)
}

func counts(m map[string]int) string {
	if len(m) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
