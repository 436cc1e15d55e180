package engine

import (
	"github.com/roach88/turnstile/internal/admission"
	"github.com/roach88/turnstile/internal/analytics"
	"github.com/roach88/turnstile/internal/anomaly"
	"github.com/roach88/turnstile/internal/occupancy"
	"github.com/roach88/turnstile/internal/scan"
)

// busiestGateCount is how many gates a summary ranks.
const busiestGateCount = 2

// Summary is the end-of-run report.
type Summary struct {
	RunID      string            `json:"run_id"`
	Applied    int               `json:"applied"`
	Refused    map[ErrorCode]int `json:"refused"`
	LastScanAt string            `json:"last_scan_at,omitempty"`

	Occupancy occupancy.Snapshot `json:"occupancy"`
	Admission admission.Stats    `json:"admission"`

	// Anomalies lists the distinct tickets flagged per kind. Every kind is
	// present, possibly with an empty list.
	Anomalies    map[anomaly.Kind][]string `json:"anomalies"`
	AnomalyCount int                       `json:"anomaly_count"`

	BusiestGates []analytics.GateCount `json:"busiest_gates"`
	Traffic      analytics.Report      `json:"traffic"`
}

// Summary builds the report for everything processed so far.
func (e *Engine) Summary() Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.proc.summary()
}

func (p *processor) summary() Summary {
	s := Summary{
		RunID:        p.runID,
		Applied:      len(p.journal),
		Refused:      make(map[ErrorCode]int, len(p.refused)),
		Occupancy:    p.ledger.Snapshot(),
		Admission:    p.controller.Stats(),
		Anomalies:    make(map[anomaly.Kind][]string, len(anomaly.Kinds)),
		AnomalyCount: p.detector.Len(),
		BusiestGates: p.tracker.BusiestGates(busiestGateCount),
		Traffic:      p.tracker.Report(),
	}
	if p.started {
		s.LastScanAt = scan.FormatTimestamp(p.watermark)
	}
	for code, n := range p.refused {
		s.Refused[code] = n
	}
	for _, kind := range anomaly.Kinds {
		s.Anomalies[kind] = p.detector.Tickets(kind)
	}
	return s
}
