package harness

import "github.com/roach88/turnstile/internal/engine"

// TraceEvent is one scan as the engine saw it.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	TicketID  string `json:"ticket_id"`
	Gate      string `json:"gate"`
	Direction string `json:"direction"`
	At        string `json:"at"`
	Decision  string `json:"decision,omitempty"`
	Occupancy int    `json:"occupancy"`
	Anomaly   string `json:"anomaly,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion matched.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Summary engine.Summary `json:"summary"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
