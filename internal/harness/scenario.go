package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/turnstile/internal/scan"
	"github.com/roach88/turnstile/internal/ticket"
)

// Scenario defines a venue scenario: tickets, capacity, a scan flow and the
// assertions the final state must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Date anchors "15:04" clock times in the flow (YYYY-MM-DD, UTC).
	Date string `yaml:"date,omitempty"`

	// Capacity is the admission ceiling. 0 means unlimited.
	Capacity int `yaml:"capacity,omitempty"`

	// ReentryWindow overrides the rapid re-entry window (Go duration).
	ReentryWindow string `yaml:"reentry_window,omitempty"`

	Tickets    []TicketSpec `yaml:"tickets"`
	Flow       []Step       `yaml:"flow"`
	Assertions []Assertion  `yaml:"assertions"`

	// RunID is an optional fixed run id. Defaults to "scenario".
	RunID string `yaml:"run_id,omitempty"`
}

// TicketSpec is one ticket on sale.
type TicketSpec struct {
	ID       string `yaml:"id"`
	Owner    string `yaml:"owner"`
	Category string `yaml:"category"`
}

// Step is one scan in the flow.
type Step struct {
	Ticket string `yaml:"ticket"`
	Gate   string `yaml:"gate"`
	At     string `yaml:"at"`
	Type   string `yaml:"type"`

	// Expect validates the engine's answer for this scan. If nil, no
	// validation is performed.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect specifies expected per-scan behavior. Only set fields are
// checked.
type StepExpect struct {
	Decision  string `yaml:"decision,omitempty"`
	Anomaly   string `yaml:"anomaly,omitempty"`
	Error     string `yaml:"error,omitempty"`
	Occupancy *int   `yaml:"occupancy,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	Type string `yaml:"type"`

	// At is the instant for as_of.
	At string `yaml:"at,omitempty"`

	// Total, ByGate and ByCategory are used by occupancy and as_of.
	Total      *int           `yaml:"total,omitempty"`
	ByGate     map[string]int `yaml:"by_gate,omitempty"`
	ByCategory map[string]int `yaml:"by_category,omitempty"`

	// Kind narrows anomalies to one kind. Empty means every kind.
	Kind  string `yaml:"kind,omitempty"`
	Count *int   `yaml:"count,omitempty"`

	// Tickets is used by anomalies, rejected and inside.
	Tickets []string `yaml:"tickets,omitempty"`

	TimesAtCapacity  *int `yaml:"times_at_capacity,omitempty"`
	OverrideCount    *int `yaml:"vip_override_count,omitempty"`
	WouldBeOccupancy *int `yaml:"would_be_occupancy,omitempty"`
}

// Assertion type constants.
const (
	AssertOccupancy = "occupancy"
	AssertAsOf      = "as_of"
	AssertAnomalies = "anomalies"
	AssertRejected  = "rejected"
	AssertInside    = "inside"
	AssertAdmission = "admission"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Capacity < 0 {
		return fmt.Errorf("capacity must be >= 0")
	}

	if s.ReentryWindow != "" {
		if d, err := time.ParseDuration(s.ReentryWindow); err != nil || d <= 0 {
			return fmt.Errorf("reentry_window %q must be a positive duration", s.ReentryWindow)
		}
	}

	if len(s.Tickets) == 0 {
		return fmt.Errorf("tickets list is required and must be non-empty")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, tk := range s.Tickets {
		if tk.ID == "" {
			return fmt.Errorf("tickets[%d]: id is required", i)
		}
		if _, err := ticket.ParseCategory(tk.Category); err != nil {
			return fmt.Errorf("tickets[%d]: %w", i, err)
		}
	}

	for i, step := range s.Flow {
		if step.At == "" {
			return fmt.Errorf("flow[%d]: at is required", i)
		}
		if _, err := s.resolveTime(step.At); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := s.validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func (s *Scenario) validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOccupancy:
		if a.Total == nil && a.ByGate == nil && a.ByCategory == nil {
			return fmt.Errorf("assertions[%d]: occupancy needs total, by_gate or by_category", index)
		}
	case AssertAsOf:
		if a.At == "" {
			return fmt.Errorf("assertions[%d]: at is required for as_of", index)
		}
		if _, err := s.resolveTime(a.At); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Total == nil && a.ByGate == nil && a.ByCategory == nil {
			return fmt.Errorf("assertions[%d]: as_of needs total, by_gate or by_category", index)
		}
	case AssertAnomalies:
		if a.Count == nil && a.Tickets == nil {
			return fmt.Errorf("assertions[%d]: anomalies needs count or tickets", index)
		}
		if a.Tickets != nil && a.Kind == "" {
			return fmt.Errorf("assertions[%d]: tickets requires a kind for anomalies", index)
		}
	case AssertRejected, AssertInside:
		if a.Tickets == nil {
			return fmt.Errorf("assertions[%d]: tickets list is required for %s (use [] for none)", index, a.Type)
		}
	case AssertAdmission:
		if a.TimesAtCapacity == nil && a.OverrideCount == nil && a.WouldBeOccupancy == nil {
			return fmt.Errorf("assertions[%d]: admission needs at least one counter", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// resolveTime reads a "15:04" clock time on the scenario date, or a full
// timestamp.
func (s *Scenario) resolveTime(v string) (time.Time, error) {
	if clock, err := time.Parse("15:04", v); err == nil {
		if s.Date == "" {
			return time.Time{}, fmt.Errorf("clock time %q needs a scenario date", v)
		}
		day, err := time.Parse(time.DateOnly, s.Date)
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q: %w", s.Date, err)
		}
		return day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), nil
	}
	return scan.ParseTimestamp(v)
}

// event converts a step to a scan. An unrecognized type is kept as-is so
// the engine refuses it as malformed.
func (s *Scenario) event(step Step) (scan.Event, error) {
	at, err := s.resolveTime(step.At)
	if err != nil {
		return scan.Event{}, err
	}
	dir, err := scan.ParseDirection(step.Type)
	if err != nil {
		dir = scan.Direction(strings.TrimSpace(step.Type))
	}
	return scan.Event{TicketID: step.Ticket, Gate: step.Gate, At: at, Direction: dir}, nil
}

// directory builds the scenario's ticket directory.
func (s *Scenario) directory() (*ticket.Directory, error) {
	tickets := make([]ticket.Ticket, 0, len(s.Tickets))
	for _, tk := range s.Tickets {
		cat, err := ticket.ParseCategory(tk.Category)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket.Ticket{ID: tk.ID, OwnerID: tk.Owner, Category: cat})
	}
	return ticket.NewDirectory(tickets)
}
