package harness

import (
	"bytes"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/sebdah/goldie/v2"

	"github.com/roach88/turnstile/internal/admission"
	"github.com/roach88/turnstile/internal/occupancy"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// traceFooter closes a golden trace with the final state.
type traceFooter struct {
	Scenario  string             `json:"scenario"`
	Occupancy occupancy.Snapshot `json:"occupancy"`
	Admission admission.Stats    `json:"admission"`
	Anomalies int                `json:"anomalies"`
}

// RenderTrace serializes a result as JSON lines: one line per scan, then a
// footer line with the final snapshot and admission counters. Map keys are
// sorted, so the output is deterministic.
func RenderTrace(scenarioName string, result *Result) ([]byte, error) {
	var buf bytes.Buffer
	for _, ev := range result.Trace {
		line, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	footer, err := json.Marshal(traceFooter{
		Scenario:  scenarioName,
		Occupancy: result.Summary.Occupancy,
		Admission: result.Summary.Admission,
		Anomalies: result.Summary.AnomalyCount,
	})
	if err != nil {
		return nil, err
	}
	buf.Write(footer)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := RenderTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
