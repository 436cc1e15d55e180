package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.Len(t, scenarios, 8)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

const minimal = `
name: minimal
description: "two scans"
date: 2025-09-30
capacity: 1
tickets:
  - { id: T001, owner: U1, category: Standard }
  - { id: T002, owner: U2, category: Standard }
flow:
  - { ticket: T001, gate: A, at: "10:00", type: entry }
  - { ticket: T002, gate: A, at: "10:01", type: entry, expect: { decision: admitted } }
assertions:
  - type: occupancy
    total: 2
  - type: rejected
    tickets: []
`

func TestRun_ReportsFailedExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(minimal))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], `decision = "rejected", expected "admitted"`)
	assert.Contains(t, result.Errors[1], "expected total 2, got total 1")
	assert.Contains(t, result.Errors[2], "rejected")
}

func TestRun_UnexpectedErrorFailsStep(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: stray
description: "unknown ticket without an expectation"
date: 2025-09-30
tickets:
  - { id: T001, category: Standard }
flow:
  - { ticket: T404, gate: A, at: "10:00", type: entry }
assertions:
  - type: occupancy
    total: 0
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "UNKNOWN_TICKET")
	assert.Equal(t, "UNKNOWN_TICKET", result.Trace[0].Error)
}

func TestRun_MalformedType(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: sideways
description: "a scan that is neither entry nor exit"
date: 2025-09-30
tickets:
  - { id: T001, category: Standard }
flow:
  - { ticket: T001, gate: A, at: "10:00", type: sideways, expect: { error: MALFORMED_EVENT } }
assertions:
  - type: occupancy
    total: 0
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ReentryWindow(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: short_window
description: "a one minute window does not flag a two minute re-entry"
date: 2025-09-30
reentry_window: 1m
tickets:
  - { id: T001, category: Standard }
flow:
  - { ticket: T001, gate: A, at: "10:00", type: entry }
  - { ticket: T001, gate: A, at: "10:10", type: exit }
  - { ticket: T001, gate: A, at: "10:12", type: entry }
assertions:
  - type: anomalies
    count: 0
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FullTimestamps(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: full
description: "timestamps without a scenario date"
tickets:
  - { id: T001, category: Standard }
flow:
  - { ticket: T001, gate: A, at: "2025-09-30T10:00:00+02:00", type: entry }
assertions:
  - type: as_of
    at: "2025-09-30T08:00:00Z"
    total: 1
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "2025-09-30T08:00:00Z", result.Trace[0].At)
	assert.Equal(t, "scenario", result.Summary.RunID)
}
