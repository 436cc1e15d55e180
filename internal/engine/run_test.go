package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turnstile/internal/anomaly"
	"github.com/roach88/turnstile/internal/scan"
	"github.com/roach88/turnstile/internal/testutil"
)

func TestRun_ProcessesQueueUntilStop(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	e := newTestEngine(t, WithResultHandler(func(ev scan.Event, res Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.TicketID)
	}))

	for _, ev := range testutil.Stream() {
		require.True(t, e.Enqueue(ev))
	}

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	e.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	assert.Len(t, seen, len(testutil.Stream()))
	assert.Equal(t, 4, e.CurrentSnapshot().Total)
	assert.False(t, e.Enqueue(testutil.Entry("T001", "A", "13:00")))
}

func TestRun_ContextCancel(t *testing.T) {
	e := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.True(t, e.Enqueue(testutil.Entry("T001", "A", "10:00")))
	require.Eventually(t, func() bool {
		return e.CurrentSnapshot().Total == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ConcurrentReaders(t *testing.T) {
	e := newTestEngine(t, WithCapacity(4))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap := e.CurrentSnapshot()
				assert.NoError(t, snap.Check())
				_ = e.AdmissionStats()
				_ = e.AnomalyLog()
			}
		}()
	}

	for _, ev := range testutil.Stream() {
		e.Enqueue(ev)
	}
	e.Stop()
	require.NoError(t, <-done)
	wg.Wait()

	assert.Equal(t, 2, e.CurrentSnapshot().Total)
}

func TestDrain_SkipsRefused(t *testing.T) {
	var refused []error
	e := newTestEngine(t, WithResultHandler(func(_ scan.Event, _ Result, err error) {
		if err != nil {
			refused = append(refused, err)
		}
	}))

	events := []scan.Event{
		testutil.Entry("T001", "A", "10:00"),
		testutil.Entry("T999", "A", "10:01"),
		testutil.Entry("T002", "A", "09:00"),
		testutil.Entry("T002", "A", "10:02"),
	}

	stats, err := e.Drain(context.Background(), scan.NewSliceSource(events))
	require.NoError(t, err)
	assert.Equal(t, DrainStats{Applied: 2, Refused: 2}, stats)

	require.Len(t, refused, 2)
	assert.True(t, IsUnknownTicket(refused[0]))
	assert.True(t, IsOutOfOrder(refused[1]))
	assert.Equal(t, 2, e.CurrentSnapshot().Total)
}

func TestDrain_JSONLines(t *testing.T) {
	e := newTestEngine(t)

	stats, err := e.Drain(context.Background(), scan.NewLineSource(strings.NewReader(testutil.StreamJSONL)))
	require.NoError(t, err)
	assert.Equal(t, 13, stats.Applied)
	assert.Equal(t, 4, e.CurrentSnapshot().Total)
}

func TestDrain_UndecodableLinesAreRefused(t *testing.T) {
	var refused []error
	e := newTestEngine(t, WithResultHandler(func(_ scan.Event, _ Result, err error) {
		if err != nil {
			refused = append(refused, err)
		}
	}))

	input := `{"ticket_id": "T001", "gate": "A", "timestamp": "garbage", "scan_type": "entry"}
` + testutil.StreamJSONL + `{"ticket_id": "T009", "gate": "A", "scan_type": "sideways", "timestamp": "2025-09-30T13:00:00"}
`
	stats, err := e.Drain(context.Background(), scan.NewLineSource(strings.NewReader(input)))
	require.NoError(t, err)
	assert.Equal(t, DrainStats{Applied: 13, Refused: 2}, stats)
	assert.Equal(t, 4, e.CurrentSnapshot().Total)

	require.Len(t, refused, 2)
	for _, err := range refused {
		assert.True(t, IsMalformed(err))
		assert.ErrorIs(t, err, scan.ErrMalformedEvent)
	}
	assert.Equal(t, 2, e.Summary().Refused[ErrCodeMalformedEvent])
}

func TestDrain_ContextCancelled(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Drain(ctx, scan.NewSliceSource(testutil.Stream()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummary_FixtureStream(t *testing.T) {
	e := newTestEngine(t, WithCapacity(4))
	processAll(t, e, testutil.Stream()...)
	_, _ = e.ProcessEvent(testutil.Entry("T999", "A", "12:10"))

	s := e.Summary()
	assert.Equal(t, "run-test", s.RunID)
	assert.Equal(t, 13, s.Applied)
	assert.Equal(t, map[ErrorCode]int{ErrCodeUnknownTicket: 1}, s.Refused)
	assert.Equal(t, "2025-09-30T12:05:00Z", s.LastScanAt)
	assert.Equal(t, 2, s.Occupancy.Total)
	assert.Equal(t, []string{"T003"}, s.Anomalies[anomaly.DuplicateEntry])
	assert.Empty(t, s.Anomalies[anomaly.RapidReentry])
	assert.Contains(t, s.Anomalies, anomaly.ExitWithoutEntry)
	assert.Equal(t, 1, s.AnomalyCount)

	require.Len(t, s.BusiestGates, 2)
	assert.Equal(t, "A", s.BusiestGates[0].Gate)
}
