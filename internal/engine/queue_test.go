package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turnstile/internal/testutil"
)

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(testutil.Entry("T001", "A", "10:00"))
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, "T001", got.TicketID)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for _, ev := range testutil.Stream()[:3] {
		q.Enqueue(ev)
	}

	for _, want := range []string{"T001", "T002", "T003"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.TicketID)
	}
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_WaitSignals(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(testutil.Entry("T001", "A", "10:00"))
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for signal")
	}
	assert.Equal(t, 1, q.Len())
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(testutil.Entry("T001", "A", "10:00"))

	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(testutil.Entry("T002", "A", "10:01")), "enqueue after close should fail")
	assert.False(t, q.Drained(), "queued scans survive close")

	_, ok := q.TryDequeue()
	require.True(t, ok)
	assert.True(t, q.Drained())

	select {
	case _, open := <-q.Wait():
		assert.False(t, open, "wait channel should be closed")
	default:
		t.Fatal("closed wait channel should not block")
	}
}

func TestEventQueue_EmptyIsNotDrained(t *testing.T) {
	q := newEventQueue()
	assert.False(t, q.Drained(), "an open empty queue is idle, not drained")
}

func TestEventQueue_ConcurrentEnqueue(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.Enqueue(testutil.Entry("T001", "A", "10:00"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}
