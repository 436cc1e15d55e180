package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/turnstile/internal/scan"
)

var base = time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)

// fakeMembership is a hand-set membership view.
type fakeMembership struct {
	inside   map[string]bool
	lastExit map[string]time.Time
}

func newFakeMembership() *fakeMembership {
	return &fakeMembership{inside: map[string]bool{}, lastExit: map[string]time.Time{}}
}

func (f *fakeMembership) Inside(id string) bool { return f.inside[id] }

func (f *fakeMembership) LastExit(id string) (time.Time, bool) {
	t, ok := f.lastExit[id]
	return t, ok
}

func entry(id string, at time.Time) scan.Event {
	return scan.Event{TicketID: id, Gate: "A", At: at, Direction: scan.Entry}
}

func exit(id string, at time.Time) scan.Event {
	return scan.Event{TicketID: id, Gate: "A", At: at, Direction: scan.Exit}
}

func TestDetector_NormalTraffic(t *testing.T) {
	d := NewDetector(0)
	m := newFakeMembership()

	assert.Nil(t, inspect(d, m, entry("T1", base), 1))
	m.inside["T1"] = true
	assert.Nil(t, inspect(d, m, exit("T1", base.Add(time.Hour)), 2))
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, DefaultReentryWindow, d.Window())
}

func TestDetector_DuplicateEntry(t *testing.T) {
	d := NewDetector(DefaultReentryWindow)
	m := newFakeMembership()
	m.inside["T1"] = true
	// A recent exit must not turn a duplicate into a re-entry.
	m.lastExit["T1"] = base

	rec := inspect(d, m, entry("T1", base.Add(time.Minute)), 7)
	require.NotNil(t, rec)
	assert.Equal(t, DuplicateEntry, rec.Kind)
	assert.Equal(t, int64(7), rec.Seq)
	assert.Equal(t, "T1", rec.TicketID)
	assert.Equal(t, 1, d.Count(DuplicateEntry))
	assert.Equal(t, 0, d.Count(RapidReentry))
}

func TestDetector_ExitWithoutEntry(t *testing.T) {
	d := NewDetector(DefaultReentryWindow)
	m := newFakeMembership()

	rec := inspect(d, m, exit("T2", base), 1)
	require.NotNil(t, rec)
	assert.Equal(t, ExitWithoutEntry, rec.Kind)
}

func TestDetector_RapidReentry(t *testing.T) {
	tests := []struct {
		name      string
		sinceExit time.Duration
		flagged   bool
	}{
		{"two minutes", 2 * time.Minute, true},
		{"exactly the window", 5 * time.Minute, true},
		{"just past the window", 5*time.Minute + time.Second, false},
		{"an hour later", time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(DefaultReentryWindow)
			m := newFakeMembership()
			m.lastExit["T1"] = base

			rec := inspect(d, m, entry("T1", base.Add(tt.sinceExit)), 3)
			if !tt.flagged {
				assert.Nil(t, rec)
				return
			}
			require.NotNil(t, rec)
			assert.Equal(t, RapidReentry, rec.Kind)
			assert.Equal(t, tt.sinceExit, rec.SinceExit)
		})
	}
}

func TestDetector_CustomWindow(t *testing.T) {
	d := NewDetector(time.Minute)
	m := newFakeMembership()
	m.lastExit["T1"] = base

	assert.Nil(t, inspect(d, m, entry("T1", base.Add(2*time.Minute)), 1))
}

func TestDetector_LogIsAppendOnlyCopy(t *testing.T) {
	d := NewDetector(DefaultReentryWindow)
	m := newFakeMembership()

	inspect(d, m, exit("T1", base), 1)
	inspect(d, m, exit("T1", base.Add(time.Minute)), 2)
	inspect(d, m, exit("T2", base.Add(2*time.Minute)), 3)

	log := d.Log()
	require.Len(t, log, 3)
	log[0].TicketID = "mutated"

	again := d.Log()
	assert.Equal(t, "T1", again[0].TicketID)
	assert.Equal(t, []int64{1, 2, 3}, []int64{again[0].Seq, again[1].Seq, again[2].Seq})
	assert.Equal(t, []string{"T1", "T2"}, d.Tickets(ExitWithoutEntry))
}

// inspect classifies ev and records the result, as the engine does once a
// scan is applied.
func inspect(d *Detector, m Membership, ev scan.Event, seq int64) *Record {
	rec := d.Classify(m, ev, seq)
	if rec != nil {
		d.Append(*rec)
	}
	return rec
}

func TestDetector_ClassifyDoesNotRecord(t *testing.T) {
	d := NewDetector(0)
	m := newFakeMembership()

	rec := d.Classify(m, exit("T2", base), 4)
	require.NotNil(t, rec)
	assert.Equal(t, ExitWithoutEntry, rec.Kind)
	assert.Equal(t, int64(4), rec.Seq)
	assert.Zero(t, d.Len())
	assert.Empty(t, d.Log())

	d.Append(*rec)
	assert.Equal(t, 1, d.Count(ExitWithoutEntry))
	assert.Equal(t, []string{"T2"}, d.Tickets(ExitWithoutEntry))
}
