package scan

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// Source yields scan events in stream order.
// Next returns io.EOF once the stream is exhausted.
type Source interface {
	Next(ctx context.Context) (Event, error)
}

// SliceSource replays an in-memory event list.
type SliceSource struct {
	events []Event
	pos    int
}

// NewSliceSource returns a source over events. The slice is not copied.
func NewSliceSource(events []Event) *SliceSource {
	return &SliceSource{events: events}
}

func (s *SliceSource) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	if s.pos >= len(s.events) {
		return Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// maxLineSize bounds a single JSON record.
const maxLineSize = 1 << 20

// LineSource reads one JSON scan record per line. Blank lines are skipped.
// A line that fails to decode is reported as an error wrapping
// ErrMalformedEvent; the source stays usable and the next call reads the
// following line.
type LineSource struct {
	sc   *bufio.Scanner
	line int
}

// NewLineSource reads JSON-lines scan records from r.
func NewLineSource(r io.Reader) *LineSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineSource{sc: sc}
}

func (s *LineSource) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				return Event{}, fmt.Errorf("read scan line %d: %w", s.line+1, err)
			}
			return Event{}, io.EOF
		}
		s.line++

		data := bytes.TrimSpace(s.sc.Bytes())
		if len(data) == 0 {
			continue
		}

		ev, err := Decode(data)
		if err != nil {
			return Event{}, fmt.Errorf("line %d: %w", s.line, err)
		}
		return ev, nil
	}
}

// ReadAll drains src into a slice.
func ReadAll(ctx context.Context, src Source) ([]Event, error) {
	var events []Event
	for {
		ev, err := src.Next(ctx)
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

// ReadFile decodes a JSON-lines scan file.
func ReadFile(ctx context.Context, path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scan file: %w", err)
	}
	defer f.Close()
	return ReadAll(ctx, NewLineSource(f))
}
