package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/roach88/turnstile/internal/scan"
)

// AppendScan stores a scan and returns its row id. The scan is stored as
// received; validation happens at processing time.
func (s *Store) AppendScan(ctx context.Context, ev scan.Event) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (ticket_id, gate, scan_time, scan_type)
		VALUES (?, ?, ?, ?)
	`, ev.TicketID, ev.Gate, ev.At.UTC().UnixNano(), string(ev.Direction))
	if err != nil {
		return 0, fmt.Errorf("append scan %s: %w", ev, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append scan %s: last insert id: %w", ev, err)
	}
	return id, nil
}

// FlagSuspicious marks a stored scan as anomalous.
func (s *Store) FlagSuspicious(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scans SET flagged_suspicious = 1 WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("flag scan %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("flag scan %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("flag scan %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// SuspiciousScans returns the ids of flagged scans in ascending order.
func (s *Store) SuspiciousScans(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM scans WHERE flagged_suspicious = 1 ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query suspicious scans: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suspicious scans: %w", err)
	}
	return ids, nil
}

// CountScans returns the number of stored scans.
func (s *Store) CountScans(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return n, nil
}

// Scans returns the stored scans in arrival order. Stored scans are never
// reordered by timestamp: a late scan reaches the engine where it arrived and
// is refused there as out of order.
//
// A non-zero until ends the stream before the first stored scan later than
// until, which is where a replay to until stops reading. A zero until returns
// every scan.
//
// The source holds a database connection until it reports io.EOF or is
// closed. Callers that may stop early must Close it.
func (s *Store) Scans(ctx context.Context, until time.Time) (*ScanSource, error) {
	bound := int64(math.MaxInt64)
	if !until.IsZero() {
		bound = until.UTC().UnixNano()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticket_id, gate, scan_time, scan_type
		FROM scans
		WHERE id < COALESCE((SELECT MIN(id) FROM scans WHERE scan_time > ?), ?)
		ORDER BY id ASC
	`, bound, int64(math.MaxInt64))
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	return &ScanSource{rows: rows}, nil
}

// ScanSource streams stored scans. It implements scan.Source.
type ScanSource struct {
	rows   *sql.Rows
	lastID int64
	done   bool
}

var _ scan.Source = (*ScanSource)(nil)

// Next returns the next stored scan, or io.EOF after the last one.
func (s *ScanSource) Next(ctx context.Context) (scan.Event, error) {
	if s.done {
		return scan.Event{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		s.Close()
		return scan.Event{}, err
	}

	if !s.rows.Next() {
		err := s.rows.Err()
		s.Close()
		if err != nil {
			return scan.Event{}, fmt.Errorf("iterate scans: %w", err)
		}
		return scan.Event{}, io.EOF
	}

	var (
		ev       scan.Event
		nanos    int64
		scanType string
	)
	if err := s.rows.Scan(&s.lastID, &ev.TicketID, &ev.Gate, &nanos, &scanType); err != nil {
		s.Close()
		return scan.Event{}, fmt.Errorf("scan row: %w", err)
	}
	ev.At = time.Unix(0, nanos).UTC()
	ev.Direction = scan.Direction(scanType)
	return ev, nil
}

// LastID returns the row id of the scan most recently returned by Next.
func (s *ScanSource) LastID() int64 {
	return s.lastID
}

// Close releases the underlying rows. Safe to call more than once.
func (s *ScanSource) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.rows.Close()
}
