package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes why a scan was refused.
type ErrorCode string

const (
	// ErrCodeMalformedEvent means the scan is missing a required field.
	ErrCodeMalformedEvent ErrorCode = "MALFORMED_EVENT"

	// ErrCodeUnknownTicket means the scan names a ticket absent from the directory.
	ErrCodeUnknownTicket ErrorCode = "UNKNOWN_TICKET"

	// ErrCodeOutOfOrder means the scan is older than the last applied scan.
	ErrCodeOutOfOrder ErrorCode = "OUT_OF_ORDER_EVENT"

	// ErrCodeConsistency means the ledger refused a transition the controller
	// believed valid. This indicates a bug, not bad input.
	ErrCodeConsistency ErrorCode = "INTERNAL_CONSISTENCY"
)

// ProcessingError is returned when a scan is refused. The scan has not been
// applied.
type ProcessingError struct {
	Code     ErrorCode
	Message  string
	TicketID string

	// Seq is the sequence number assigned before the failure, or 0 if the
	// scan was refused before sequencing.
	Seq int64

	Details map[string]string
	Err     error
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.TicketID != "" {
		msg = fmt.Sprintf("%s (ticket=%s)", msg, e.TicketID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// CodeOf returns the error code carried by err, if any.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsUnknownTicket reports whether err refused a scan for an unregistered ticket.
func IsUnknownTicket(err error) bool { return hasCode(err, ErrCodeUnknownTicket) }

// IsOutOfOrder reports whether err refused a scan that went back in time.
func IsOutOfOrder(err error) bool { return hasCode(err, ErrCodeOutOfOrder) }

// IsConsistencyViolation reports whether err is an internal consistency failure.
func IsConsistencyViolation(err error) bool { return hasCode(err, ErrCodeConsistency) }

// IsMalformed reports whether err refused a malformed scan.
func IsMalformed(err error) bool { return hasCode(err, ErrCodeMalformedEvent) }
