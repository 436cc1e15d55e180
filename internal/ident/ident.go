// Package ident normalizes identifiers coming from scanners and ticket exports.
package ident

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize trims surrounding whitespace and applies Unicode NFC so that
// visually identical identifiers from different sources compare equal.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
