// Package ticket implements the ticket directory consulted on every scan.
//
// The directory is built once from an external ticket list and is read-only
// afterwards, so lookups are safe from any number of goroutines without
// locking. Lookup is a single map access.
package ticket
