// Package ids generates identifiers for accounts, roles and requests.
package ids

import (
	"github.com/oklog/ulid/v2"
)

// New returns a ULID string. Ids sort by creation time and are monotonic
// within the same millisecond.
func New() string {
	return ulid.Make().String()
}

// Valid reports whether s is a well-formed ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
