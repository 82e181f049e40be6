// Package ids mints the identifiers used throughout the platform:
// lowercase, prefixed, Crockford-base32 ULIDs.
package ids

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// FunctionPrefix precedes every function id.
	FunctionPrefix = "fn"
	// DeploymentPrefix precedes every deployment id.
	DeploymentPrefix = "dp"
)

// Pattern matches a valid identifier: a two-letter prefix, a hyphen, and
// a 26-character lowercase Crockford-base32 ULID.
var Pattern = regexp.MustCompile(`^(fn|dp)-[0-9a-hjkmnp-tv-z]{26}$`)

// NewFunctionID mints a new function identifier.
func NewFunctionID() string { return newID(FunctionPrefix) }

// NewDeploymentID mints a new deployment identifier.
func NewDeploymentID() string { return newID(DeploymentPrefix) }

func newID(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return fmt.Sprintf("%s-%s", prefix, toLowerULID(id))
}

// toLowerULID renders a ULID in its canonical lowercase string form.
// ulid.ULID.String() always returns uppercase; the wire format here is
// lowercase throughout.
func toLowerULID(id ulid.ULID) string {
	s := id.String()
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		b[i] = c
	}
	return string(b)
}

// Valid reports whether id matches the platform's identifier shape.
func Valid(id string) bool {
	return Pattern.MatchString(id)
}
