package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort lexicographically by creation
// time, which makes them usable both as stable user ids and as the sort key
// that orders OTP records newest-first.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
