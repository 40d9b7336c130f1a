package store

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewUUIDv7 generates a time-ordered UUID v7.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// newULID returns a lexicographically sortable id. ulid.Make is monotonic within
// the process, so ids sort in creation order.
func newULID() string {
	return ulid.Make().String()
}
