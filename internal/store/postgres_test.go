package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMessageID(t *testing.T) {
	id := NewUUIDv7()

	got, ok := parseMessageID(id.String())
	require.True(t, ok)
	require.Equal(t, id, got)

	for _, bad := range []string{"", "not-an-id", newULID(), "0123456789abcdef01234567"} {
		_, ok := parseMessageID(bad)
		require.False(t, ok, "id %q", bad)
	}
}
