package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateToUnix_RoundTrip(t *testing.T) {
	ts, err := DateToUnix("2024-03-15")
	require.NoError(t, err)

	assert.Equal(t, int64(1710460800), ts)
	assert.Equal(t, "2024-03-15", UnixToDate(ts))
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "2024/03/15", "15-03-2024", "2024-13-01"} {
		_, err := ParseDate(in)
		assert.Error(t, err, in)
	}
}

func TestTruncateToDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2024, 3, 15, 1, 30, 0, 0, loc) // 2024-03-14 23:30 UTC

	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), TruncateToDay(in))
}
