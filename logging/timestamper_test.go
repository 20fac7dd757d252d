package logging

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestTimestamperStampsEachLine(t *testing.T) {
	var buf strings.Builder
	ts := NewTimestamper(&buf)
	ts.now = fixedClock()

	n, err := fmt.Fprintf(ts, "first\nsecond\n")
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	assert.Equal(t, "09:26:53.000 first\n09:26:53.000 second\n", buf.String())
}

func TestTimestamperDoesNotRestampPartialLines(t *testing.T) {
	var buf strings.Builder
	ts := NewTimestamper(&buf)
	ts.now = fixedClock()

	_, err := ts.Write([]byte("partial"))
	require.NoError(t, err)
	_, err = ts.Write([]byte(" rest\n"))
	require.NoError(t, err)

	assert.Equal(t, "09:26:53.000 partial rest\n", buf.String())
}
