package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunLogRequiresIDs(t *testing.T) {
	_, err := NewRunLog("", "run1")
	require.Error(t, err)

	_, err = NewRunLog(t.TempDir(), "")
	require.Error(t, err)
}

func TestRunLogCreatesRunDirectory(t *testing.T) {
	base := t.TempDir()
	l, err := NewRunLog(base, "abc123")
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, filepath.Join(base, "testrun-abc123"), l.RunDir())
	assert.DirExists(t, l.RunDir())
	assert.Equal(t, "abc123", l.RunID())
}

func TestTestWriterIsolatesTests(t *testing.T) {
	l, err := NewRunLog(t.TempDir(), "run1")
	require.NoError(t, err)

	w1, err := l.TestWriter("Ping Test")
	require.NoError(t, err)
	w2, err := l.TestWriter("Throughput")
	require.NoError(t, err)

	fmt.Fprintln(w1, "ping output")
	fmt.Fprintln(w2, "throughput output")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(l.RunDir(), "Ping_Test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ping output")
	assert.NotContains(t, string(data), "throughput output")
}

func TestTestWriterAppendsOnRepeatedCalls(t *testing.T) {
	l, err := NewRunLog(t.TempDir(), "run1")
	require.NoError(t, err)

	w1, err := l.TestWriter("same")
	require.NoError(t, err)
	fmt.Fprintln(w1, "first run")
	w2, err := l.TestWriter("same")
	require.NoError(t, err)
	fmt.Fprintln(w2, "second run")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(l.RunDir(), "same.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "first run")
	assert.Contains(t, string(data), "second run")
}

func TestWriteSummaryAndHeader(t *testing.T) {
	l, err := NewRunLog(t.TempDir(), "run1")
	require.NoError(t, err)

	require.NoError(t, l.LogTestHeader("Ping"))
	require.NoError(t, l.WriteSummary("2 passed, 0 failed\n"))
	require.NoError(t, l.Close())

	series, err := os.ReadFile(filepath.Join(l.RunDir(), "series.log"))
	require.NoError(t, err)
	assert.Contains(t, string(series), "=== Ping")

	summary, err := os.ReadFile(filepath.Join(l.RunDir(), "summary.log"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "2 passed")
}

func TestAsyncFileRejectsWritesAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	af, err := NewAsyncFile(path)
	require.NoError(t, err)

	n, err := af.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.NoError(t, af.Close())

	_, err = af.Write([]byte("late"))
	require.Error(t, err)
	// double close is safe
	require.NoError(t, af.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
