package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testexec/testexec/types"
)

type plotRecorder struct {
	payloads []types.PlotPayload
}

func (r *plotRecorder) Push(p types.PlotPayload) {
	r.payloads = append(r.payloads, p)
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0755))
}

func TestNormalizeRef(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"speedtest", "speedtest"},
		{"speedtest.py", "speedtest"},
		{"speedtest.sh", "speedtest"},
		{"speedtest.py.py", "speedtest.py"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeRef(tt.ref))
	}
}

func TestResolveProbesExtensions(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "pingtest.sh", "#!/bin/sh\n")

	l := New(nil)
	l.Open(dir)

	// descriptor may reference the script with or without its extension
	for _, ref := range []string{"pingtest", "pingtest.sh", "pingtest.py"} {
		h, err := l.Resolve(ref)
		require.NoError(t, err, "ref %q", ref)
		assert.Equal(t, "pingtest", h.Name)
		assert.Equal(t, filepath.Join(dir, "pingtest.sh"), h.Path)
	}
}

func TestResolveMissingScriptIsLoadError(t *testing.T) {
	l := New(nil)
	l.Open(t.TempDir())

	_, err := l.Resolve("nosuch")
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
	assert.Contains(t, err.Error(), "nosuch")
}

func TestResolveWithoutOpenFails(t *testing.T) {
	l := New(nil)
	_, err := l.Resolve("anything")
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
}

func TestHandleGoesStaleOnOpen(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeScript(t, dirA, "shared.sh", "#!/bin/sh\n")
	writeScript(t, dirB, "shared.sh", "#!/bin/sh\n")

	l := New(nil)
	l.Open(dirA)
	h, err := l.Resolve("shared")
	require.NoError(t, err)
	assert.False(t, h.Stale())

	l.Open(dirB)
	assert.True(t, h.Stale())

	_, err = h.Run(context.Background(), Invocation{Test: "shared"}, nil, os.Stderr)
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
}

func TestHandleGoesStaleOnClearCache(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.sh", "#!/bin/sh\n")

	l := New(nil)
	l.Open(dir)
	h, err := l.Resolve("a")
	require.NoError(t, err)

	l.ClearCache()
	assert.True(t, h.Stale())

	// a fresh resolve against the same directory works again
	h2, err := l.Resolve("a")
	require.NoError(t, err)
	assert.False(t, h2.Stale())
}

func TestRunStreamsEvents(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "events.sh", `#!/bin/sh
echo '{"action":"output","text":"measuring"}'
echo '{"action":"plot","title":"Latency","x":[1,2],"y":[10,20]}'
echo 'stray diagnostic line'
echo '{"action":"result","status":"pass"}'
`)

	l := New(nil)
	l.Open(dir)
	h, err := l.Resolve("events")
	require.NoError(t, err)

	plots := &plotRecorder{}
	var out strings.Builder
	status, err := h.Run(context.Background(), Invocation{Test: "events"}, plots, &out)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPass, status)

	require.Len(t, plots.payloads, 1)
	assert.Equal(t, "Latency", plots.payloads[0].Title)
	assert.Equal(t, []float64{10, 20}, plots.payloads[0].Y)

	assert.Contains(t, out.String(), "measuring")
	assert.Contains(t, out.String(), "stray diagnostic line")
}

func TestRunReceivesInvocationOnStdin(t *testing.T) {
	dir := t.TempDir()
	// report which invocation fields made it through
	writeScript(t, dir, "echoargs.sh", `#!/bin/sh
line=$(cat)
case "$line" in
*echoargs*) echo '{"action":"output","text":"saw test name"}' ;;
esac
case "$line" in
*localhost*) echo '{"action":"output","text":"saw settings"}' ;;
esac
echo '{"action":"result","status":"done"}'
`)

	l := New(nil)
	l.Open(dir)
	h, err := l.Resolve("echoargs")
	require.NoError(t, err)

	var out strings.Builder
	inv := Invocation{
		Test:     "echoargs",
		Args:     map[string]any{"count": 3},
		Settings: map[string]any{"host": "localhost"},
	}
	status, err := h.Run(context.Background(), inv, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, status)
	assert.Contains(t, out.String(), "saw test name")
	assert.Contains(t, out.String(), "saw settings")
}

func TestRunUnknownOutcomeNormalizesToDone(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "newfangled.sh", `#!/bin/sh
echo '{"action":"result","status":"flaky-but-fine"}'
`)

	l := New(nil)
	l.Open(dir)
	h, err := l.Resolve("newfangled")
	require.NoError(t, err)

	status, err := h.Run(context.Background(), Invocation{Test: "newfangled"}, nil, os.Stderr)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, status)
}

func TestRunExitWithoutResult(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "clean.sh", "#!/bin/sh\nexit 0\n")
	writeScript(t, dir, "crash.sh", "#!/bin/sh\nexit 3\n")

	l := New(nil)
	l.Open(dir)

	h, err := l.Resolve("clean")
	require.NoError(t, err)
	status, err := h.Run(context.Background(), Invocation{Test: "clean"}, nil, os.Stderr)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, status)

	h, err = l.Resolve("crash")
	require.NoError(t, err)
	_, err = h.Run(context.Background(), Invocation{Test: "crash"}, nil, os.Stderr)
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
}

func TestRunFailOutcomeIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "failing.sh", `#!/bin/sh
echo '{"action":"result","status":"fail"}'
exit 1
`)

	l := New(nil)
	l.Open(dir)
	h, err := l.Resolve("failing")
	require.NoError(t, err)

	status, err := h.Run(context.Background(), Invocation{Test: "failing"}, nil, os.Stderr)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFail, status)
	assert.True(t, status.Halting())
}
