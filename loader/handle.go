package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/testexec/testexec/types"
)

// Event action types emitted by test scripts, one JSON object per stdout line.
const (
	ActionPlot   = "plot"
	ActionOutput = "output"
	ActionResult = "result"
)

// Event is a single line of the script protocol.
type Event struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`   // output events
	Status string `json:"status,omitempty"` // result events
	types.PlotPayload
}

// Invocation is the run request handed to a script on stdin.
type Invocation struct {
	Test     string         `json:"test"`
	Args     map[string]any `json:"args,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// PlotSink receives plot requests as the script emits them.
type PlotSink interface {
	Push(p types.PlotPayload)
}

// ModuleHandle is a resolved, runnable test script. A handle stays valid
// until the loader opens another directory or clears its cache; running a
// stale handle is an error because its files may no longer exist or may
// belong to a different series.
type ModuleHandle struct {
	Name string
	Path string

	loader *Loader
	gen    uint64
}

// Stale reports whether the handle was invalidated by a later Open or
// ClearCache on its loader.
func (h *ModuleHandle) Stale() bool {
	return h.gen != h.loader.currentGen()
}

// Run executes the script and streams its events until it exits. Plot events
// go to plots, output events and non-protocol stdout lines go to out. The
// returned status is the script's reported outcome, normalized; the error is
// non-nil only for load or infrastructure failures, never for a test that
// ran and reported a failing result.
func (h *ModuleHandle) Run(ctx context.Context, inv Invocation, plots PlotSink, out io.Writer) (types.Status, error) {
	if h.Stale() {
		return "", &LoadError{Ref: h.Name, Err: errors.New("handle is stale, test directory changed since resolve")}
	}

	cmd := h.command(ctx)
	cmd.Dir = filepath.Dir(h.Path)

	stdin, err := json.Marshal(inv)
	if err != nil {
		return "", &LoadError{Ref: h.Name, Err: fmt.Errorf("encoding invocation: %w", err)}
	}
	cmd.Stdin = strings.NewReader(string(stdin))
	cmd.Stderr = out

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", &LoadError{Ref: h.Name, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return "", &LoadError{Ref: h.Name, Err: fmt.Errorf("starting script: %w", err)}
	}

	result, scanErr := h.consumeEvents(stdout, plots, out)
	waitErr := cmd.Wait()

	if scanErr != nil {
		return "", &LoadError{Ref: h.Name, Err: scanErr}
	}
	if result == "" {
		// no result event means the script never reached its reporting
		// path, regardless of exit code
		if waitErr != nil {
			return "", &LoadError{Ref: h.Name, Err: fmt.Errorf("script exited without a result: %w", waitErr)}
		}
		return types.StatusDone, nil
	}
	return types.NormalizeOutcome(result), nil
}

// consumeEvents reads the script's stdout line by line until EOF and returns
// the raw status of the last result event seen.
func (h *ModuleHandle) consumeEvents(r io.Reader, plots PlotSink, out io.Writer) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 20*1024*1024)

	var result string
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil || ev.Action == "" {
			// scripts may print freely alongside protocol lines
			fmt.Fprintln(out, string(line))
			continue
		}
		switch ev.Action {
		case ActionPlot:
			if plots != nil {
				plots.Push(ev.PlotPayload)
			}
		case ActionOutput:
			fmt.Fprintln(out, ev.Text)
		case ActionResult:
			result = ev.Status
		}
	}
	return result, scanner.Err()
}

// command builds the exec invocation for the script's flavor. Shell and
// python scripts run through their interpreters so they need no exec bit.
func (h *ModuleHandle) command(ctx context.Context) *exec.Cmd {
	switch filepath.Ext(h.Path) {
	case ".sh":
		return exec.CommandContext(ctx, "sh", h.Path)
	case ".py":
		return exec.CommandContext(ctx, "python3", h.Path)
	default:
		return exec.CommandContext(ctx, h.Path)
	}
}
