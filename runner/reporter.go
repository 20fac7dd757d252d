package runner

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/testexec/testexec/types"
)

// Decision is the sequencer's verdict on what follows a completed test.
type Decision int

const (
	// DecisionAdvance means the next test was dispatched.
	DecisionAdvance Decision = iota
	// DecisionComplete means the last test in the series finished.
	DecisionComplete
	// DecisionHaltStop means a stop request was consumed.
	DecisionHaltStop
	// DecisionHaltFailure means a failing test halted the series.
	DecisionHaltFailure
	// DecisionAbort means the test could not be executed at all.
	DecisionAbort
)

// Halted reports whether the decision ends the run.
func (d Decision) Halted() bool {
	return d != DecisionAdvance
}

// Reporter translates completions into item state and user-facing messages.
type Reporter struct {
	logger log.Logger
}

// NewReporter creates a reporter.
func NewReporter(logger log.Logger) *Reporter {
	if logger == nil {
		logger = log.Root()
	}
	return &Reporter{logger: logger}
}

// Record applies a completion to its item. A test that could not run is
// marked failed with the error text so the series view shows what happened.
func (r *Reporter) Record(item *types.TestItem, c Completion) {
	item.Duration = c.Duration
	if c.Err != nil {
		item.Status = types.StatusFail
		item.Error = c.Err.Error()
		return
	}
	item.Status = c.Outcome
	item.Error = ""
}

// Message produces the status line shown when a run pauses or ends.
func (r *Reporter) Message(d Decision, item *types.TestItem) string {
	switch d {
	case DecisionComplete:
		return "All tests completed"
	case DecisionHaltStop:
		return "Series stopped"
	case DecisionHaltFailure:
		return fmt.Sprintf("Test %q failed, series halted", item.Entry.Name)
	case DecisionAbort:
		return fmt.Sprintf("Could not run test %q: %s", item.Entry.Name, item.Error)
	default:
		return ""
	}
}
