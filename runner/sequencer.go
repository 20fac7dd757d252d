// Package runner drives the execution of a test series. The Sequencer is a
// small state machine owned by the presentation loop; it launches one worker
// goroutine per test and reports back over a completion channel, so series
// state is only ever touched from a single goroutine.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/testexec/testexec/types"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("a test run is already in progress")

// ErrNoSeries is returned when a run is requested before a series is bound.
var ErrNoSeries = errors.New("no test series is loaded")

// State is the sequencer's lifecycle state.
type State string

const (
	// StateIdle means no test is running and run requests are accepted.
	StateIdle State = "idle"
	// StateRunning means a worker is executing a test.
	StateRunning State = "running"
	// StateStopping means a worker is executing and the series will halt
	// once it completes.
	StateStopping State = "stopping"
)

// Executor runs the test at an index and returns its outcome. Infrastructure
// failures (script missing, stale handle, crashed interpreter) come back as
// the error; a test that ran and reported a failing result is an outcome,
// not an error.
type Executor interface {
	Execute(ctx context.Context, index int) (types.Status, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, index int) (types.Status, error)

func (f ExecutorFunc) Execute(ctx context.Context, index int) (types.Status, error) {
	return f(ctx, index)
}

// Completion reports one finished test back to the presentation loop.
type Completion struct {
	Index    int
	Outcome  types.Status
	Err      error
	Duration time.Duration
}

// Sequencer walks a series in order, one test at a time.
type Sequencer struct {
	logger      log.Logger
	exec        Executor
	completions chan Completion

	mu            sync.Mutex
	state         State
	count         int
	current       int
	stopRequested bool
}

// NewSequencer creates an idle sequencer over an executor.
func NewSequencer(logger log.Logger, exec Executor) *Sequencer {
	if logger == nil {
		logger = log.Root()
	}
	return &Sequencer{
		logger:      logger,
		exec:        exec,
		completions: make(chan Completion, 1),
		state:       StateIdle,
	}
}

// Completions returns the channel completions arrive on. Exactly one value
// is sent per dispatched test.
func (s *Sequencer) Completions() <-chan Completion {
	return s.completions
}

// State returns the current lifecycle state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running reports whether a worker is currently executing a test.
func (s *Sequencer) Running() bool {
	return s.State() != StateIdle
}

// Bind sets the number of tests in the currently loaded series. It only
// takes effect while idle; a series switch is refused mid-run upstream.
func (s *Sequencer) Bind(count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.count = count
	s.stopRequested = false
	return nil
}

// RunAll starts the series from the first test.
func (s *Sequencer) RunAll(ctx context.Context) error {
	return s.start(ctx, 0, false)
}

// RunSelected runs exactly one test. It arms a stop request before
// dispatching, so the series halts at the same reporting boundary a manual
// stop would.
func (s *Sequencer) RunSelected(ctx context.Context, index int) error {
	return s.start(ctx, index, true)
}

// RunSelectedContinue starts at the selected test and continues through the
// rest of the series.
func (s *Sequencer) RunSelectedContinue(ctx context.Context, index int) error {
	return s.start(ctx, index, false)
}

func (s *Sequencer) start(ctx context.Context, index int, oneShot bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	if s.count == 0 {
		return ErrNoSeries
	}
	if index < 0 || index >= s.count {
		return fmt.Errorf("test index %d out of range [0,%d)", index, s.count)
	}
	s.state = StateRunning
	s.stopRequested = oneShot
	if oneShot {
		s.state = StateStopping
	}
	s.current = index
	s.dispatchLocked(ctx, index)
	return nil
}

// RequestStop asks the series to halt after the test currently running.
// It is idempotent and a no-op while idle; the request is consumed when the
// current test's completion is processed.
func (s *Sequencer) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return
	}
	if !s.stopRequested {
		s.logger.Info("Stop requested, halting after current test")
	}
	s.stopRequested = true
	s.state = StateStopping
}

// OnTestComplete consumes a completion and decides what happens next. When
// the decision is DecisionAdvance the next test is already dispatched on
// return; for every other decision the sequencer is idle again.
func (s *Sequencer) OnTestComplete(ctx context.Context, c Completion) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case c.Err != nil:
		s.logger.Error("Test could not run", "index", c.Index, "err", c.Err)
		s.toIdleLocked()
		return DecisionAbort
	case c.Outcome.Halting():
		s.logger.Warn("Test failed, halting series", "index", c.Index)
		s.toIdleLocked()
		return DecisionHaltFailure
	case s.stopRequested:
		s.toIdleLocked()
		return DecisionHaltStop
	case c.Index+1 >= s.count:
		s.toIdleLocked()
		return DecisionComplete
	default:
		s.current = c.Index + 1
		s.dispatchLocked(ctx, s.current)
		return DecisionAdvance
	}
}

func (s *Sequencer) toIdleLocked() {
	s.state = StateIdle
	s.stopRequested = false
}

// dispatchLocked launches the worker for one test. Exactly one worker exists
// at a time; it communicates only through the completion channel.
func (s *Sequencer) dispatchLocked(ctx context.Context, index int) {
	go func() {
		start := time.Now()
		var c Completion
		defer func() {
			if r := recover(); r != nil {
				c = Completion{
					Index:    index,
					Err:      fmt.Errorf("test execution panicked: %v", r),
					Duration: time.Since(start),
				}
			}
			s.completions <- c
		}()
		outcome, err := s.exec.Execute(ctx, index)
		c = Completion{
			Index:    index,
			Outcome:  outcome,
			Err:      err,
			Duration: time.Since(start),
		}
	}()
}
