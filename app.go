// Package testexec runs a series of scripted tests against equipment or
// services reachable from the local machine. Tests execute strictly one at a
// time; a single presentation loop owns all series state and consumes worker
// completions, queued plots and stop requests from one select loop.
package testexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/testexec/testexec/loader"
	"github.com/testexec/testexec/logging"
	"github.com/testexec/testexec/metrics"
	"github.com/testexec/testexec/plot"
	"github.com/testexec/testexec/runner"
	"github.com/testexec/testexec/series"
	"github.com/testexec/testexec/service"
	"github.com/testexec/testexec/types"
)

// App wires the loader, sequencer, plot queue and reporting together for one
// invocation of the tool.
type App struct {
	config  *Config
	version string
	logger  log.Logger
	runID   string

	loader   *loader.Loader
	seq      *runner.Sequencer
	reporter *runner.Reporter
	plots    *runner.PlotQueue
	renderer *plot.Renderer
	runLog   *logging.RunLog
	svc      *service.Service

	series   *series.Series
	items    []*types.TestItem
	settings *types.SettingsMap

	archiveDir string
	running    atomic.Bool
}

// New creates the application for one run.
func New(config *Config, version string) (*App, error) {
	runID := uuid.New().String()
	logger := config.Log
	if logger == nil {
		logger = log.Root()
	}
	logger.Debug("Creating test runner", "version", version, "run_id", runID)

	runLog, err := logging.NewRunLog(config.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log: %w", err)
	}

	plotDir := config.PlotDir
	if plotDir == "" {
		plotDir = filepath.Join(runLog.RunDir(), "plots")
	}
	renderer, err := plot.NewRenderer(logger, plotDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create plot renderer: %w", err)
	}

	app := &App{
		config:   config,
		version:  version,
		logger:   logger,
		runID:    runID,
		loader:   loader.New(logger),
		reporter: runner.NewReporter(logger),
		plots:    runner.NewPlotQueue(),
		renderer: renderer,
		runLog:   runLog,
	}
	app.seq = runner.NewSequencer(logger, runner.ExecutorFunc(app.executeTest))
	if config.Serve {
		app.svc = service.New(config.HealthzAddr, config.MetricsAddr)
	}
	return app, nil
}

// RunID returns this run's identifier.
func (a *App) RunID() string {
	return a.runID
}

// openSeries locates the series to run, loads it and prepares the loader,
// the item list and the merged settings.
func (a *App) openSeries() error {
	descriptor, err := a.locateDescriptor()
	if err != nil {
		return err
	}

	s, err := series.Load(descriptor)
	if err != nil {
		return err
	}

	a.series = s
	a.items = s.Items()
	a.settings = series.LoadSettings(s.Dir, nil)
	a.loader.Open(s.Dir)
	if err := a.seq.Bind(s.Len()); err != nil {
		return err
	}

	a.logger.Info("Opened test series", "dir", s.Dir, "tests", s.Len())

	lr := &series.LastRun{TestDir: s.Dir, Descriptor: s.Descriptor, OpenedAt: time.Now()}
	if err := lr.Write(a.config.StateFile); err != nil {
		// losing the resume record does not affect this run
		a.logger.Warn("Failed to record last run", "err", err)
	}
	return nil
}

// locateDescriptor resolves the series descriptor path from the configured
// source: an archive, a test directory, or the last-run record.
func (a *App) locateDescriptor() (string, error) {
	if a.config.Archive != "" {
		dir, err := series.OpenArchive(a.config.Archive)
		if err != nil {
			return "", err
		}
		a.archiveDir = dir
		return filepath.Join(dir, series.DefaultDescriptorName), nil
	}

	if a.config.TestDir != "" {
		if a.config.Descriptor != "" {
			return a.config.Descriptor, nil
		}
		return filepath.Join(a.config.TestDir, series.DefaultDescriptorName), nil
	}

	if a.config.Descriptor != "" {
		return a.config.Descriptor, nil
	}

	if !a.config.NoResume {
		lr, err := series.ReadLastRun(a.config.StateFile)
		if err != nil {
			return "", err
		}
		if lr != nil {
			a.logger.Info("Resuming last opened series", "descriptor", lr.Descriptor)
			return lr.Descriptor, nil
		}
	}

	return "", errors.New("no test directory, archive or series descriptor given and nothing to resume")
}

// executeTest runs the test at index. Called by the sequencer's worker
// goroutine; it only reads series state that is fixed for the whole run.
func (a *App) executeTest(ctx context.Context, index int) (types.Status, error) {
	entry := a.series.Tests[index]

	handle, err := a.loader.Resolve(entry.Script)
	if err != nil {
		return "", err
	}

	out, err := a.runLog.TestWriter(entry.Name)
	if err != nil {
		return "", err
	}
	if a.config.Timestamps {
		out = logging.NewTimestamper(out)
	}
	if err := a.runLog.LogTestHeader(entry.Name); err != nil {
		a.logger.Warn("Failed to write series log header", "err", err)
	}

	settings := a.settings.Clone()
	settings.Set(series.ReservedTestDirKey, a.series.Dir)

	inv := loader.Invocation{
		Test:     entry.Name,
		Args:     entry.Args,
		Settings: settings.Raw(),
	}
	a.logger.Info("Running test", "name", entry.Name, "script", handle.Path)
	return handle.Run(ctx, inv, a.plots, out)
}

// startRun kicks off the configured run mode.
func (a *App) startRun(ctx context.Context) (int, error) {
	switch {
	case a.config.SelectedTest != "":
		idx, ok := a.series.IndexOf(a.config.SelectedTest)
		if !ok {
			return 0, fmt.Errorf("test %q not found in series", a.config.SelectedTest)
		}
		return idx, a.seq.RunSelected(ctx, idx)
	case a.config.FromTest != "":
		idx, ok := a.series.IndexOf(a.config.FromTest)
		if !ok {
			return 0, fmt.Errorf("test %q not found in series", a.config.FromTest)
		}
		return idx, a.seq.RunSelectedContinue(ctx, idx)
	default:
		return 0, a.seq.RunAll(ctx)
	}
}

// Run executes the series and blocks until it completes, fails or is
// stopped. The returned error encodes the process exit code.
func (a *App) Run(ctx context.Context) error {
	a.running.Store(true)
	defer a.running.Store(false)

	if a.svc != nil {
		a.svc.Start(ctx)
		defer a.svc.Shutdown()
	}
	if a.archiveDir != "" {
		defer os.RemoveAll(a.archiveDir)
	}
	defer a.runLog.Close()

	if err := a.openSeries(); err != nil {
		metrics.RecordErrorDetails("series open failed", err)
		return NewRuntimeError(err)
	}

	startIdx, err := a.startRun(ctx)
	if err != nil {
		metrics.RecordErrorDetails("run start failed", err)
		return NewRuntimeError(err)
	}
	a.items[startIdx].Status = types.StatusRunning

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	ticker := time.NewTicker(a.config.PlotInterval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case c := <-a.seq.Completions():
			// everything the finished test queued renders before its
			// completion is reported
			for _, p := range a.plots.Drain() {
				a.renderPlot(p)
			}
			item := a.items[c.Index]
			a.reporter.Record(item, c)
			metrics.RecordTest(a.seriesName(), a.runID, item.Entry.Name, item.Status)

			decision := a.seq.OnTestComplete(ctx, c)
			if decision.Halted() {
				return a.finish(decision, item, time.Since(start))
			}
			a.items[c.Index+1].Status = types.StatusRunning

		case <-ticker.C:
			if p, ok := a.plots.TryNext(); ok {
				a.renderPlot(p)
			}

		case <-sigs:
			a.seq.RequestStop()

		case <-ctx.Done():
			a.seq.RequestStop()
		}
	}
}

// finish reports the run's end state and maps the decision to the process
// level error contract.
func (a *App) finish(decision runner.Decision, last *types.TestItem, duration time.Duration) error {
	stats := computeStats(a.items, duration)
	printResultsTable(os.Stdout, a.seriesName(), a.items, stats)

	if msg := a.reporter.Message(decision, last); msg != "" {
		a.logger.Info(msg)
	}

	if err := a.runLog.WriteSummary(summaryText(a.seriesName(), a.items, stats)); err != nil {
		a.logger.Warn("Failed to write run summary", "err", err)
	}

	metrics.RecordSeries(a.seriesName(), a.runID, string(stats.Overall()),
		stats.Total, stats.Passed, stats.Failed, duration)

	switch decision {
	case runner.DecisionHaltFailure:
		return NewTestFailureError(a.reporter.Message(decision, last))
	case runner.DecisionAbort:
		return NewRuntimeError(fmt.Errorf("test %q could not run: %s", last.Entry.Name, last.Error))
	default:
		return nil
	}
}

func (a *App) renderPlot(p types.PlotPayload) {
	path, err := a.renderer.Render(p)
	if err != nil {
		a.logger.Warn("Failed to render plot", "title", p.Title, "err", err)
		metrics.RecordErrorDetails("plot render failed", err)
		return
	}
	metrics.RecordPlot(a.runID)
	a.logger.Debug("Plot ready", "path", path)
}

func (a *App) seriesName() string {
	if a.series == nil {
		return ""
	}
	return filepath.Base(a.series.Dir)
}

// Running reports whether a run is in progress.
func (a *App) Running() bool {
	return a.running.Load()
}
