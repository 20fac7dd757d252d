package testexec

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"

	"github.com/testexec/testexec/flags"
	"github.com/testexec/testexec/series"
)

// Config holds the application configuration
type Config struct {
	TestDir      string        // Test directory to open (empty when Archive or resume is used)
	Archive      string        // Series archive to expand and open
	Descriptor   string        // Explicit series descriptor path, overrides the default name
	SelectedTest string        // Run only this test, then stop
	FromTest     string        // Start at this test and continue
	PlotInterval time.Duration // Polling interval for rendering queued plots
	LogDir       string        // Directory to store run logs and plots
	PlotDir      string        // Plot output directory (empty means plots/ inside the run directory)
	Timestamps   bool          // Prefix captured output lines with timestamps
	StateFile    string        // Path of the last-run record
	NoResume     bool          // Disable the last-run fallback
	Serve        bool          // Expose healthz and metrics endpoints
	HealthzAddr  string
	MetricsAddr  string
	Log          log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	testDir := ctx.String(flags.TestDir.Name)
	archive := ctx.String(flags.Archive.Name)

	var err error
	if testDir != "" {
		testDir, err = filepath.Abs(testDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for test directory: %w", err)
		}
	}
	if archive != "" {
		archive, err = filepath.Abs(archive)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for archive: %w", err)
		}
	}

	descriptor := ctx.String(flags.Series.Name)
	if descriptor != "" {
		descriptor, err = filepath.Abs(descriptor)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for series descriptor: %w", err)
		}
	}

	logDir, err := filepath.Abs(ctx.String(flags.LogDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory: %w", err)
	}

	plotDir := ctx.String(flags.PlotDir.Name)
	if plotDir != "" {
		plotDir, err = filepath.Abs(plotDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for plot directory: %w", err)
		}
	}

	stateFile := ctx.String(flags.StateFile.Name)
	if stateFile == "" {
		stateFile, err = series.DefaultLastRunPath()
		if err != nil {
			return nil, err
		}
	}

	plotInterval := ctx.Duration(flags.PlotInterval.Name)
	if plotInterval <= 0 {
		return nil, errors.New("plot interval must be positive")
	}

	return &Config{
		TestDir:      testDir,
		Archive:      archive,
		Descriptor:   descriptor,
		SelectedTest: ctx.String(flags.Test.Name),
		FromTest:     ctx.String(flags.From.Name),
		PlotInterval: plotInterval,
		LogDir:       logDir,
		PlotDir:      plotDir,
		Timestamps:   ctx.Bool(flags.LogTimestamps.Name),
		StateFile:    stateFile,
		NoResume:     ctx.Bool(flags.NoResume.Name),
		Serve:        ctx.Bool(flags.Serve.Name),
		HealthzAddr:  ctx.String(flags.HealthzAddr.Name),
		MetricsAddr:  ctx.String(flags.MetricsAddr.Name),
		Log:          log,
	}, nil
}
