package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	testexec "github.com/testexec/testexec"
	"github.com/testexec/testexec/flags"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "testexec"
	app.Usage = "Scripted test series runner"
	app.Description = "testexec runs an ordered series of test scripts against local equipment and services"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Check for typed runtime errors
			if testexec.IsRuntimeError(err) {
				// For runtime errors, use exit code 2
				cli.HandleExitCoder(cli.Exit(err.Error(), 2))
			} else if testexec.IsTestFailureError(err) {
				// For test failures, use exit code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			} else {
				// For other unspecified errors, default to exit code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			}
		}
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	logger := setupLogging(ctx)

	cfg, err := testexec.NewConfig(ctx, logger)
	if err != nil {
		return testexec.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	app, err := testexec.New(cfg, Version)
	if err != nil {
		return testexec.NewRuntimeError(fmt.Errorf("failed to create test runner: %w", err))
	}

	return app.Run(ctx.Context)
}

// setupLogging installs a terminal handler at the configured level as the
// global logger.
func setupLogging(ctx *cli.Context) log.Logger {
	level := log.LevelInfo
	switch strings.ToLower(ctx.String(flags.LogLevel.Name)) {
	case "trace":
		level = log.LevelTrace
	case "debug":
		level = log.LevelDebug
	case "warn":
		level = log.LevelWarn
	case "error":
		level = log.LevelError
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, level, true)
	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger
}
