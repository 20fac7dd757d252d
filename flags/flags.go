package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "TESTEXEC"

// prefixEnvVar builds the env var name for a flag.
func prefixEnvVar(name string) []string {
	return []string{fmt.Sprintf("%s_%s", EnvVarPrefix, name)}
}

var (
	TestDir = &cli.StringFlag{
		Name:    "testdir",
		Value:   "",
		EnvVars: prefixEnvVar("TESTDIR"),
		Usage:   "Path to the test directory containing the series descriptor and scripts",
	}
	Archive = &cli.StringFlag{
		Name:    "archive",
		Value:   "",
		EnvVars: prefixEnvVar("ARCHIVE"),
		Usage:   "Path to a series archive (.zip, .tar.gz) to expand and open",
	}
	Series = &cli.StringFlag{
		Name:    "series",
		Value:   "",
		EnvVars: prefixEnvVar("SERIES"),
		Usage:   "Path to the series descriptor (defaults to test_series.yaml in the test directory)",
	}
	Test = &cli.StringFlag{
		Name:    "test",
		Value:   "",
		EnvVars: prefixEnvVar("TEST"),
		Usage:   "Run only the named test, then stop",
	}
	From = &cli.StringFlag{
		Name:    "from",
		Value:   "",
		EnvVars: prefixEnvVar("FROM"),
		Usage:   "Start at the named test and continue through the rest of the series",
	}
	PlotInterval = &cli.DurationFlag{
		Name:    "plot-interval",
		Value:   100 * time.Millisecond,
		EnvVars: prefixEnvVar("PLOT_INTERVAL"),
		Usage:   "Polling interval for rendering queued plots",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: prefixEnvVar("LOGDIR"),
		Usage:   "Directory to store run logs and rendered plots",
	}
	PlotDir = &cli.StringFlag{
		Name:    "plot-dir",
		Value:   "",
		EnvVars: prefixEnvVar("PLOT_DIR"),
		Usage:   "Directory for rendered plots (defaults to plots/ inside the run directory)",
	}
	LogTimestamps = &cli.BoolFlag{
		Name:    "log-timestamps",
		Value:   false,
		EnvVars: prefixEnvVar("LOG_TIMESTAMPS"),
		Usage:   "Prefix each captured output line with a timestamp",
	}
	StateFile = &cli.StringFlag{
		Name:    "state-file",
		Value:   "",
		EnvVars: prefixEnvVar("STATE_FILE"),
		Usage:   "Path to the last-run record (defaults to ~/.testexec/lastrun.toml)",
	}
	NoResume = &cli.BoolFlag{
		Name:    "no-resume",
		Value:   false,
		EnvVars: prefixEnvVar("NO_RESUME"),
		Usage:   "Do not fall back to the last opened series when no test directory is given",
	}
	Serve = &cli.BoolFlag{
		Name:    "serve",
		Value:   false,
		EnvVars: prefixEnvVar("SERVE"),
		Usage:   "Expose healthz and metrics HTTP endpoints while running",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz-addr",
		Value:   "127.0.0.1:8080",
		EnvVars: prefixEnvVar("HEALTHZ_ADDR"),
		Usage:   "Listen address for the healthz endpoint",
	}
	MetricsAddr = &cli.StringFlag{
		Name:    "metrics-addr",
		Value:   "127.0.0.1:7300",
		EnvVars: prefixEnvVar("METRICS_ADDR"),
		Usage:   "Listen address for the Prometheus metrics endpoint",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVar("LOG_LEVEL"),
		Usage:   "Log level (trace, debug, info, warn, error)",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	TestDir,
	Archive,
	Series,
	Test,
	From,
	PlotInterval,
	LogDir,
	PlotDir,
	LogTimestamps,
	StateFile,
	NoResume,
	Serve,
	HealthzAddr,
	MetricsAddr,
	LogLevel,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

// CheckRequired validates flag combinations that the cli package cannot
// express on its own.
func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	if ctx.IsSet(TestDir.Name) && ctx.IsSet(Archive.Name) {
		return fmt.Errorf("flags %s and %s are mutually exclusive", TestDir.Name, Archive.Name)
	}
	if ctx.IsSet(Test.Name) && ctx.IsSet(From.Name) {
		return fmt.Errorf("flags %s and %s are mutually exclusive", Test.Name, From.Name)
	}
	return nil
}
