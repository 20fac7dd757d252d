package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/testexec/testexec/types"
)

const (
	MetricsNamespace = "testexec"
)

var (
	Debug                bool = true
	validResults              = []types.Status{types.StatusPass, types.StatusSoftfail, types.StatusFail, types.StatusDone}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of executed tests",
	}, []string{
		"series",
		"run_id",
		"name",
		"result",
	})

	seriesResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "series_results",
		Help:      "Result of series runs",
	}, []string{
		"series",
		"run_id",
		"result",
	})

	seriesTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "series_test_total",
		Help:      "Total number of tests in completed series runs",
	}, []string{
		"series",
		"run_id",
	})

	seriesTestPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "series_test_passed",
		Help:      "Number of passed tests in completed series runs",
	}, []string{
		"series",
		"run_id",
	})

	seriesTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "series_test_failed",
		Help:      "Number of failed tests in completed series runs",
	}, []string{
		"series",
		"run_id",
	})

	seriesDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "series_duration",
		Help:      "Duration of series runs",
	}, []string{
		"series",
		"run_id",
	})

	plotsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "plots_rendered_total",
		Help:      "Count of rendered plots",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordTest(series string, runID string, testName string, result types.Status) {
	if !isValidResult(result) {
		log.Error("RecordTest - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tests_total",
			"series", series,
			"run_id", runID,
			"name", testName,
			"result", result)
	}
	testsTotal.WithLabelValues(series, runID, testName, string(result)).Inc()
}

func RecordSeries(
	series string,
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	duration time.Duration,
) {
	seriesResults.WithLabelValues(series, runID, result).Set(1)
	seriesTestTotal.WithLabelValues(series, runID).Add(float64(total))
	seriesTestPassed.WithLabelValues(series, runID).Add(float64(passed))
	seriesTestFailed.WithLabelValues(series, runID).Add(float64(failed))
	seriesDuration.WithLabelValues(series, runID).Set(duration.Seconds())
}

func RecordPlot(runID string) {
	plotsRendered.WithLabelValues(runID).Inc()
}

func isValidResult(result types.Status) bool {
	return slices.Contains(validResults, result)
}
