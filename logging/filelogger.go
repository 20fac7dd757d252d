// Package logging captures test output on disk. Each run gets its own
// directory holding one log file per test plus a combined series log, so a
// failing run can be inspected after the tool exits.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RunDirectoryPrefix is the prefix of per-run directories under the log root.
const RunDirectoryPrefix = "testrun-"

// AsyncFile provides non-blocking file writing. Test subprocesses can be
// chatty; their output is queued here so the reader goroutine never stalls
// on disk.
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewAsyncFile creates an AsyncFile backed by a freshly created file.
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100),
	}

	af.wg.Add(1)
	go af.processQueue()

	return af, nil
}

// Write queues data to be written in the background. It implements
// io.Writer; the returned count is always len(p) on success because the
// actual write happens later.
func (af *AsyncFile) Write(p []byte) (int, error) {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return 0, fmt.Errorf("async file is closed")
	}

	buf := make([]byte, len(p))
	copy(buf, p)
	af.queue <- buf
	return len(p), nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to log file: %v\n", err)
		}
	}
}

// Close stops the background writer, flushes the queue and closes the file.
// It is safe to call more than once.
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.wg.Wait()

	af.mu.Lock()
	defer af.mu.Unlock()
	if af.file == nil {
		return nil
	}
	err := af.file.Close()
	af.file = nil
	return err
}

// RunLog owns the log directory of one run.
type RunLog struct {
	baseDir string
	runDir  string
	runID   string

	mu      sync.Mutex
	writers map[string]*AsyncFile
}

// NewRunLog creates the run directory under baseDir and returns the log.
func NewRunLog(baseDir, runID string) (*RunLog, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}

	runDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory %s: %w", runDir, err)
	}

	return &RunLog{
		baseDir: baseDir,
		runDir:  runDir,
		runID:   runID,
		writers: make(map[string]*AsyncFile),
	}, nil
}

// RunDir returns the directory of this run.
func (l *RunLog) RunDir() string {
	return l.runDir
}

// RunID returns the run identifier.
func (l *RunLog) RunID() string {
	return l.runID
}

// TestWriter returns a writer collecting one test's output in its own file.
// Repeated calls for the same test append to the same file.
func (l *RunLog) TestWriter(testName string) (io.Writer, error) {
	return l.writer(filepath.Join(l.runDir, safeFilename(testName)+".log"))
}

// SeriesWriter returns the combined series.log writer.
func (l *RunLog) SeriesWriter() (io.Writer, error) {
	return l.writer(filepath.Join(l.runDir, "series.log"))
}

// LogTestHeader writes a banner for a starting test into the series log.
func (l *RunLog) LogTestHeader(testName string) error {
	w, err := l.SeriesWriter()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "=== %s (%s)\n", testName, time.Now().Format(time.RFC3339))
	return err
}

// WriteSummary stores the end-of-run summary as summary.log.
func (l *RunLog) WriteSummary(summary string) error {
	w, err := l.writer(filepath.Join(l.runDir, "summary.log"))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, summary)
	return err
}

func (l *RunLog) writer(path string) (*AsyncFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.writers[path]; ok {
		return w, nil
	}
	w, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}
	l.writers[path] = w
	return w, nil
}

// Close flushes and closes every open writer.
func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, w := range l.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.writers = make(map[string]*AsyncFile)
	return firstErr
}

// safeFilename replaces characters that are problematic in filenames.
func safeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	return replacer.Replace(s)
}
