// Package loader resolves script references from a series descriptor to
// executable module handles and owns their load/reload lifecycle.
//
// Resolution always probes the disk: there is no name-keyed cache, so
// editing a script between runs takes effect on the next resolve without
// restarting the tool. Opening a new test directory invalidates every handle
// resolved before it; two series may reuse the same script name and must
// never see each other's files.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// script extensions recognized during resolution, in probe order
var scriptExtensions = []string{"", ".sh", ".py"}

// LoadError indicates a script that could not be loaded or executed to the
// point of reporting a result.
type LoadError struct {
	Ref string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading test script %q: %v", e.Ref, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError checks if the error is or wraps a LoadError
func IsLoadError(err error) bool {
	var loadErr *LoadError
	return err != nil && errors.As(err, &loadErr)
}

// Loader resolves script references inside the currently opened test
// directory.
type Loader struct {
	logger log.Logger

	mu  sync.Mutex
	dir string
	gen uint64
}

// New creates a loader. Open must be called before Resolve.
func New(logger log.Logger) *Loader {
	if logger == nil {
		logger = log.Root()
	}
	return &Loader{logger: logger}
}

// Open points the loader at a test directory and starts a new handle
// generation. All handles resolved before Open become stale.
func (l *Loader) Open(testDir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dir = testDir
	l.gen++
	l.logger.Debug("Opened test directory", "dir", testDir, "generation", l.gen)
}

// ClearCache invalidates all previously resolved handles without changing
// the test directory.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.logger.Debug("Cleared module handles", "generation", l.gen)
}

// Dir returns the currently opened test directory.
func (l *Loader) Dir() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dir
}

// NormalizeRef strips one trailing conventional script extension from a
// reference so the resolver is never handed a double-qualified name.
func NormalizeRef(ref string) string {
	for _, ext := range scriptExtensions {
		if ext != "" && strings.HasSuffix(ref, ext) {
			return strings.TrimSuffix(ref, ext)
		}
	}
	return ref
}

// Resolve loads the script behind a reference fresh from disk and returns a
// handle bound to the current generation.
func (l *Loader) Resolve(ref string) (*ModuleHandle, error) {
	l.mu.Lock()
	dir := l.dir
	gen := l.gen
	l.mu.Unlock()

	if dir == "" {
		return nil, &LoadError{Ref: ref, Err: errors.New("no test directory opened")}
	}

	name := NormalizeRef(ref)
	var probed []string
	for _, ext := range scriptExtensions {
		path := filepath.Join(dir, name+ext)
		info, err := os.Stat(path)
		if err != nil {
			probed = append(probed, path)
			continue
		}
		if !info.Mode().IsRegular() {
			return nil, &LoadError{Ref: ref, Err: fmt.Errorf("%s is not a regular file", path)}
		}
		// read now so an unreadable script fails at resolve time, not mid-run
		if _, err := os.ReadFile(path); err != nil {
			return nil, &LoadError{Ref: ref, Err: err}
		}
		l.logger.Debug("Resolved test script", "ref", ref, "path", path)
		return &ModuleHandle{
			Name:   name,
			Path:   path,
			loader: l,
			gen:    gen,
		}, nil
	}

	return nil, &LoadError{Ref: ref, Err: fmt.Errorf("no script found, tried %s", strings.Join(probed, ", "))}
}

func (l *Loader) currentGen() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}
