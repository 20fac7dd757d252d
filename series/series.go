// Package series loads test-series descriptors and their settings files.
//
// A series descriptor is a YAML file with a top-level `tests` key holding an
// ordered list of {name, file, args} entries. Insertion order is execution
// order. The descriptor and both settings files are user-authored, so
// parsing favors availability: a broken settings file warns and keeps prior
// state, while a broken descriptor is a hard error that leaves any
// previously opened series untouched at the caller.
package series

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/testexec/testexec/types"
)

// DefaultDescriptorName is the conventional descriptor filename inside a
// test directory.
const DefaultDescriptorName = "test_series.yaml"

// MalformedSeriesError indicates a descriptor that could not be parsed or
// that lacks the required ordered test list.
type MalformedSeriesError struct {
	Path string
	Err  error
}

func (e *MalformedSeriesError) Error() string {
	return fmt.Sprintf("malformed series descriptor %s: %v", e.Path, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *MalformedSeriesError) Unwrap() error {
	return e.Err
}

// IsMalformedSeries checks if the error is or wraps a MalformedSeriesError
func IsMalformedSeries(err error) bool {
	var msErr *MalformedSeriesError
	return err != nil && errors.As(err, &msErr)
}

// Series is an ordered test series parsed from a descriptor file.
type Series struct {
	Dir        string // directory the scripts resolve against
	Descriptor string // path of the descriptor file
	Tests      []types.TestEntry
}

type descriptor struct {
	Tests []types.TestEntry `yaml:"tests"`
}

// Load parses a series descriptor file.
func Load(descriptorPath string) (*Series, error) {
	data, err := os.ReadFile(descriptorPath)
	if err != nil {
		return nil, &MalformedSeriesError{Path: descriptorPath, Err: err}
	}

	var d descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, &MalformedSeriesError{Path: descriptorPath, Err: err}
	}
	if d.Tests == nil {
		return nil, &MalformedSeriesError{Path: descriptorPath, Err: errors.New("missing required 'tests' list")}
	}
	for i, entry := range d.Tests {
		if entry.Name == "" {
			return nil, &MalformedSeriesError{Path: descriptorPath, Err: fmt.Errorf("test at index %d has no name", i)}
		}
		if entry.Script == "" {
			return nil, &MalformedSeriesError{Path: descriptorPath, Err: fmt.Errorf("test %q has no file", entry.Name)}
		}
	}

	// Duplicate names are allowed but make per-name selection ambiguous.
	seen := make(map[string]bool, len(d.Tests))
	for _, entry := range d.Tests {
		if seen[entry.Name] {
			log.Warn("Duplicate test name in series", "name", entry.Name, "descriptor", descriptorPath)
		}
		seen[entry.Name] = true
	}

	return &Series{
		Dir:        filepath.Dir(descriptorPath),
		Descriptor: descriptorPath,
		Tests:      d.Tests,
	}, nil
}

// Items builds the mutable runtime view of the series, one pending item per
// entry, in execution order.
func (s *Series) Items() []*types.TestItem {
	items := make([]*types.TestItem, len(s.Tests))
	for i, entry := range s.Tests {
		items[i] = types.NewTestItem(entry)
	}
	return items
}

// IndexOf returns the index of the first test with the given name.
func (s *Series) IndexOf(name string) (int, bool) {
	for i, entry := range s.Tests {
		if entry.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Len returns the number of tests in the series.
func (s *Series) Len() int {
	return len(s.Tests)
}
