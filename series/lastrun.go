package series

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// LastRun records the most recently opened series so the tool can resume
// where it left off on the next start.
type LastRun struct {
	TestDir    string    `toml:"test_dir"`
	Descriptor string    `toml:"descriptor"`
	OpenedAt   time.Time `toml:"opened_at"`
}

// DefaultLastRunPath returns the per-user location of the last-run record.
func DefaultLastRunPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".testexec", "lastrun.toml"), nil
}

// ReadLastRun loads the last-run record from path. A missing file returns
// (nil, nil): there is simply nothing to resume.
func ReadLastRun(path string) (*LastRun, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var lr LastRun
	if _, err := toml.DecodeFile(path, &lr); err != nil {
		return nil, fmt.Errorf("parsing last-run record %s: %w", path, err)
	}
	return &lr, nil
}

// Write persists the record at path, creating parent directories as needed.
func (lr *LastRun) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing last-run record %s: %w", path, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(lr)
}
