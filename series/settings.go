package series

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/testexec/testexec/types"
)

const (
	// BaseSettingsName is the settings file shipped with a test directory.
	BaseSettingsName = "test_settings.yaml"
	// UserSettingsName holds per-user overrides; it wins key by key over the
	// base file.
	UserSettingsName = "user_test_settings.yaml"

	// ReservedTestDirKey is injected by the runner and must not appear in
	// user-authored settings files.
	ReservedTestDirKey = "testdir"
)

// LoadSettings reads the base settings file of a test directory and overlays
// the optional user override file on top of it (shallow merge, override
// wins). An unreadable base file is not fatal: the prior settings are kept
// and a warning is logged, so a broken file never blocks test authoring.
func LoadSettings(testDir string, prior *types.SettingsMap) *types.SettingsMap {
	settings := types.NewSettingsMap()
	if prior != nil {
		settings = prior.Clone()
	}

	base, err := readSettingsFile(filepath.Join(testDir, BaseSettingsName))
	if err != nil {
		log.Warn("Unable to read base settings, keeping previous settings", "dir", testDir, "error", err)
		return settings
	}
	if _, reserved := base[ReservedTestDirKey]; reserved {
		log.Warn("Base settings file uses a reserved key, ignoring it", "key", ReservedTestDirKey)
		delete(base, ReservedTestDirKey)
	}
	settings.Merge(base)

	userPath := filepath.Join(testDir, UserSettingsName)
	if _, err := os.Stat(userPath); err != nil {
		// no override file is the common case
		return settings
	}
	user, err := readSettingsFile(userPath)
	if err != nil {
		log.Warn("Unable to read user settings override", "path", userPath, "error", err)
		return settings
	}
	if _, reserved := user[ReservedTestDirKey]; reserved {
		log.Warn("User settings file uses a reserved key, ignoring it", "key", ReservedTestDirKey)
		delete(user, ReservedTestDirKey)
	}
	settings.Merge(user)
	return settings
}

// SaveUserSettings writes override values to the user settings file so the
// next LoadSettings for the same directory reproduces them exactly.
func SaveUserSettings(testDir string, overrides map[string]any) error {
	data, err := yaml.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("encoding user settings: %w", err)
	}
	path := filepath.Join(testDir, UserSettingsName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing user settings %s: %w", path, err)
	}
	return nil
}

func readSettingsFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if m == nil {
		m = make(map[string]any)
	}
	return m, nil
}
