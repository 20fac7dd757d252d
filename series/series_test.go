package series

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testexec/testexec/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadParsesOrderedTests(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultDescriptorName)
	writeFile(t, path, `
tests:
  - name: First Test
    file: first
  - name: Second Test
    file: second.py
    args:
      count: 3
      label: demo
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Dir)
	require.Len(t, s.Tests, 2)
	assert.Equal(t, "First Test", s.Tests[0].Name)
	assert.Equal(t, "first", s.Tests[0].Script)
	assert.Equal(t, "second.py", s.Tests[1].Script)
	assert.Equal(t, 3, s.Tests[1].Args["count"])
	assert.Equal(t, "demo", s.Tests[1].Args["label"])

	items := s.Items()
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, types.StatusPending, item.Status)
	}

	idx, ok := s.IndexOf("Second Test")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = s.IndexOf("No Such Test")
	assert.False(t, ok)
}

func TestLoadMissingTestsKeyIsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultDescriptorName)
	writeFile(t, path, "title: not a series\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsMalformedSeries(err))
}

func TestLoadUnparsableDescriptorIsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultDescriptorName)
	writeFile(t, path, "tests: [unclosed\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsMalformedSeries(err))
}

func TestLoadMissingFileIsMalformed(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, IsMalformedSeries(err))
}

func TestLoadEntryWithoutScriptIsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultDescriptorName)
	writeFile(t, path, `
tests:
  - name: Broken Test
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsMalformedSeries(err))
}

func TestLoadSettingsMergesOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, BaseSettingsName), "host: localhost\nport: 8080\n")
	writeFile(t, filepath.Join(dir, UserSettingsName), "port: 9090\nextra: true\n")

	s := LoadSettings(dir, nil)
	host, _ := s.String("host")
	assert.Equal(t, "localhost", host)
	port, _ := s.Int("port")
	assert.Equal(t, 9090, port)
	extra, _ := s.Bool("extra")
	assert.True(t, extra)
}

func TestLoadSettingsUnreadableBaseKeepsPrior(t *testing.T) {
	dir := t.TempDir() // no settings files at all

	prior := types.SettingsFromMap(map[string]any{"host": "previous"})
	s := LoadSettings(dir, prior)
	host, ok := s.String("host")
	require.True(t, ok)
	assert.Equal(t, "previous", host)
}

func TestLoadSettingsRejectsReservedKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, BaseSettingsName), "testdir: /somewhere/else\nhost: localhost\n")

	s := LoadSettings(dir, nil)
	assert.False(t, s.Has(ReservedTestDirKey))
	host, _ := s.String("host")
	assert.Equal(t, "localhost", host)
}

func TestSaveUserSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, BaseSettingsName), "host: localhost\nport: 8080\n")

	require.NoError(t, SaveUserSettings(dir, map[string]any{"port": 7000, "debug": true}))

	s := LoadSettings(dir, nil)
	port, _ := s.Int("port")
	assert.Equal(t, 7000, port)
	debug, _ := s.Bool("debug")
	assert.True(t, debug)
	// untouched base keys survive
	host, _ := s.String("host")
	assert.Equal(t, "localhost", host)
}

func TestLastRunRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "lastrun.toml")

	missing, err := ReadLastRun(path)
	require.NoError(t, err)
	assert.Nil(t, missing)

	lr := &LastRun{TestDir: "/tests", Descriptor: "/tests/test_series.yaml"}
	require.NoError(t, lr.Write(path))

	got, err := ReadLastRun(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, lr.TestDir, got.TestDir)
	assert.Equal(t, lr.Descriptor, got.Descriptor)
}
