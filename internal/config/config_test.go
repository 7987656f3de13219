package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	v := New(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := Load(v)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, cfg.Root)
	assert.Equal(t, BackendFSNotify, cfg.Backend)
	assert.Equal(t, []string{".git", "node_modules"}, cfg.Ignore)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.ShowHidden)
}

func TestReadFileMissingDefaultIsNotAnError(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	v := New("")
	assert.NoError(t, ReadFile(v))
}

func TestReadFileExplicitMissingFails(t *testing.T) {
	v := New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, ReadFile(v))
}

func TestPrecedence(t *testing.T) {
	path := writeConfig(t, `
backend: fsevents
ignore: ["*.tmp"]
scan:
  workers: 5
log:
  level: debug
ui:
  show-hidden: false
`)
	t.Setenv("TREEWATCH_SCAN_WORKERS", "3")

	v := New(path)
	require.NoError(t, ReadFile(v))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("backend", BackendFSNotify, "")
	require.NoError(t, v.BindPFlag(KeyBackend, flags.Lookup("backend")))
	require.NoError(t, flags.Parse([]string{"--backend", "FSNotify"}))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, BackendFSNotify, cfg.Backend, "flag beats file and is case-insensitive")
	assert.Equal(t, 3, cfg.Workers, "env beats file")
	assert.Equal(t, []string{"*.tmp"}, cfg.Ignore)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.ShowHidden)
}

func TestLoadValidates(t *testing.T) {
	v := New(writeConfig(t, "backend: inotify\n"))
	require.NoError(t, ReadFile(v))
	_, err := Load(v)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	v = New(writeConfig(t, "scan:\n  workers: 0\n"))
	require.NoError(t, ReadFile(v))
	_, err = Load(v)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadResolvesRoot(t *testing.T) {
	dir := t.TempDir()
	v := New(filepath.Join(dir, "missing.yaml"))
	v.Set(KeyRoot, dir)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Root)
}
