package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Absent(t *testing.T) {
	cfg, status, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Absent, status)
	require.Equal(t, Defaults(), cfg)
}

func TestLoad_PartialFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", "threads: 4\ngrid:\n  delta: 0.01\n")
	cfg, status, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Loaded, status)

	want := Defaults()
	want.Threads = 4
	want.Grid.Delta = 0.01
	require.Equal(t, want, cfg)
}

func TestLoad_IntegerBound(t *testing.T) {
	path := writeConfig(t, "config.yaml", "bound: 3\n")
	cfg, _, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3.0, cfg.Bound)
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `iterations = 300
threads = 2

[grid]
re_min = -2.0
re_max = 1.0
im_min = -1.0
im_max = 1.0
delta = 0.25
origin = "inclusive"
`)
	cfg, status, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Loaded, status)
	require.Equal(t, 300, cfg.Iterations)
	require.Equal(t, "inclusive", cfg.Grid.Origin)
	require.Equal(t, 0.25, cfg.Grid.Delta)
}

func TestLoad_UnknownExtensionIsYAML(t *testing.T) {
	path := writeConfig(t, "mandelgrid.conf", "iterations: 12\n")
	cfg, status, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Loaded, status)
	require.Equal(t, 12, cfg.Iterations)
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "grid: [unclosed\n"},
		{"wrong type", "threads: many\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.yaml", tt.content)
			cfg, status, err := Load(path)
			require.Error(t, err)
			require.Equal(t, Malformed, status)
			require.Equal(t, Defaults(), cfg)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		key     string
	}{
		{"zero threads", "threads: 0\n", "threads: "},
		{"inverted bounds", "grid:\n  re_min: 1\n  re_max: -1\n", "grid: "},
		{"threads over sample count", "threads: 31\ngrid:\n  re_min: -2\n  re_max: 0.5\n  im_min: -1\n  im_max: 1\n  delta: 0.5\n", "threads: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.yaml", tt.content)
			cfg, status, err := Load(path)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.key)
			require.Equal(t, Invalid, status)
			require.NotEqual(t, Defaults(), cfg, "decoded file is returned, not defaults")
		})
	}
}

func TestLoadOrInit_InvalidLeavesFileAlone(t *testing.T) {
	content := "threads: 0\n"
	path := writeConfig(t, "config.yaml", content)

	_, status, err := LoadOrInit(path)
	require.Error(t, err)
	require.Equal(t, Invalid, status)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
	_, err = os.Stat(path + ".bak")
	require.True(t, os.IsNotExist(err), "no backup for an invalid file")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MANDELGRID_THREADS", "3")
	t.Setenv("MANDELGRID_GRID_ORIGIN", "inclusive")
	path := writeConfig(t, "config.yaml", "iterations: 100\n")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Threads)
	require.Equal(t, "inclusive", cfg.Grid.Origin)
	require.Equal(t, 100, cfg.Iterations)
}

func TestLoadOrInit_AbsentWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, status, err := LoadOrInit(path)
	require.NoError(t, err)
	require.Equal(t, Absent, status)
	require.Equal(t, Defaults(), cfg)

	again, status, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Loaded, status, "defaults were persisted")
	require.Equal(t, Defaults(), again)
}

func TestLoadOrInit_MalformedIsBackedUp(t *testing.T) {
	original := "grid: [unclosed\n"
	path := writeConfig(t, "config.yaml", original)

	cfg, status, err := LoadOrInit(path)
	require.NoError(t, err)
	require.Equal(t, Malformed, status)
	require.Equal(t, Defaults(), cfg)

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	require.Equal(t, original, string(backup))

	_, status, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, Loaded, status)
}

func TestLoadOrInit_LoadedLeavesFileAlone(t *testing.T) {
	content := "threads: 2\n"
	path := writeConfig(t, "config.yaml", content)

	cfg, status, err := LoadOrInit(path)
	require.NoError(t, err)
	require.Equal(t, Loaded, status)
	require.Equal(t, 2, cfg.Threads)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}

func TestLoadStatus_String(t *testing.T) {
	require.Equal(t, "loaded", Loaded.String())
	require.Equal(t, "absent", Absent.String())
	require.Equal(t, "malformed", Malformed.String())
	require.Equal(t, "invalid", Invalid.String())
}
