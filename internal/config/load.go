package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/zjrosen/mandelgrid/internal/log"
)

// EnvPrefix prefixes environment overrides, e.g. MANDELGRID_THREADS or
// MANDELGRID_GRID_DELTA.
const EnvPrefix = "MANDELGRID"

// LoadStatus tells how a config file was found.
type LoadStatus int

const (
	// Loaded means the file was read and is valid.
	Loaded LoadStatus = iota
	// Absent means no file exists at the path.
	Absent
	// Malformed means the file exists but could not be read or decoded.
	Malformed
	// Invalid means the file decoded but holds values a run cannot use.
	Invalid
)

func (s LoadStatus) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Absent:
		return "absent"
	case Malformed:
		return "malformed"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("LoadStatus(%d)", int(s))
}

// newViper returns a viper instance with every default registered so that
// environment overrides and partial files resolve against them.
func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" || !isKnownType(ext) {
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Defaults())
	return v
}

func isKnownType(ext string) bool {
	switch strings.ToLower(ext) {
	case "yaml", "yml", "toml", "json":
		return true
	}
	return false
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("grid.re_min", d.Grid.ReMin)
	v.SetDefault("grid.re_max", d.Grid.ReMax)
	v.SetDefault("grid.im_min", d.Grid.ImMin)
	v.SetDefault("grid.im_max", d.Grid.ImMax)
	v.SetDefault("grid.delta", d.Grid.Delta)
	v.SetDefault("grid.origin", d.Grid.Origin)
	v.SetDefault("iterations", d.Iterations)
	v.SetDefault("bound", d.Bound)
	v.SetDefault("threads", d.Threads)
	v.SetDefault("batch_size", d.BatchSize)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
}

// Load reads the config file at path. Keys missing from the file take their
// default value. On Absent and Malformed the returned Config is Defaults();
// on Invalid it is the decoded file. Malformed and Invalid carry an error.
func Load(path string) (Config, LoadStatus, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug(log.CatConfig, "Config file absent", "path", path)
			return Defaults(), Absent, nil
		}
		return Defaults(), Malformed, fmt.Errorf("stat config: %w", err)
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return Defaults(), Malformed, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Defaults(), Malformed, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, Invalid, fmt.Errorf("invalid config %s: %w", path, err)
	}

	log.Debug(log.CatConfig, "Config loaded", "path", path)
	return cfg, Loaded, nil
}

// LoadOrInit loads path and falls back to defaults when the file is absent or
// malformed. The defaults are then written to path so the next run finds a
// readable file; a malformed file is first moved aside to path+".bak". For
// Absent and Malformed the returned error is non-nil only if persisting the
// defaults failed, in which case the defaults are still returned. An Invalid
// file is left untouched and its validation error returned.
func LoadOrInit(path string) (Config, LoadStatus, error) {
	cfg, status, err := Load(path)
	switch status {
	case Loaded:
		return cfg, status, nil
	case Invalid:
		log.Warn(log.CatConfig, "Config file rejected", "path", path, "error", err)
		return cfg, status, err
	case Absent:
		log.Info(log.CatConfig, "No config file, writing defaults", "path", path)
	case Malformed:
		log.Warn(log.CatConfig, "Config file unusable, falling back to defaults", "path", path, "error", err)
		backup := path + ".bak"
		if rerr := os.Rename(path, backup); rerr != nil {
			log.ErrorErr(log.CatConfig, "Failed to back up config", rerr, "path", path)
		} else {
			log.Info(log.CatConfig, "Backed up malformed config", "backup", backup)
		}
	}

	if werr := WriteDefaultConfig(path); werr != nil {
		return cfg, status, werr
	}
	return cfg, status, nil
}
