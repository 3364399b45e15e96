// Package config resolves gigo's settings from JSON-with-comments files.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Error variables for config loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
)

// Limits for config values.
const (
	maxTileLog2 = 16
	maxWorkers  = 4096
)

// FileName is the project config file looked up in the working directory.
const FileName = ".gigo.json"

// Config holds all configuration options.
type Config struct {
	TileLog2     int    `json:"tile_log2"`
	Workers      int    `json:"workers"`
	MaxScratchMB int    `json:"max_scratch_mb"`
	LogLevel     string `json:"log_level"`

	// EffectiveCwd is the absolute working directory (-C flag or os.Getwd).
	EffectiveCwd string `json:"-"`

	// Sources tracks which config files were loaded.
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // global config path if loaded
	Project string // project or explicit config path if loaded
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		TileLog2:     5,
		Workers:      0,
		MaxScratchMB: 1024,
		LogLevel:     "warn",
	}
}

// MaxScratchBytes converts MaxScratchMB to bytes. Zero means unlimited.
func (c Config) MaxScratchBytes() int64 {
	return int64(c.MaxScratchMB) << 20
}

// Level returns LogLevel as a slog level. Invalid levels are rejected by
// [Load], so the fallback is never hit on a loaded config.
func (c Config) Level() slog.Level {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return slog.LevelWarn
	}

	return level
}

// Input holds the inputs for [Load].
type Input struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	Env             map[string]string // environment variables
}

// Load resolves configuration with the following precedence (highest wins):
//  1. Defaults
//  2. Global user config ($XDG_CONFIG_HOME/gigo/config.json or ~/.config/gigo/config.json)
//  3. Project config file .gigo.json in the working directory (if it exists)
//  4. Explicit config file via ConfigPath (replaces 3, must exist)
//
// Command flags are applied on top by the caller.
func Load(input Input) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		overlay, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, overlay)
			cfg.Sources.Global = path
		}
	}

	path, mustExist := filepath.Join(workDir, FileName), false

	if input.ConfigPath != "" {
		path, mustExist = input.ConfigPath, true
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
	}

	overlay, loaded, err := loadFile(path, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = merge(cfg, overlay)
		cfg.Sources.Project = path
	}

	err = Validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	return cfg, nil
}

// globalPath returns $XDG_CONFIG_HOME/gigo/config.json if set, otherwise
// ~/.config/gigo/config.json, or "" if neither variable is set.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "gigo", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "gigo", "config.json")
	}

	return ""
}

// fileConfig is one config file. Pointers tell "absent" from an explicit
// zero, which is meaningful for workers and max_scratch_mb.
type fileConfig struct {
	TileLog2     *int    `json:"tile_log2"`
	Workers      *int    `json:"workers"`
	MaxScratchMB *int    `json:"max_scratch_mb"`
	LogLevel     *string `json:"log_level"`
}

func loadFile(path string, mustExist bool) (fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if mustExist {
				return fileConfig{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}

			return fileConfig{}, false, nil
		}

		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrConfigFileRead, path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (fileConfig, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	var cfg fileConfig

	err = dec.Decode(&cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func merge(base Config, overlay fileConfig) Config {
	if overlay.TileLog2 != nil {
		base.TileLog2 = *overlay.TileLog2
	}

	if overlay.Workers != nil {
		base.Workers = *overlay.Workers
	}

	if overlay.MaxScratchMB != nil {
		base.MaxScratchMB = *overlay.MaxScratchMB
	}

	if overlay.LogLevel != nil {
		base.LogLevel = strings.ToLower(*overlay.LogLevel)
	}

	return base
}

// Validate checks value ranges. Errors wrap [ErrConfigInvalid].
func Validate(cfg Config) error {
	if cfg.TileLog2 < 0 || cfg.TileLog2 > maxTileLog2 {
		return fmt.Errorf("%w: tile_log2 %d out of range [0, %d]", ErrConfigInvalid, cfg.TileLog2, maxTileLog2)
	}

	if cfg.Workers < 0 || cfg.Workers > maxWorkers {
		return fmt.Errorf("%w: workers %d out of range [0, %d]", ErrConfigInvalid, cfg.Workers, maxWorkers)
	}

	if cfg.MaxScratchMB < 0 {
		return fmt.Errorf("%w: max_scratch_mb %d is negative", ErrConfigInvalid, cfg.MaxScratchMB)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q (want debug, info, warn or error)", ErrConfigInvalid, cfg.LogLevel)
	}

	return nil
}

// Format renders cfg as key=value lines followed by its sources, the
// output of print-config.
func Format(cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "effective_cwd=%s\n", cfg.EffectiveCwd)
	fmt.Fprintf(&b, "tile_log2=%d\n", cfg.TileLog2)
	fmt.Fprintf(&b, "workers=%d\n", cfg.Workers)
	fmt.Fprintf(&b, "max_scratch_mb=%d\n", cfg.MaxScratchMB)
	fmt.Fprintf(&b, "log_level=%s\n", cfg.LogLevel)
	b.WriteString("\n# sources\n")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		b.WriteString("(defaults only)\n")

		return b.String()
	}

	if cfg.Sources.Global != "" {
		fmt.Fprintf(&b, "global_config=%s\n", cfg.Sources.Global)
	}

	if cfg.Sources.Project != "" {
		fmt.Fprintf(&b, "project_config=%s\n", cfg.Sources.Project)
	}

	return b.String()
}
