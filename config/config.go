// Package config loads runjs settings from an optional runjs.toml file
// and RUNJS_* environment variables. Environment variables win over the
// file; command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/runjs/runjs/runtime"
)

// FileName is the configuration file looked up by FindFile.
const FileName = "runjs.toml"

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "runjs"

// Config holds all runjs configuration.
type Config struct {
	// EnginePath is the engine module used by builds.
	EnginePath string `toml:"engine" split_words:"true"`
	Output     string `toml:"output" split_words:"true"`
	// WasmOpt is the wasm-opt binary. Empty looks it up on PATH.
	WasmOpt     string `toml:"wasm-opt" split_words:"true"`
	SkipWasmOpt bool   `toml:"skip-wasm-opt" split_words:"true"`

	// AllowedOrigins is the guest's HTTP allow-list. Nil keeps the
	// driver default; an empty list denies everything.
	AllowedOrigins []string      `toml:"allowed-origins" split_words:"true"`
	HTTPTimeout    time.Duration `toml:"http-timeout" split_words:"true"`

	LogLevel       string `toml:"log-level" split_words:"true"`
	LogDevelopment bool   `toml:"log-development" split_words:"true"`

	Runtime runtime.Config `toml:"runtime"`

	// File is the configuration file that was loaded, if any.
	File string `toml:"-" ignored:"true"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Output:   "index.wasm",
		LogLevel: "warn",
		Runtime: runtime.Config{
			Type: runtime.DefaultType,
			Mode: runtime.ModeInterpreter,
		},
	}
}

// Load returns the defaults overlaid with file, when not empty, and then
// with the environment.
func Load(file string) (*Config, error) {
	cfg := Default()
	if file != "" {
		if err := cfg.decodeFile(file); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(file string) error {
	md, err := toml.DecodeFile(file, c)
	if err != nil {
		return fmt.Errorf("parse error in %s: %w", file, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys in %s: %s", file, strings.Join(keys, ", "))
	}
	c.File = file
	return nil
}

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	if c.HTTPTimeout < 0 {
		return errors.New("http timeout must not be negative")
	}
	switch c.Runtime.Mode {
	case "", runtime.ModeInterpreter, runtime.ModeCompiler:
	default:
		return fmt.Errorf("unknown runtime mode %q", c.Runtime.Mode)
	}
	return nil
}

// FindFile walks up from dir looking for FileName and returns its path,
// or "" when there is none.
func FindFile(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
