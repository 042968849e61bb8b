// Package config handles rcompile.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/PRL-PRG/r-compile-server-sub002/compiler"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "rcompile.toml"

// Config represents an rcompile.toml file.
type Config struct {
	Compiler Compiler `toml:"compiler"`
	Log      Log      `toml:"log"`
	Report   Report   `toml:"report"`
	Metrics  Metrics  `toml:"metrics"`

	// Dir is the directory containing the file (set at load time). Relative
	// paths in the file are resolved against it.
	Dir string `toml:"-"`
}

// Compiler configures compilation.
type Compiler struct {
	Verify              bool `toml:"verify"`
	KeepSingleInputPhis bool `toml:"keep-single-input-phis"`
	MaxNesting          int  `toml:"max-nesting"`
	// SoftUnsupported reports unsupported code as a warning instead of a
	// failure.
	SoftUnsupported bool `toml:"soft-unsupported"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Report configures the report database.
type Report struct {
	Database string `toml:"database"`
}

// Metrics configures the metrics dump.
type Metrics struct {
	File string `toml:"file"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Compiler.MaxNesting <= 0 {
		c.Compiler.MaxNesting = compiler.DefaultMaxNesting
	}
}

// Load parses rcompile.toml from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// Parse decodes a configuration and applies defaults. Unknown keys are an
// error.
func Parse(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}
	if c.Compiler.MaxNesting < 0 {
		return nil, fmt.Errorf("compiler.max-nesting must not be negative")
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find rcompile.toml and loads it.
// Returns nil if there is none.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Path resolves a path from the file relative to its directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// CompilerOptions translates the [compiler] section.
func (c *Config) CompilerOptions() compiler.Options {
	return compiler.Options{
		Verify:              c.Compiler.Verify,
		KeepSingleInputPhis: c.Compiler.KeepSingleInputPhis,
		MaxNesting:          c.Compiler.MaxNesting,
	}
}
