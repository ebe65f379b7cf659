// Package config loads compiler tunables from an optional TOML file
// (BurntSushi/toml), following the Default/LoadFrom shape of
// lookbusy1344-arm_emulator's config package.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds every compiler-wide tunable spec.md leaves implementation-
// defined: the WRAM region variables are allocated from, whether warnings
// are promoted to hard errors, and the default output file extension.
type Config struct {
	Memory struct {
		WRAMStart uint16 `toml:"wram_start"`
		WRAMEnd   uint16 `toml:"wram_end"`
	} `toml:"memory"`

	Diagnostics struct {
		WarningsAsErrors bool `toml:"warnings_as_errors"`
	} `toml:"diagnostics"`

	Output struct {
		Extension string `toml:"extension"`
	} `toml:"output"`
}

// Default returns the configuration penguinc uses when no config file is
// given: the full hardware WRAM range (spec.md §2), warnings non-fatal, and
// ".asm" output.
func Default() *Config {
	cfg := &Config{}
	cfg.Memory.WRAMStart = 0xC000
	cfg.Memory.WRAMEnd = 0xDFFF
	cfg.Diagnostics.WarningsAsErrors = false
	cfg.Output.Extension = ".asm"
	return cfg
}

// LoadFrom reads and merges a TOML config file over the defaults. An empty
// path, or a path that doesn't exist, returns the defaults unchanged.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
