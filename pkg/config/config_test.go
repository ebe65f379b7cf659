package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/penguin-lang/penguinc/pkg/config"
)

func TestDefaultConfigMatchesHardwareWRAMRange(t *testing.T) {
	cfg := config.Default()
	if cfg.Memory.WRAMStart != 0xC000 || cfg.Memory.WRAMEnd != 0xDFFF {
		t.Fatalf("unexpected default WRAM range: %04X-%04X", cfg.Memory.WRAMStart, cfg.Memory.WRAMEnd)
	}
	if cfg.Output.Extension != ".asm" {
		t.Fatalf("unexpected default output extension: %s", cfg.Output.Extension)
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "nonexistent.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Diagnostics.WarningsAsErrors {
		t.Fatal("expected default warnings_as_errors to be false")
	}
}

func TestLoadFromOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "penguinc.toml")
	contents := "[diagnostics]\nwarnings_as_errors = true\n\n[output]\nextension = \".gbasm\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write fixture config: %v", err)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Diagnostics.WarningsAsErrors {
		t.Fatal("expected warnings_as_errors override to apply")
	}
	if cfg.Output.Extension != ".gbasm" {
		t.Fatalf("expected extension override, got %s", cfg.Output.Extension)
	}
	if cfg.Memory.WRAMStart != 0xC000 {
		t.Fatalf("expected unspecified fields to keep defaults, got %04X", cfg.Memory.WRAMStart)
	}
}
