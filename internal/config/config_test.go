package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Dataset != "conmets.db" {
		t.Errorf("expected Dataset=conmets.db, got %s", cfg.Dataset)
	}
	if cfg.ChannelAliases["conda-dev"] != "astroconda-dev" {
		t.Errorf("expected conda-dev alias, got %v", cfg.ChannelAliases)
	}
	if !cfg.Plot.Enabled {
		t.Error("expected plots enabled by default")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("CONMETS_DATASET", "")
	t.Setenv("CONMETS_PLOT_DIR", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "conmets.yaml")

	cfg := DefaultConfig()
	cfg.InfrastructureHosts = []string{"10.1.0.5"}
	cfg.InternalHostSpecs = []string{`10\.1\.`}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.InfrastructureHosts) != 1 || loaded.InfrastructureHosts[0] != "10.1.0.5" {
		t.Errorf("infrastructure hosts did not round-trip: %v", loaded.InfrastructureHosts)
	}
	if len(loaded.InternalHostSpecs) != 1 {
		t.Errorf("internal host specs did not round-trip: %v", loaded.InternalHostSpecs)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CONMETS_DATASET", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Dataset != "conmets.db" {
		t.Errorf("expected defaults, got Dataset=%s", cfg.Dataset)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CONMETS_DATASET", "/data/env.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Dataset != "/data/env.db" {
		t.Errorf("expected Dataset=/data/env.db, got %s", cfg.Dataset)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("CONMETS_CONFIG", "")
	if got := DefaultPath(); got != "conmets.yaml" {
		t.Errorf("expected conmets.yaml, got %s", got)
	}

	t.Setenv("CONMETS_CONFIG", "/etc/conmets/conmets.yaml")
	if got := DefaultPath(); got != "/etc/conmets/conmets.yaml" {
		t.Errorf("expected env override, got %s", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg.InternalHostSpecs = []string{"10.1.("}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for bad internal host spec")
	}

	cfg = DefaultConfig()
	cfg.PyPI.Timeout = "not-a-duration"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for bad pypi timeout")
	}

	cfg = DefaultConfig()
	cfg.Dataset = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty dataset path")
	}
}

func TestInternalPatterns_Anchored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InternalHostSpecs = []string{`10\.1\.`}

	patterns, err := cfg.InternalPatterns()
	if err != nil {
		t.Fatalf("InternalPatterns failed: %v", err)
	}
	if !patterns[0].MatchString("10.1.2.3") {
		t.Error("expected 10.1.2.3 to match")
	}
	if patterns[0].MatchString("110.1.2.3") {
		t.Error("pattern should be anchored at the address start")
	}
}
