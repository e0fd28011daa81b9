package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadKnobs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MasteryThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("mastery_threshold 1.5 accepted")
	}

	cfg = DefaultConfig()
	cfg.TargetRetention = 1.0
	if err := cfg.Validate(); err == nil {
		t.Error("target_retention 1.0 accepted")
	}

	cfg = DefaultConfig()
	cfg.Selection.ExplorationRate = -0.1
	if err := cfg.Validate(); err == nil {
		t.Error("negative exploration_rate accepted")
	}

	cfg = DefaultConfig()
	cfg.FSRSWeights[4] = 99
	if err := cfg.Validate(); err == nil {
		t.Error("out-of-range fsrs weight accepted")
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
mastery_threshold: 0.9
target_retention: 0.8
bkt:
  p_init: 0.3
selection:
  exploration_rate: 0.2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MasteryThreshold != 0.9 {
		t.Errorf("MasteryThreshold = %v, want 0.9", cfg.MasteryThreshold)
	}
	if cfg.BKT.PInit != 0.3 {
		t.Errorf("BKT.PInit = %v, want 0.3", cfg.BKT.PInit)
	}
	if cfg.Selection.ExplorationRate != 0.2 {
		t.Errorf("ExplorationRate = %v, want 0.2", cfg.Selection.ExplorationRate)
	}
	// Untouched fields keep their defaults.
	if cfg.BKT.PSlip != DefaultConfig().BKT.PSlip {
		t.Errorf("PSlip = %v, want the default", cfg.BKT.PSlip)
	}
	if cfg.Calibration.MinResponses != DefaultConfig().Calibration.MinResponses {
		t.Errorf("MinResponses = %v, want the default", cfg.Calibration.MinResponses)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing config file accepted")
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("target_retention: 2.0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("invalid target_retention accepted")
	}
}
