package core

import (
	"os"
	"testing"
	"time"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestConfig_ValidateRejectsBadFsyncPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.FsyncPolicy = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid fsync policy to fail validation")
	}
}

func TestConfig_ValidateRejectsInvertedLifecycleThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lifecycle.IdleThreshold = time.Hour
	cfg.Lifecycle.SleepThreshold = time.Minute
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected inverted idle/sleep thresholds to fail validation")
	}
}

func TestConfigFromEnv_OverridesDecayRate(t *testing.T) {
	os.Setenv("NEURALMEMORY_DECAY_RATE", "0.42")
	defer os.Unsetenv("NEURALMEMORY_DECAY_RATE")

	cfg := ConfigFromEnv(DefaultConfig())
	if cfg.Brain.DecayRate != 0.42 {
		t.Fatalf("expected env override to apply, got %v", cfg.Brain.DecayRate)
	}
}

func TestConfigFromFile_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := ConfigFromFile("/nonexistent/path/neuralmemory.yaml")
	if err != nil {
		t.Fatalf("missing config file should not error, got: %v", err)
	}
	if cfg.Brain.DecayRate != DefaultBrainConfig().DecayRate {
		t.Fatal("expected defaults when config file is missing")
	}
}
