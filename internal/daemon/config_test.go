package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8470 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8470)
	}
	if !cfg.API.Metrics {
		t.Error("API.Metrics = false, want true")
	}
	if cfg.Engine.ThresholdBP != 7_500 {
		t.Errorf("Engine.ThresholdBP = %d, want %d", cfg.Engine.ThresholdBP, 7_500)
	}
	if cfg.Engine.PlatformFeeBP != 250 {
		t.Errorf("Engine.PlatformFeeBP = %d, want %d", cfg.Engine.PlatformFeeBP, 250)
	}
	if cfg.Engine.MinGoal != 1_000 {
		t.Errorf("Engine.MinGoal = %d, want %d", cfg.Engine.MinGoal, 1_000)
	}
	if cfg.Engine.GoalCeiling != 50_000_000 {
		t.Errorf("Engine.GoalCeiling = %d, want %d", cfg.Engine.GoalCeiling, 50_000_000)
	}
	if cfg.Engine.MaxDurationDays != 180 {
		t.Errorf("Engine.MaxDurationDays = %d, want %d", cfg.Engine.MaxDurationDays, 180)
	}
	if cfg.Engine.MinInvestment != 100 {
		t.Errorf("Engine.MinInvestment = %d, want %d", cfg.Engine.MinInvestment, 100)
	}
	if cfg.Yield.InvestorSplitBP+cfg.Yield.IssuerSplitBP >= 10_000 {
		t.Errorf("yield split %d+%d leaves no platform share",
			cfg.Yield.InvestorSplitBP, cfg.Yield.IssuerSplitBP)
	}
	if !cfg.Yield.Enabled {
		t.Error("Yield.Enabled = false, want true")
	}
	if cfg.Yield.BaseRateBP != 500 {
		t.Errorf("Yield.BaseRateBP = %d, want %d", cfg.Yield.BaseRateBP, 500)
	}
	if cfg.Yield.CompoundingPeriod != "24h" {
		t.Errorf("Yield.CompoundingPeriod = %q, want %q", cfg.Yield.CompoundingPeriod, "24h")
	}
	if cfg.Scheduler.SweepSpec == "" || cfg.Scheduler.CompoundSpec == "" {
		t.Error("scheduler specs should have defaults")
	}
}

func TestEngineConfigConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.MaxDurationDays = 90
	cfg.Yield.CompoundingPeriod = "6h"

	ecfg, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig() error = %v", err)
	}
	if ecfg.Ledger.MaxDuration != 90*24*time.Hour {
		t.Errorf("Ledger.MaxDuration = %v, want %v", ecfg.Ledger.MaxDuration, 90*24*time.Hour)
	}
	if ecfg.Yield.CompoundingPeriod != 6*time.Hour {
		t.Errorf("Yield.CompoundingPeriod = %v, want %v", ecfg.Yield.CompoundingPeriod, 6*time.Hour)
	}
	if ecfg.PlatformFeeBP != 250 {
		t.Errorf("PlatformFeeBP = %d, want %d", ecfg.PlatformFeeBP, 250)
	}
}

func TestEngineConfigRejectsBadPeriod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Yield.CompoundingPeriod = "often"
	if _, err := cfg.EngineConfig(); err == nil {
		t.Error("EngineConfig() = nil error for invalid compounding period")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.ThresholdBP != DefaultConfig().Engine.ThresholdBP {
		t.Errorf("ThresholdBP = %d, want default", cfg.Engine.ThresholdBP)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.API.Port = 9999
	cfg.API.Keys = map[string]string{"secret": "operator"}
	cfg.Engine.PlatformFeeBP = 100
	cfg.Database.Path = "/tmp/fundra-test.db"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.API.Port != 9999 {
		t.Errorf("API.Port = %d, want %d", got.API.Port, 9999)
	}
	if got.API.Keys["secret"] != "operator" {
		t.Errorf("API.Keys[secret] = %q, want %q", got.API.Keys["secret"], "operator")
	}
	if got.Engine.PlatformFeeBP != 100 {
		t.Errorf("Engine.PlatformFeeBP = %d, want %d", got.Engine.PlatformFeeBP, 100)
	}
	if got.Database.Path != "/tmp/fundra-test.db" {
		t.Errorf("Database.Path = %q, want %q", got.Database.Path, "/tmp/fundra-test.db")
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	partial := "[engine]\nplatform_fee_bp = 0\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.PlatformFeeBP != 0 {
		t.Errorf("Engine.PlatformFeeBP = %d, want 0", cfg.Engine.PlatformFeeBP)
	}
	if cfg.Engine.ThresholdBP != 7_500 {
		t.Errorf("Engine.ThresholdBP = %d, want default %d", cfg.Engine.ThresholdBP, 7_500)
	}
}
