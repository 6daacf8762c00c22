// Package daemon holds the platform's TOML configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fundra-network/fundra/internal/app/engine"
	"github.com/fundra-network/fundra/internal/app/scheduler"
)

// Config is the full daemon configuration, loaded from
// ~/.fundra/config.toml.
type Config struct {
	API       APIConfig        `toml:"api"`
	Database  DatabaseConfig   `toml:"database"`
	Engine    EngineConfig     `toml:"engine"`
	Yield     YieldConfig      `toml:"yield"`
	Scheduler scheduler.Config `toml:"scheduler"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`

	// Keys maps bearer API keys to role names. Empty means the server
	// refuses all mutating calls.
	Keys map[string]string `toml:"keys"`
}

// DatabaseConfig configures the sqlite store.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// EngineConfig configures funding policy.
type EngineConfig struct {
	ThresholdBP     int64 `toml:"threshold_bp"`
	PlatformFeeBP   int64 `toml:"platform_fee_bp"`
	MinGoal         int64 `toml:"min_goal"`
	GoalCeiling     int64 `toml:"goal_ceiling"`
	MaxDurationDays int   `toml:"max_duration_days"`
	MinInvestment   int64 `toml:"min_investment"`
	VotingUnit      int64 `toml:"voting_unit"`
	ShareScale      int64 `toml:"share_scale"`
}

// YieldConfig configures the yield pool and the harvest split. The platform
// receives whatever the investor and issuer shares leave of 10,000 bp.
type YieldConfig struct {
	Enabled           bool   `toml:"enabled"`
	BaseRateBP        int64  `toml:"base_rate_bp"`
	CompoundingPeriod string `toml:"compounding_period"`
	InvestorSplitBP   int64  `toml:"investor_split_bp"`
	IssuerSplitBP     int64  `toml:"issuer_split_bp"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8470,
			Metrics: true,
			Keys:    map[string]string{},
		},
		Database: DatabaseConfig{
			Path: "", // resolved to ~/.fundra/fundra.db at load
		},
		Engine: EngineConfig{
			ThresholdBP:     7_500,
			PlatformFeeBP:   250,
			MinGoal:         1_000,
			GoalCeiling:     50_000_000,
			MaxDurationDays: 180,
			MinInvestment:   100,
			VotingUnit:      1_000,
			ShareScale:      1_000,
		},
		Yield: YieldConfig{
			Enabled:           true,
			BaseRateBP:        500,
			CompoundingPeriod: "24h",
			InvestorSplitBP:   5_000,
			IssuerSplitBP:     3_000,
		},
		Scheduler: scheduler.DefaultConfig(),
	}
}

// Dir returns the daemon's state directory, ~/.fundra.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".fundra"), nil
}

// ConfigPath returns the default config file location.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config at path, filling unset fields with defaults.
// A missing file yields pure defaults without error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating the directory if needed.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// EngineConfig assembles the engine's component policies from the daemon
// settings.
func (c Config) EngineConfig() (engine.Config, error) {
	ecfg := engine.DefaultConfig()
	ecfg.Ledger.ThresholdBP = c.Engine.ThresholdBP
	ecfg.Ledger.MinGoal = c.Engine.MinGoal
	ecfg.Ledger.GoalCeiling = c.Engine.GoalCeiling
	ecfg.Ledger.MaxDuration = time.Duration(c.Engine.MaxDurationDays) * 24 * time.Hour
	ecfg.Ledger.MinInvestment = c.Engine.MinInvestment
	ecfg.PlatformFeeBP = c.Engine.PlatformFeeBP
	ecfg.InvestorYieldBP = c.Yield.InvestorSplitBP
	ecfg.IssuerYieldBP = c.Yield.IssuerSplitBP
	ecfg.Certs.VotingUnit = c.Engine.VotingUnit
	ecfg.Certs.ShareScale = c.Engine.ShareScale

	ecfg.Yield.Active = c.Yield.Enabled
	ecfg.Yield.BaseRateBP = c.Yield.BaseRateBP
	if c.Yield.CompoundingPeriod != "" {
		period, err := time.ParseDuration(c.Yield.CompoundingPeriod)
		if err != nil {
			return engine.Config{}, fmt.Errorf("parse yield.compounding_period: %w", err)
		}
		ecfg.Yield.CompoundingPeriod = period
	}
	return ecfg, nil
}

// DatabasePath resolves the sqlite file location, defaulting into the state
// directory.
func (c Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "fundra.db"), nil
}
