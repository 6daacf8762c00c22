package scheduler

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/fundra-network/fundra/internal/app/engine"
)

func TestNewValidatesSpecs(t *testing.T) {
	eng := engine.New(engine.DefaultConfig(), nil, zerolog.Nop())

	if _, err := New(DefaultConfig(), eng, zerolog.Nop()); err != nil {
		t.Fatalf("New with defaults failed: %v", err)
	}

	bad := Config{SweepSpec: "not a cron spec", CompoundSpec: "@every 1h"}
	if _, err := New(bad, eng, zerolog.Nop()); err == nil {
		t.Error("New accepted an invalid sweep spec")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SweepSpec != "@every 1m" {
		t.Errorf("SweepSpec = %q, want @every 1m", cfg.SweepSpec)
	}
	if cfg.CompoundSpec != "@every 1h" {
		t.Errorf("CompoundSpec = %q, want @every 1h", cfg.CompoundSpec)
	}
}
