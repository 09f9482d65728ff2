package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
)

const sampleYAML = `
session:
  symbol: BTCUSDT
  initial_cash: 10000
  fee_rate: 0.001
  slippage: 0.0005
  close_on_finish: false

strategy:
  name: rsireversion
  quantity: 0.5
  options:
    period: 10
    oversold: 25

limits:
  strategy_timeout_ms: 250
  replay_timeout_sec: 30
  fault_threshold: 5
  min_lookback: 12

analytics:
  periods_per_year: 365

paper:
  steps_per_second: 2
`

func TestLoadFromBytes(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Session.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %q, want BTCUSDT", cfg.Session.Symbol)
	}
	if cfg.Strategy.Name != "rsireversion" {
		t.Errorf("strategy = %q, want rsireversion", cfg.Strategy.Name)
	}
	if cfg.Strategy.Options["period"] != 10 {
		t.Errorf("period option = %v, want 10", cfg.Strategy.Options["period"])
	}
	if cfg.CloseOnFinish() {
		t.Error("close_on_finish explicitly false, got true")
	}
}

func TestCloseOnFinish_DefaultsTrue(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("session:\n  symbol: X\n  initial_cash: 100\nstrategy:\n  name: smacross\n  quantity: 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.CloseOnFinish() {
		t.Error("close_on_finish should default to true when omitted")
	}
}

func TestLoadFromBytes_ExpandsEnv(t *testing.T) {
	os.Setenv("SIMCORE_TEST_SYMBOL", "ETHUSDT")
	defer os.Unsetenv("SIMCORE_TEST_SYMBOL")

	yaml := "session:\n  symbol: ${SIMCORE_TEST_SYMBOL}\n  initial_cash: 100\nstrategy:\n  name: smacross\n  quantity: 1\n"
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Session.Symbol != "ETHUSDT" {
		t.Errorf("symbol = %q, want ETHUSDT from environment", cfg.Session.Symbol)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing symbol", func(c *Config) { c.Session.Symbol = "" }},
		{"zero cash", func(c *Config) { c.Session.InitialCash = 0 }},
		{"fee out of range", func(c *Config) { c.Session.FeeRate = 1 }},
		{"negative slippage", func(c *Config) { c.Session.Slippage = -0.1 }},
		{"missing strategy", func(c *Config) { c.Strategy.Name = "" }},
		{"zero quantity", func(c *Config) { c.Strategy.Quantity = 0 }},
		{"negative threshold", func(c *Config) { c.Limits.FaultThreshold = -1 }},
		{"persistence without path", func(c *Config) { c.Persistence.Enabled = true; c.Persistence.Path = "" }},
		{"bad metrics port", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Port = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if !errors.Is(cfg.Validate(), types.ErrInvalidConfig) {
				t.Error("expected ErrInvalidConfig")
			}
		})
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestToReplayConfig(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}

	rc := cfg.ToReplayConfig()
	if !rc.InitialCash.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("initial cash = %s, want 10000", rc.InitialCash)
	}
	if !rc.FeeRate.Equal(decimal.NewFromFloat(0.001)) {
		t.Errorf("fee rate = %s, want 0.001", rc.FeeRate)
	}
	if rc.StrategyTimeout != 250*time.Millisecond {
		t.Errorf("strategy timeout = %s, want 250ms", rc.StrategyTimeout)
	}
	if rc.ReplayTimeout != 30*time.Second {
		t.Errorf("replay timeout = %s, want 30s", rc.ReplayTimeout)
	}
	if rc.CloseOnFinish {
		t.Error("close_on_finish should be false per the sample")
	}
	if err := rc.Validate(); err != nil {
		t.Errorf("converted driver config invalid: %v", err)
	}
}

func TestToStrategyParams(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}

	p := cfg.ToStrategyParams()
	if p.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %q, want BTCUSDT", p.Symbol)
	}
	if !p.Quantity.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("quantity = %s, want 0.5", p.Quantity)
	}
	if p.Options["oversold"] != 25 {
		t.Errorf("oversold option = %v, want 25", p.Options["oversold"])
	}
}
