// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/marketforge/simcore/internal/replay"
	"github.com/marketforge/simcore/internal/strategy"
	"github.com/marketforge/simcore/internal/types"
)

// Config represents the full application configuration.
type Config struct {
	Session     SessionConfig     `yaml:"session"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Limits      LimitsConfig      `yaml:"limits"`
	Data        DataConfig        `yaml:"data"`
	Analytics   AnalyticsConfig   `yaml:"analytics"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Alerting    AlertingConfig    `yaml:"alerting"`
	Paper       PaperConfig       `yaml:"paper"`
}

// SessionConfig holds the economic parameters of a simulation.
type SessionConfig struct {
	Symbol        string  `yaml:"symbol"`
	InitialCash   float64 `yaml:"initial_cash"`
	FeeRate       float64 `yaml:"fee_rate"`
	Slippage      float64 `yaml:"slippage"`
	CloseOnFinish *bool   `yaml:"close_on_finish"` // nil means true
}

// StrategyConfig selects and tunes the decision procedure.
type StrategyConfig struct {
	Name     string             `yaml:"name"`
	Quantity float64            `yaml:"quantity"`
	Options  map[string]float64 `yaml:"options"`
}

// LimitsConfig bounds the untrusted strategy code and the replay itself.
type LimitsConfig struct {
	StrategyTimeoutMs int `yaml:"strategy_timeout_ms"`
	ReplayTimeoutSec  int `yaml:"replay_timeout_sec"`
	FaultThreshold    int `yaml:"fault_threshold"`
	MinLookback       int `yaml:"min_lookback"`
}

// DataConfig selects the bar source.
type DataConfig struct {
	CSVPath        string  `yaml:"csv_path"`
	SyntheticBars  int     `yaml:"synthetic_bars"`
	SyntheticSeed  int64   `yaml:"synthetic_seed"`
	SyntheticStart float64 `yaml:"synthetic_start_price"`
}

// AnalyticsConfig holds metric conventions.
type AnalyticsConfig struct {
	PeriodsPerYear int `yaml:"periods_per_year"`
}

// PersistenceConfig holds session storage settings.
type PersistenceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // sqlite database file
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// AlertingConfig holds alerting settings.
type AlertingConfig struct {
	Enabled bool     `yaml:"enabled"`
	Events  []string `yaml:"events"`
}

// PaperConfig holds paper-mode settings.
type PaperConfig struct {
	StepsPerSecond float64 `yaml:"steps_per_second"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Symbol:      "DEMO",
			InitialCash: 10000,
			FeeRate:     0.001,
		},
		Strategy: StrategyConfig{
			Name:     "smacross",
			Quantity: 1,
		},
		Limits: LimitsConfig{
			StrategyTimeoutMs: 500,
			ReplayTimeoutSec:  60,
			FaultThreshold:    10,
		},
		Data: DataConfig{
			SyntheticBars: 252,
			SyntheticSeed: 42,
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Environment variables
// in the file are expanded before parsing.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Session.Symbol == "" {
		errs = append(errs, "session.symbol is required")
	}
	if c.Session.InitialCash <= 0 {
		errs = append(errs, "session.initial_cash must be positive")
	}
	if c.Session.FeeRate < 0 || c.Session.FeeRate >= 1 {
		errs = append(errs, "session.fee_rate must be in [0, 1)")
	}
	if c.Session.Slippage < 0 || c.Session.Slippage >= 1 {
		errs = append(errs, "session.slippage must be in [0, 1)")
	}

	if c.Strategy.Name == "" {
		errs = append(errs, "strategy.name is required")
	}
	if c.Strategy.Quantity <= 0 {
		errs = append(errs, "strategy.quantity must be positive")
	}

	if c.Limits.StrategyTimeoutMs < 0 {
		errs = append(errs, "limits.strategy_timeout_ms must not be negative")
	}
	if c.Limits.ReplayTimeoutSec < 0 {
		errs = append(errs, "limits.replay_timeout_sec must not be negative")
	}
	if c.Limits.FaultThreshold < 0 {
		errs = append(errs, "limits.fault_threshold must not be negative")
	}
	if c.Limits.MinLookback < 0 {
		errs = append(errs, "limits.min_lookback must not be negative")
	}

	if c.Analytics.PeriodsPerYear < 0 {
		errs = append(errs, "analytics.periods_per_year must not be negative")
	}
	if c.Paper.StepsPerSecond < 0 {
		errs = append(errs, "paper.steps_per_second must not be negative")
	}

	if c.Persistence.Enabled && c.Persistence.Path == "" {
		errs = append(errs, "persistence.path is required when persistence is enabled")
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, "metrics.port must be a valid port")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// ToReplayConfig converts to the driver configuration.
func (c *Config) ToReplayConfig() replay.Config {
	return replay.Config{
		Symbol:          c.Session.Symbol,
		InitialCash:     decimal.NewFromFloat(c.Session.InitialCash),
		FeeRate:         decimal.NewFromFloat(c.Session.FeeRate),
		Slippage:        decimal.NewFromFloat(c.Session.Slippage),
		CloseOnFinish:   c.CloseOnFinish(),
		MinLookback:     c.Limits.MinLookback,
		FaultThreshold:  c.Limits.FaultThreshold,
		StrategyTimeout: time.Duration(c.Limits.StrategyTimeoutMs) * time.Millisecond,
		ReplayTimeout:   time.Duration(c.Limits.ReplayTimeoutSec) * time.Second,
		PeriodsPerYear:  c.Analytics.PeriodsPerYear,
		StepsPerSecond:  c.Paper.StepsPerSecond,
	}
}

// ToStrategyParams converts to the registry parameters.
func (c *Config) ToStrategyParams() strategy.Params {
	return strategy.Params{
		Symbol:   c.Session.Symbol,
		Quantity: decimal.NewFromFloat(c.Strategy.Quantity),
		Options:  c.Strategy.Options,
	}
}

// CloseOnFinish returns the liquidation flag, defaulting to true.
func (c *Config) CloseOnFinish() bool {
	if c.Session.CloseOnFinish == nil {
		return true
	}
	return *c.Session.CloseOnFinish
}
