package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/fxtrader/market"
)

// Config represents the complete run configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Pairs    []string       `json:"pairs" yaml:"pairs"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Live     LiveConfig     `json:"live" yaml:"live"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID           string  `json:"id" yaml:"id"`
	HomeCurrency string  `json:"home_currency" yaml:"home_currency"`
	Equity       float64 `json:"equity" yaml:"equity"`
	RiskPerTrade float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	Leverage     float64 `json:"leverage" yaml:"leverage"`
}

// EquityDecimal and friends hand the float settings to the decimal
// domain. NewFromFloat keeps the shortest representation, so 0.02 stays
// exactly 0.02.
func (a AccountConfig) EquityDecimal() decimal.Decimal { return decimal.NewFromFloat(a.Equity) }
func (a AccountConfig) RiskDecimal() decimal.Decimal   { return decimal.NewFromFloat(a.RiskPerTrade) }
func (a AccountConfig) LeverageDecimal() decimal.Decimal {
	return decimal.NewFromFloat(a.Leverage)
}

// StrategyConfig selects and parameterizes the strategy
type StrategyConfig struct {
	Name        string `json:"name" yaml:"name"` // "mac" or "alternating"
	ShortWindow int    `json:"short_window" yaml:"short_window"`
	LongWindow  int    `json:"long_window" yaml:"long_window"`
	Interval    int    `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// BacktestConfig contains historic replay parameters
type BacktestConfig struct {
	DataDir   string `json:"data_dir" yaml:"data_dir"`
	Heartbeat string `json:"heartbeat" yaml:"heartbeat"` // e.g. "0s", "10ms"
	MaxIters  int    `json:"max_iters" yaml:"max_iters"` // 0 means until data ends
}

// LiveConfig contains OANDA streaming parameters. The API token is read
// from OANDA_TOKEN, never from the file.
type LiveConfig struct {
	Environment string `json:"environment" yaml:"environment"` // "practice" or "live"
	AccountID   string `json:"account_id" yaml:"account_id"`
	Heartbeat   string `json:"heartbeat" yaml:"heartbeat"`
	StreamURL   string `json:"stream_url,omitempty" yaml:"stream_url,omitempty"`
	APIURL      string `json:"api_url,omitempty" yaml:"api_url,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type      string `json:"type" yaml:"type"` // "csv" or "sqlite"
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	DBPath    string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// TradesPath is where the CSV journal writes closed trades.
func (j JournalConfig) TradesPath() string { return filepath.Join(j.OutputDir, "trades.csv") }

// EquityPath is the per-tick equity log.
func (j JournalConfig) EquityPath() string { return filepath.Join(j.OutputDir, "backtest.csv") }

// SummaryPath is the derived equity curve.
func (j JournalConfig) SummaryPath() string { return filepath.Join(j.OutputDir, "equity.csv") }

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr"` // empty disables /metrics
}

// ParseDuration converts a duration setting; empty means zero.
func ParseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return time.ParseDuration(strings.TrimSpace(s))
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func (c *Config) normalize() {
	c.Account.HomeCurrency = strings.ToUpper(strings.TrimSpace(c.Account.HomeCurrency))
	for i, p := range c.Pairs {
		c.Pairs[i] = market.FromInstrument(p)
	}
	c.Strategy.Name = strings.ToLower(strings.TrimSpace(c.Strategy.Name))
	c.Journal.Type = strings.ToLower(strings.TrimSpace(c.Journal.Type))
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := market.ValidateCurrency(c.Account.HomeCurrency); err != nil {
		return fmt.Errorf("account.home_currency: %w", err)
	}
	if c.Account.Equity <= 0 {
		return errors.New("account.equity must be positive")
	}
	if c.Account.RiskPerTrade <= 0 || c.Account.RiskPerTrade > 1 {
		return errors.New("account.risk_per_trade must be in (0, 1]")
	}
	if c.Account.Leverage < 0 {
		return errors.New("account.leverage must not be negative")
	}

	if len(c.Pairs) == 0 {
		return errors.New("pairs must list at least one pair")
	}
	seen := make(map[string]bool, len(c.Pairs))
	for _, p := range c.Pairs {
		if err := market.ValidatePair(p); err != nil {
			return fmt.Errorf("pairs: %w", err)
		}
		if seen[p] {
			return fmt.Errorf("pairs: %s listed twice", p)
		}
		seen[p] = true
	}
	if err := c.checkConversions(); err != nil {
		return err
	}

	switch c.Strategy.Name {
	case "mac", "":
		if c.Strategy.ShortWindow <= 0 || c.Strategy.LongWindow <= c.Strategy.ShortWindow {
			return errors.New("strategy windows must satisfy 0 < short_window < long_window")
		}
	case "alternating":
		if c.Strategy.Interval < 0 {
			return errors.New("strategy.interval must not be negative")
		}
	default:
		return fmt.Errorf("unknown strategy %q (want mac or alternating)", c.Strategy.Name)
	}

	if _, err := ParseDuration(c.Backtest.Heartbeat); err != nil {
		return fmt.Errorf("backtest.heartbeat: %w", err)
	}
	if c.Backtest.MaxIters < 0 {
		return errors.New("backtest.max_iters must not be negative")
	}
	if _, err := ParseDuration(c.Live.Heartbeat); err != nil {
		return fmt.Errorf("live.heartbeat: %w", err)
	}
	if env := c.Live.Environment; env != "" && env != "practice" && env != "live" {
		return fmt.Errorf("live.environment must be 'practice' or 'live', got %q", env)
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.OutputDir == "" {
			return errors.New("journal output_dir required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return errors.New("journal db_path required for SQLite type")
		}
	default:
		return errors.New("journal.type must be 'csv' or 'sqlite'")
	}
	return nil
}

// checkConversions makes sure every pair's quote currency can be turned
// into the home currency from the traded pairs or their inverses.
func (c *Config) checkConversions() error {
	avail := make(map[string]bool, 2*len(c.Pairs))
	for _, p := range c.Pairs {
		avail[p] = true
		avail[market.Invert(p)] = true
	}
	for _, p := range c.Pairs {
		conv := market.ConversionPair(p, c.Account.HomeCurrency)
		if conv != "" && !avail[conv] {
			return fmt.Errorf("pairs: %s needs %s (or %s) to convert profits to %s",
				p, conv, market.Invert(conv), c.Account.HomeCurrency)
		}
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:           "SIM-001",
			HomeCurrency: "EUR",
			Equity:       100000,
			RiskPerTrade: 0.02,
			Leverage:     20,
		},
		Pairs: []string{"GBPUSD", "EURUSD"},
		Strategy: StrategyConfig{
			Name:        "mac",
			ShortWindow: 500,
			LongWindow:  2000,
			Interval:    5,
		},
		Backtest: BacktestConfig{
			DataDir:   "./data",
			Heartbeat: "0s",
		},
		Live: LiveConfig{
			Environment: "practice",
			Heartbeat:   "500ms",
		},
		Journal: JournalConfig{
			Type:      "csv",
			OutputDir: "./output",
			DBPath:    "./output/fxtrader.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
