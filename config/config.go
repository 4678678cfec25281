// Package config loads and validates run configuration. Monetary and rate
// fields are strings in the file and parsed to decimals here, so a config
// never smuggles binary-float values into the engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mytrader/engine/market"
)

// Config represents the complete backtest configuration.
type Config struct {
	Account     AccountConfig      `json:"account" yaml:"account"`
	Instruments []InstrumentConfig `json:"instruments" yaml:"instruments"`
	Simulation  SimulationConfig   `json:"simulation" yaml:"simulation"`
	Strategy    StrategyConfig     `json:"strategy" yaml:"strategy"`
	Journal     JournalConfig      `json:"journal" yaml:"journal"`
}

// AccountConfig contains account initialization parameters.
type AccountConfig struct {
	ID             string `json:"id" yaml:"id"`
	Currency       string `json:"currency" yaml:"currency"`
	InitialCapital string `json:"initial_capital" yaml:"initial_capital"`
}

// InstrumentConfig mirrors market.InstrumentSpec with string-typed
// decimals. Optional fields stay empty rather than defaulting.
type InstrumentConfig struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Class  string `json:"class" yaml:"class"`

	Currency   string `json:"currency,omitempty" yaml:"currency,omitempty"`
	Multiplier string `json:"multiplier" yaml:"multiplier"`
	TickSize   string `json:"tick_size" yaml:"tick_size"`

	CommissionRate        string `json:"commission_rate,omitempty" yaml:"commission_rate,omitempty"`
	CommissionPerContract string `json:"commission_per_contract,omitempty" yaml:"commission_per_contract,omitempty"`
	MinCommission         string `json:"min_commission,omitempty" yaml:"min_commission,omitempty"`
	StampDutyRate         string `json:"stamp_duty_rate,omitempty" yaml:"stamp_duty_rate,omitempty"`

	LimitPct        string `json:"limit_pct,omitempty" yaml:"limit_pct,omitempty"`
	SettlementDelay int    `json:"settlement_delay" yaml:"settlement_delay"`

	ShortEnabled bool   `json:"short_enabled,omitempty" yaml:"short_enabled,omitempty"`
	MarginRate   string `json:"margin_rate,omitempty" yaml:"margin_rate,omitempty"`
}

// SimulationConfig contains execution policies.
type SimulationConfig struct {
	Timing    string `json:"timing" yaml:"timing"`         // "close" or "next-open"
	GapPolicy string `json:"gap_policy" yaml:"gap_policy"` // "skip" or "abort"
	CloseEnd  bool   `json:"close_end" yaml:"close_end"`
	Slippage  string `json:"slippage,omitempty" yaml:"slippage,omitempty"`
}

// StrategyConfig selects and parameterizes the strategy.
type StrategyConfig struct {
	Name   string `json:"name" yaml:"name"`
	Symbol string `json:"symbol" yaml:"symbol"`
	Qty    int64  `json:"qty" yaml:"qty"`
	Fast   int    `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow   int    `json:"slow,omitempty" yaml:"slow,omitempty"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	FillsFile  string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	RunsFile   string `json:"runs_file,omitempty" yaml:"runs_file,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on
// content).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON.
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on
// extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
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

// Validate checks the configuration without building engine objects. The
// deeper checks live in market.InstrumentSpec.Validate, reached through
// InstrumentSpecs.
func (c *Config) Validate() error {
	if c.Account.InitialCapital == "" {
		return fmt.Errorf("account.initial_capital is required")
	}
	capital, err := decimal.NewFromString(c.Account.InitialCapital)
	if err != nil {
		return fmt.Errorf("account.initial_capital: %w", err)
	}
	if !capital.IsPositive() {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	if _, err := c.InstrumentSpecs(); err != nil {
		return err
	}
	switch c.Simulation.Timing {
	case "", "close", "next-open":
	default:
		return fmt.Errorf("simulation.timing must be 'close' or 'next-open'")
	}
	switch c.Simulation.GapPolicy {
	case "", "skip", "abort":
	default:
		return fmt.Errorf("simulation.gap_policy must be 'skip' or 'abort'")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	switch c.Journal.Type {
	case "", "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite type")
		}
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.EquityFile == "" || c.Journal.RunsFile == "" {
			return fmt.Errorf("journal fills_file, equity_file and runs_file required for csv type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// InitialCapital parses the configured starting capital.
func (c *Config) InitialCapital() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Account.InitialCapital)
}

// Slippage parses the configured slippage fraction, zero when unset.
func (c *Config) Slippage() (decimal.Decimal, error) {
	if c.Simulation.Slippage == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(c.Simulation.Slippage)
}

// InstrumentSpecs builds validated market.InstrumentSpec values.
func (c *Config) InstrumentSpecs() ([]*market.InstrumentSpec, error) {
	out := make([]*market.InstrumentSpec, 0, len(c.Instruments))
	for i := range c.Instruments {
		spec, err := c.Instruments[i].Spec()
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

// Spec converts one instrument config into a validated InstrumentSpec.
func (ic *InstrumentConfig) Spec() (*market.InstrumentSpec, error) {
	spec := &market.InstrumentSpec{
		Symbol:          ic.Symbol,
		Name:            ic.Name,
		Class:           market.AssetClass(ic.Class),
		Currency:        ic.Currency,
		SettlementDelay: ic.SettlementDelay,
		ShortEnabled:    ic.ShortEnabled,
	}

	var err error
	if spec.Multiplier, err = requiredDecimal(ic.Symbol, "multiplier", ic.Multiplier); err != nil {
		return nil, err
	}
	if spec.TickSize, err = requiredDecimal(ic.Symbol, "tick_size", ic.TickSize); err != nil {
		return nil, err
	}
	if spec.CommissionRate, err = optionalDecimal(ic.Symbol, "commission_rate", ic.CommissionRate); err != nil {
		return nil, err
	}
	if spec.CommissionPerContract, err = optionalDecimal(ic.Symbol, "commission_per_contract", ic.CommissionPerContract); err != nil {
		return nil, err
	}
	if v, err := optionalDecimal(ic.Symbol, "min_commission", ic.MinCommission); err != nil {
		return nil, err
	} else if v != nil {
		spec.MinCommission = *v
	}
	if v, err := optionalDecimal(ic.Symbol, "stamp_duty_rate", ic.StampDutyRate); err != nil {
		return nil, err
	} else if v != nil {
		spec.StampDutyRate = *v
	}
	if spec.LimitPct, err = optionalDecimal(ic.Symbol, "limit_pct", ic.LimitPct); err != nil {
		return nil, err
	}
	if v, err := optionalDecimal(ic.Symbol, "margin_rate", ic.MarginRate); err != nil {
		return nil, err
	} else if v != nil {
		spec.MarginRate = *v
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func requiredDecimal(symbol, field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("instrument %s: %s is required", symbol, field)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("instrument %s: %s: %w", symbol, field, err)
	}
	return d, nil
}

func optionalDecimal(symbol, field, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("instrument %s: %s: %w", symbol, field, err)
	}
	return &d, nil
}

// Default returns a configuration with sensible A-share main-board
// defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:             "SIM-001",
			Currency:       "CNY",
			InitialCapital: "100000",
		},
		Instruments: []InstrumentConfig{{
			Symbol:          "600000",
			Class:           "equity",
			Currency:        "CNY",
			Multiplier:      "1",
			TickSize:        "0.01",
			CommissionRate:  "0.0003",
			MinCommission:   "5",
			StampDutyRate:   "0.001",
			LimitPct:        "0.10",
			SettlementDelay: 1,
		}},
		Simulation: SimulationConfig{
			Timing:    "close",
			GapPolicy: "skip",
			CloseEnd:  true,
			Slippage:  "0.001",
		},
		Strategy: StrategyConfig{
			Name:   "ma-cross",
			Symbol: "600000",
			Qty:    100,
			Fast:   5,
			Slow:   20,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./backtest.sqlite",
		},
	}
}
