package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlConfig = `
account:
  id: SIM-001
  currency: CNY
  initial_capital: "100000"
instruments:
  - symbol: "600000"
    class: equity
    currency: CNY
    multiplier: "1"
    tick_size: "0.01"
    commission_rate: "0.0003"
    min_commission: "5"
    stamp_duty_rate: "0.001"
    limit_pct: "0.10"
    settlement_delay: 1
simulation:
  timing: close
  gap_policy: skip
  close_end: true
  slippage: "0.001"
strategy:
  name: ma-cross
  symbol: "600000"
  qty: 100
  fast: 5
  slow: 20
journal:
  type: none
`

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromFile(writeConfig(t, "cfg.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "SIM-001", cfg.Account.ID)
	assert.Equal(t, "ma-cross", cfg.Strategy.Name)
	require.Len(t, cfg.Instruments, 1)
	assert.Equal(t, "600000", cfg.Instruments[0].Symbol)

	capital, err := cfg.InitialCapital()
	require.NoError(t, err)
	assert.Equal(t, "100000", capital.String())

	slip, err := cfg.Slippage()
	require.NoError(t, err)
	assert.Equal(t, "0.001", slip.String())
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	const jsonConfig = `{
	  "account": {"id": "SIM-002", "currency": "CNY", "initial_capital": "50000"},
	  "instruments": [{
	    "symbol": "000001",
	    "class": "equity",
	    "multiplier": "1",
	    "tick_size": "0.01",
	    "commission_rate": "0.0003",
	    "min_commission": "5",
	    "stamp_duty_rate": "0.001",
	    "limit_pct": "0.10",
	    "settlement_delay": 1
	  }],
	  "simulation": {"timing": "next-open", "gap_policy": "abort", "close_end": false},
	  "strategy": {"name": "noop"},
	  "journal": {"type": "none"}
	}`

	cfg, err := LoadFromFile(writeConfig(t, "cfg.json", jsonConfig))
	require.NoError(t, err)
	assert.Equal(t, "SIM-002", cfg.Account.ID)
	assert.Equal(t, "next-open", cfg.Simulation.Timing)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing capital", func(c *Config) { c.Account.InitialCapital = "" }},
		{"bad capital", func(c *Config) { c.Account.InitialCapital = "lots" }},
		{"negative capital", func(c *Config) { c.Account.InitialCapital = "-1" }},
		{"no instruments", func(c *Config) { c.Instruments = nil }},
		{"bad timing", func(c *Config) { c.Simulation.Timing = "open" }},
		{"bad gap policy", func(c *Config) { c.Simulation.GapPolicy = "ignore" }},
		{"missing strategy", func(c *Config) { c.Strategy.Name = "" }},
		{"bad journal type", func(c *Config) { c.Journal.Type = "postgres" }},
		{"sqlite without path", func(c *Config) {
			c.Journal = JournalConfig{Type: "sqlite"}
		}},
		{"csv without files", func(c *Config) {
			c.Journal = JournalConfig{Type: "csv", FillsFile: "f.csv"}
		}},
		{"instrument missing tick", func(c *Config) { c.Instruments[0].TickSize = "" }},
		{"instrument bad rate", func(c *Config) { c.Instruments[0].CommissionRate = "cheap" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	specs, err := cfg.InstrumentSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "600000", specs[0].Symbol)
	assert.Equal(t, 1, specs[0].SettlementDelay)
	require.NotNil(t, specs[0].LimitPct)
	assert.Equal(t, "0.1", specs[0].LimitPct.String())
}

func TestSpecConversion(t *testing.T) {
	t.Parallel()

	ic := InstrumentConfig{
		Symbol:                "IF2401",
		Class:                 "index",
		Currency:              "CNY",
		Multiplier:            "300",
		TickSize:              "0.2",
		CommissionPerContract: "23",
		ShortEnabled:          true,
		MarginRate:            "0.15",
	}

	spec, err := ic.Spec()
	require.NoError(t, err)
	assert.True(t, spec.ShortEnabled)
	assert.Nil(t, spec.CommissionRate)
	require.NotNil(t, spec.CommissionPerContract)
	assert.Equal(t, "23", spec.CommissionPerContract.String())
	assert.Equal(t, "0.15", spec.MarginRate.String())

	// Missing multiplier fails before spec validation.
	ic.Multiplier = ""
	_, err = ic.Spec()
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, name := range []string{"out.yaml", "out.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Default().SaveToFile(path))

		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, Default().Account.ID, cfg.Account.ID)
		assert.Equal(t, Default().Strategy.Slow, cfg.Strategy.Slow)
	}
}
