package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

// aShareSpec is the main-board A-share fixture used throughout the engine
// tests: 0.03% commission with a 5 CNY floor, 0.1% sell-side stamp duty,
// ±10% band, T+1.
func aShareSpec() *InstrumentSpec {
	return &InstrumentSpec{
		Symbol:          "600000",
		Class:           Equity,
		Currency:        "CNY",
		Multiplier:      d("1"),
		TickSize:        d("0.01"),
		CommissionRate:  dp("0.0003"),
		MinCommission:   d("5"),
		StampDutyRate:   d("0.001"),
		LimitPct:        dp("0.10"),
		SettlementDelay: 1,
	}
}

func futuresSpec() *InstrumentSpec {
	return &InstrumentSpec{
		Symbol:                "IF2401",
		Class:                 Index,
		Currency:              "CNY",
		Multiplier:            d("300"),
		TickSize:              d("0.2"),
		CommissionPerContract: dp("23"),
		ShortEnabled:          true,
		MarginRate:            d("0.15"),
	}
}

func TestValidateRejectsIncompleteEconomics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*InstrumentSpec)
	}{
		{"zero multiplier", func(s *InstrumentSpec) { s.Multiplier = decimal.Zero }},
		{"negative multiplier", func(s *InstrumentSpec) { s.Multiplier = d("-1") }},
		{"zero tick", func(s *InstrumentSpec) { s.TickSize = decimal.Zero }},
		{"no commission model", func(s *InstrumentSpec) {
			s.CommissionRate = nil
			s.CommissionPerContract = nil
		}},
		{"limit pct one", func(s *InstrumentSpec) { s.LimitPct = dp("1") }},
		{"limit pct negative", func(s *InstrumentSpec) { s.LimitPct = dp("-0.1") }},
		{"negative settlement delay", func(s *InstrumentSpec) { s.SettlementDelay = -1 }},
		{"short without margin", func(s *InstrumentSpec) {
			s.ShortEnabled = true
			s.MarginRate = decimal.Zero
		}},
		{"empty symbol", func(s *InstrumentSpec) { s.Symbol = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec := aShareSpec()
			tc.mutate(spec)
			assert.Error(t, spec.Validate())
		})
	}

	assert.NoError(t, aShareSpec().Validate())
	assert.NoError(t, futuresSpec().Validate())
}

func TestCommissionRateModel(t *testing.T) {
	t.Parallel()

	spec := &InstrumentSpec{
		Symbol:         "TEST",
		Class:          Equity,
		Multiplier:     d("100"),
		TickSize:       d("0.01"),
		CommissionRate: dp("0.0003"),
	}
	require.NoError(t, spec.Validate())

	// The canonical fixture: 0.0003 * 5 * 10.00 * 100 = 1.50, exactly.
	fee := spec.Commission(5, d("10.00"))
	assert.True(t, fee.Equal(d("1.50")), "got %s", fee)

	// Bit-for-bit reproducible.
	assert.Equal(t, fee.String(), spec.Commission(5, d("10.00")).String())
}

func TestCommissionMinimumFloor(t *testing.T) {
	t.Parallel()

	spec := aShareSpec()

	// 100 shares at 10.00: 0.0003 * 100 * 10 = 0.30, floored to 5.
	assert.True(t, spec.Commission(100, d("10.00")).Equal(d("5")))

	// Large order clears the floor: 0.0003 * 10000 * 10 = 30.
	assert.True(t, spec.Commission(10000, d("10.00")).Equal(d("30")))
}

func TestCommissionPerContractWins(t *testing.T) {
	t.Parallel()

	spec := futuresSpec()
	spec.CommissionRate = dp("0.0003") // both configured

	// Per-contract fee takes precedence: 23 * 2 = 46.
	assert.True(t, spec.Commission(2, d("3800.0")).Equal(d("46")))
}

func TestStampDutySellSideOnly(t *testing.T) {
	t.Parallel()

	spec := aShareSpec()

	// Buys never pay duty.
	assert.True(t, spec.StampDuty(Buy, 1000, d("10.00")).IsZero())

	// Sell: 0.001 * 1000 * 10.00 = 10.00.
	assert.True(t, spec.StampDuty(Sell, 1000, d("10.00")).Equal(d("10")))

	// Futures carry no stamp duty at all.
	f := futuresSpec()
	f.StampDutyRate = d("0.001")
	assert.True(t, f.StampDuty(Sell, 1, d("3800")).IsZero())
}

func TestProfitLossSigned(t *testing.T) {
	t.Parallel()

	spec := futuresSpec()

	// Long: (3810 - 3800) * 2 * 300 = 6000.
	pl := spec.ProfitLoss(d("3800"), d("3810"), 2, Buy)
	assert.True(t, pl.Equal(d("6000")), "got %s", pl)

	// Short mirror: same move loses 6000.
	pl = spec.ProfitLoss(d("3800"), d("3810"), 2, Sell)
	assert.True(t, pl.Equal(d("-6000")), "got %s", pl)
}

func TestRoundPriceToTick(t *testing.T) {
	t.Parallel()

	spec := aShareSpec()
	assert.True(t, spec.RoundPrice(d("10.004")).Equal(d("10.00")))
	assert.True(t, spec.RoundPrice(d("10.005")).Equal(d("10.01")))

	f := futuresSpec()
	assert.True(t, f.RoundPrice(d("3800.09")).Equal(d("3800.0")))
	assert.True(t, f.RoundPrice(d("3800.1")).Equal(d("3800.2")))
}

func TestLimitBand(t *testing.T) {
	t.Parallel()

	spec := aShareSpec()
	lo, hi, ok := spec.LimitBand(d("100"))
	require.True(t, ok)
	assert.True(t, lo.Equal(d("90")), "lo %s", lo)
	assert.True(t, hi.Equal(d("110")), "hi %s", hi)

	// Band prices snap to tick.
	lo, hi, ok = spec.LimitBand(d("10.13"))
	require.True(t, ok)
	assert.True(t, lo.Equal(d("9.12")), "lo %s", lo)
	assert.True(t, hi.Equal(d("11.14")), "hi %s", hi)

	// No band configured.
	_, _, ok = futuresSpec().LimitBand(d("3800"))
	assert.False(t, ok)

	// Unusable previous close.
	_, _, ok = spec.LimitBand(decimal.Zero)
	assert.False(t, ok)
}
