package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mytrader/engine/market"
	"github.com/mytrader/engine/sim"
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

func equitySpecs() map[string]*market.InstrumentSpec {
	return map[string]*market.InstrumentSpec{
		"600000": {
			Symbol:          "600000",
			Class:           market.Equity,
			Currency:        "CNY",
			Multiplier:      d("1"),
			TickSize:        d("0.01"),
			CommissionRate:  dp("0.0003"),
			MinCommission:   d("5"),
			StampDutyRate:   d("0.001"),
			LimitPct:        dp("0.10"),
			SettlementDelay: 1,
		},
	}
}

func futuresSpecs() map[string]*market.InstrumentSpec {
	return map[string]*market.InstrumentSpec{
		"IF2401": {
			Symbol:                "IF2401",
			Class:                 market.Index,
			Currency:              "CNY",
			Multiplier:            d("300"),
			TickSize:              d("0.2"),
			CommissionPerContract: dp("23"),
			ShortEnabled:          true,
			MarginRate:            d("0.15"),
		},
	}
}

func newTestLedger(t *testing.T, cash string, specs map[string]*market.InstrumentSpec) *Ledger {
	t.Helper()
	for _, s := range specs {
		require.NoError(t, s.Validate())
	}
	return New("TEST", d(cash), specs)
}

func fill(symbol string, side market.Side, qty int64, price, commission, duty string) *sim.Fill {
	return &sim.Fill{
		ID:         "F-000001",
		Symbol:     symbol,
		Side:       side,
		Qty:        qty,
		Price:      d(price),
		Session:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Commission: d(commission),
		StampDuty:  d(duty),
		Reason:     sim.ReasonStrategy,
	}
}

func TestBuyMovesCashAndBasis(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "100000", equitySpecs())
	require.NoError(t, l.ApplyFill(fill("600000", market.Buy, 1000, "10.00", "5", "0")))

	// 100000 - 10000 - 5 = 89995
	assert.True(t, l.Cash().Equal(d("89995")), "cash %s", l.Cash())
	e := l.Entry("600000")
	require.NotNil(t, e)
	assert.Equal(t, int64(1000), e.Qty)
	assert.True(t, e.AvgCost.Equal(d("10.00")))
	assert.True(t, e.FeesPaid.Equal(d("5")))
}

func TestWeightedAverageCost(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "100000", equitySpecs())
	require.NoError(t, l.ApplyFill(fill("600000", market.Buy, 1000, "10.00", "5", "0")))
	require.NoError(t, l.ApplyFill(fill("600000", market.Buy, 500, "11.50", "5", "0")))

	e := l.Entry("600000")
	assert.Equal(t, int64(1500), e.Qty)
	// (1000*10 + 500*11.5) / 1500 = 15750 / 1500 = 10.5
	assert.True(t, e.AvgCost.Equal(d("10.5")), "avg cost %s", e.AvgCost)
}

func TestSellRealizesGrossPnL(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "100000", equitySpecs())
	require.NoError(t, l.ApplyFill(fill("600000", market.Buy, 1000, "10.00", "5", "0")))
	l.AdvanceSession()
	require.NoError(t, l.ApplyFill(fill("600000", market.Sell, 1000, "11.00", "5", "11")))

	e := l.Entry("600000")
	assert.Equal(t, int64(0), e.Qty)
	assert.True(t, e.AvgCost.IsZero())
	// Realized P&L stays gross: (11 - 10) * 1000 = 1000.
	assert.True(t, e.RealizedPnL.Equal(d("1000")), "pnl %s", e.RealizedPnL)
	assert.True(t, e.FeesPaid.Equal(d("21")))

	// Cash: 100000 - 10005 + 11000 - 16 = 100979.
	assert.True(t, l.Cash().Equal(d("100979")), "cash %s", l.Cash())

	// Accounting identity: equity = initial + realized - fees when flat.
	eq := l.Equity(map[string]decimal.Decimal{"600000": d("11")})
	want := d("100000").Add(d("1000")).Sub(d("21"))
	assert.True(t, eq.Equal(want), "equity %s want %s", eq, want)
}

func TestSettlementCohortsMature(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "100000", equitySpecs())
	require.NoError(t, l.ApplyFill(fill("600000", market.Buy, 1000, "10.00", "5", "0")))

	// Same session: nothing sellable yet.
	assert.Equal(t, int64(1000), l.PositionQty("600000"))
	assert.Equal(t, int64(0), l.SettledQty("600000"))

	// Another lot bought the same day joins the same hold.
	require.NoError(t, l.ApplyFill(fill("600000", market.Buy, 500, "10.20", "5", "0")))
	assert.Equal(t, int64(0), l.SettledQty("600000"))

	// Next session: both cohorts mature (T+1).
	l.AdvanceSession()
	assert.Equal(t, int64(1500), l.SettledQty("600000"))

	// A fresh buy is held again while the old quantity stays sellable.
	require.NoError(t, l.ApplyFill(fill("600000", market.Buy, 200, "10.10", "5", "0")))
	assert.Equal(t, int64(1700), l.PositionQty("600000"))
	assert.Equal(t, int64(1500), l.SettledQty("600000"))

	l.AdvanceSession()
	assert.Equal(t, int64(1700), l.SettledQty("600000"))
}

func TestZeroDelaySettlesImmediately(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "10000000", futuresSpecs())
	require.NoError(t, l.ApplyFill(fill("IF2401", market.Buy, 2, "3800", "46", "0")))
	assert.Equal(t, int64(2), l.SettledQty("IF2401"))
}

func TestShortPositionLifecycle(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "1000000", futuresSpecs())

	// Open short 2 lots at 3800: cash collects the notional.
	require.NoError(t, l.ApplyFill(fill("IF2401", market.Sell, 2, "3800", "46", "0")))
	e := l.Entry("IF2401")
	assert.Equal(t, int64(-2), e.Qty)
	assert.True(t, e.AvgCost.Equal(d("3800")))
	// 1000000 + 2*3800*300 - 46 = 3279954
	assert.True(t, l.Cash().Equal(d("3279954")), "cash %s", l.Cash())

	// Cover at 3750: short profits (3800-3750)*2*300 = 30000.
	require.NoError(t, l.ApplyFill(fill("IF2401", market.Buy, 2, "3750", "46", "0")))
	e = l.Entry("IF2401")
	assert.Equal(t, int64(0), e.Qty)
	assert.True(t, e.RealizedPnL.Equal(d("30000")), "pnl %s", e.RealizedPnL)

	// Flat again: equity = 1000000 + 30000 - 92.
	eq := l.Equity(map[string]decimal.Decimal{"IF2401": d("3750")})
	assert.True(t, eq.Equal(d("1029908")), "equity %s", eq)
}

func TestPartialCloseThenReverse(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "10000000", futuresSpecs())
	require.NoError(t, l.ApplyFill(fill("IF2401", market.Buy, 3, "3800", "69", "0")))

	// Sell 5: closes the 3 longs and opens a 2-lot short at 3850.
	require.NoError(t, l.ApplyFill(fill("IF2401", market.Sell, 5, "3850", "115", "0")))

	e := l.Entry("IF2401")
	assert.Equal(t, int64(-2), e.Qty)
	assert.True(t, e.AvgCost.Equal(d("3850")))
	// (3850 - 3800) * 3 * 300 = 45000 realized on the closed leg.
	assert.True(t, e.RealizedPnL.Equal(d("45000")), "pnl %s", e.RealizedPnL)
}

func TestMarkToMarketAndEquity(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "100000", equitySpecs())
	require.NoError(t, l.ApplyFill(fill("600000", market.Buy, 1000, "10.00", "5", "0")))

	closes := map[string]decimal.Decimal{"600000": d("10.80")}
	assert.True(t, l.MarkToMarket(closes).Equal(d("10800")))
	// 89995 cash + 10800 position.
	assert.True(t, l.Equity(closes).Equal(d("100795")))

	// Missing price contributes nothing.
	assert.True(t, l.MarkToMarket(map[string]decimal.Decimal{}).IsZero())
}

func TestMarginCalls(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "100000", futuresSpecs())
	require.NoError(t, l.ApplyFill(fill("IF2401", market.Sell, 2, "3800", "46", "0")))

	// At 3800 the required margin is 2*3800*300*0.15 = 342000; equity is
	// cash 2379954 + mtm -2280000 = 99954 < 342000: breached.
	calls := l.MarginCalls(map[string]decimal.Decimal{"IF2401": d("3800")})
	assert.Equal(t, []string{"IF2401"}, calls)

	// A collapse in price restores coverage: at 3000 equity is
	// 2379954 - 1800000 = 579954 >= 270000.
	calls = l.MarginCalls(map[string]decimal.Decimal{"IF2401": d("3000")})
	assert.Nil(t, calls)

	// No price, no call.
	calls = l.MarginCalls(map[string]decimal.Decimal{})
	assert.Nil(t, calls)
}

func TestApplyFillErrors(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, "100000", equitySpecs())

	bad := fill("UNKNOWN", market.Buy, 100, "10", "5", "0")
	assert.Error(t, l.ApplyFill(bad))

	zero := fill("600000", market.Buy, 0, "10", "5", "0")
	assert.Error(t, l.ApplyFill(zero))
}

func TestSymbolsSorted(t *testing.T) {
	t.Parallel()

	specs := equitySpecs()
	specs["000001"] = &market.InstrumentSpec{
		Symbol: "000001", Class: market.Equity, Currency: "CNY",
		Multiplier: d("1"), TickSize: d("0.01"),
		CommissionRate: dp("0.0003"), MinCommission: d("5"),
		StampDutyRate: d("0.001"), SettlementDelay: 1,
	}
	l := newTestLedger(t, "1000000", specs)
	require.NoError(t, l.ApplyFill(fill("600000", market.Buy, 100, "10", "5", "0")))
	require.NoError(t, l.ApplyFill(fill("000001", market.Buy, 100, "12", "5", "0")))

	assert.Equal(t, []string{"000001", "600000"}, l.Symbols())
}
