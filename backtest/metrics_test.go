package backtest

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mytrader/engine/market"
	"github.com/mytrader/engine/strategy"
)

func TestMaxDrawdown(t *testing.T) {
	t.Parallel()

	curve := []EquityPoint{
		{DrawdownPct: d("0")},
		{DrawdownPct: d("1.5")},
		{DrawdownPct: d("4.2")}, // deepest
		{DrawdownPct: d("2")},
		{DrawdownPct: d("0")}, // recovered
		{DrawdownPct: d("3")},
	}

	worst, longest := maxDrawdown(curve)
	assert.True(t, worst.Equal(d("4.2")), "worst %s", worst)
	assert.Equal(t, 3, longest)
}

func TestMaxDrawdownFlatCurve(t *testing.T) {
	t.Parallel()

	worst, longest := maxDrawdown([]EquityPoint{
		{DrawdownPct: d("0")},
		{DrawdownPct: d("0")},
	})
	assert.True(t, worst.IsZero())
	assert.Equal(t, 0, longest)
}

func TestSummarizeMirrorsResult(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), RunSpec{
		Account:        "ACCT-7",
		InitialCapital: d("100000"),
		Instruments:    []*market.InstrumentSpec{aShareSpec()},
		Bars:           risingBars(),
		Strategy:       &strategy.OpenOnce{Symbol: "600000", Qty: 1000},
		Options:        Options{CloseEnd: true},
	})
	require.NoError(t, err)

	sum := summarize(res)
	assert.Equal(t, res.Meta.RunID, sum.RunID)
	assert.Equal(t, "ACCT-7", sum.Account)
	assert.Equal(t, "open-once", sum.Strategy)
	assert.Equal(t, "600000", sum.Symbols)
	assert.True(t, sum.FinalEquity.Equal(res.Meta.FinalEquity))
	assert.Equal(t, "close", sum.Timing)
	assert.Equal(t, "skip", sum.GapPolicy)
	assert.True(t, sum.ForceClosed)
	assert.Equal(t, 1, sum.Trades)
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), RunSpec{
		InitialCapital: d("100000"),
		Instruments:    []*market.InstrumentSpec{aShareSpec()},
		Bars:           risingBars(),
		Strategy:       &strategy.OpenOnce{Symbol: "600000", Qty: 1000},
		Options:        Options{CloseEnd: true},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintResult(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "Backtest Result")
	assert.Contains(t, out, "Strategy:      open-once")
	assert.Contains(t, out, "Final Equity:  100979.00")
	assert.Contains(t, out, "Total Return:  0.98%")
	assert.Contains(t, out, "Win Rate:      100.00%")
	assert.NotContains(t, out, "LIQUIDATIONS")
}
