package backtest

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mytrader/engine/journal"
	"github.com/mytrader/engine/market"
)

// tradingDaysPerYear for annualization of A-share session counts.
const tradingDaysPerYear = 252

func (r *runner) computeMetrics(res *Result) Metrics {
	m := Metrics{
		Trades: r.trades,
		Wins:   r.wins,
		Losses: r.losses,
	}

	hundred := decimal.NewFromInt(100)

	initial := r.rs.InitialCapital
	final := res.Meta.FinalEquity
	if initial.IsPositive() {
		m.TotalReturnPct = final.Sub(initial).Div(initial).Mul(hundred)
	}

	// Annualization needs a fractional exponent; exactness does not matter
	// for a ratio metric, so this one goes through float64.
	if n := len(res.Equity); n > 0 && initial.IsPositive() && final.IsPositive() {
		growth, _ := final.Div(initial).Float64()
		annual := math.Pow(growth, float64(tradingDaysPerYear)/float64(n)) - 1
		if !math.IsNaN(annual) && !math.IsInf(annual, 0) {
			m.AnnualReturnPct = decimal.NewFromFloat(annual * 100).Round(4)
		}
	}

	m.MaxDrawdownPct, m.MaxDrawdownLen = maxDrawdown(res.Equity)

	if m.Trades > 0 {
		m.WinRatePct = decimal.NewFromInt(int64(m.Wins)).
			Div(decimal.NewFromInt(int64(m.Trades))).Mul(hundred)
	}
	if r.grossLoses.IsPositive() {
		m.ProfitFactor = r.grossWins.Div(r.grossLoses)
	}

	for _, f := range res.Fills {
		m.TotalCommission = m.TotalCommission.Add(f.Commission)
		m.TotalStampDuty = m.TotalStampDuty.Add(f.StampDuty)
	}

	return m
}

// maxDrawdown scans the equity curve for the deepest percentage fall from a
// running peak and the longest stretch of sessions spent below one.
func maxDrawdown(curve []EquityPoint) (decimal.Decimal, int) {
	var (
		worst   decimal.Decimal
		longest int
		below   int
	)
	for _, pt := range curve {
		if pt.DrawdownPct.GreaterThan(worst) {
			worst = pt.DrawdownPct
		}
		if pt.DrawdownPct.IsPositive() {
			below++
			if below > longest {
				longest = below
			}
		} else {
			below = 0
		}
	}
	return worst, longest
}

func summarize(res *Result) journal.RunSummary {
	return journal.RunSummary{
		RunID:          res.Meta.RunID,
		Created:        time.Now().UTC(),
		Account:        res.Meta.Account,
		Strategy:       res.Meta.Strategy,
		Symbols:        strings.Join(res.Meta.Symbols, ","),
		Start:          res.Meta.Start,
		End:            res.Meta.End,
		InitialCapital: res.Meta.InitialCapital,
		FinalEquity:    res.Meta.FinalEquity,
		TotalReturnPct: res.Metrics.TotalReturnPct,
		MaxDrawdownPct: res.Metrics.MaxDrawdownPct,
		Trades:         res.Metrics.Trades,
		Wins:           res.Metrics.Wins,
		Losses:         res.Metrics.Losses,
		Timing:         string(res.Meta.Timing),
		GapPolicy:      string(res.Meta.GapPolicy),
		ForceClosed:    res.Meta.ForceClosedAtEnd,
		Liquidations:   res.Meta.Liquidations,
	}
}

func sortedSymbols(specs map[string]*market.InstrumentSpec) []string {
	out := make([]string, 0, len(specs))
	for s := range specs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
