// Package strategy defines the collaborator interface the backtest loop
// invokes once per bar, plus a few reference strategies.
package strategy

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mytrader/engine/market"
	"github.com/mytrader/engine/sim"
)

// View is the read-only ledger snapshot a strategy sees. Strategies never
// mutate engine state; they only emit intents.
type View interface {
	Cash() decimal.Decimal
	PositionQty(symbol string) int64
	SettledQty(symbol string) int64
}

// Window is the bar history up to and including the current bar, oldest
// first, for one instrument.
type Window struct {
	Bars []market.Bar
}

// Current is the bar being simulated.
func (w Window) Current() market.Bar {
	return w.Bars[len(w.Bars)-1]
}

func (w Window) Len() int { return len(w.Bars) }

// SMA is the simple moving average of the last n closes ending at offset
// back from the current bar (back=0 means ending now). ok is false when
// the window is too short.
func (w Window) SMA(n, back int) (decimal.Decimal, bool) {
	end := len(w.Bars) - back
	if n <= 0 || end-n < 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, b := range w.Bars[end-n : end] {
		sum = sum.Add(b.Close)
	}
	return sum.Div(decimal.NewFromInt(int64(n))), true
}

// Strategy produces zero or more intents per bar. Implementations must be
// deterministic for reproducible backtests.
type Strategy interface {
	Name() string
	OnBar(ctx context.Context, view View, w Window) ([]sim.Intent, error)
}

// Noop does nothing. Baseline for wiring tests.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) OnBar(ctx context.Context, view View, w Window) ([]sim.Intent, error) {
	return nil, nil
}

// OpenOnce buys a fixed quantity on the first bar it sees and then stays
// put. Useful for settlement and equity-curve tests.
type OpenOnce struct {
	Symbol string
	Qty    int64

	opened bool
}

func (s *OpenOnce) Name() string { return "open-once" }

func (s *OpenOnce) OnBar(ctx context.Context, view View, w Window) ([]sim.Intent, error) {
	if s.opened || w.Current().Symbol != s.Symbol {
		return nil, nil
	}
	s.opened = true
	return []sim.Intent{{
		Symbol: s.Symbol,
		Side:   market.Buy,
		Qty:    s.Qty,
		Type:   sim.MarketOrder,
	}}, nil
}
