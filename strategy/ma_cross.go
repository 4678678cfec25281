package strategy

import (
	"context"
	"fmt"

	"github.com/mytrader/engine/market"
	"github.com/mytrader/engine/sim"
)

// MACross is a fast/slow moving-average crossover: buy when the fast SMA
// crosses above the slow, sell the settled position when it crosses below.
// T+1 and price-limit constraints are the engine's job; a sell emitted too
// early simply comes back as a rejection the strategy can retry.
type MACross struct {
	Symbol string
	Qty    int64
	Fast   int
	Slow   int
}

func NewMACross(symbol string, qty int64, fast, slow int) (*MACross, error) {
	if fast <= 0 || slow <= 0 || fast >= slow {
		return nil, fmt.Errorf("ma-cross: need 0 < fast < slow, got fast=%d slow=%d", fast, slow)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("ma-cross: qty must be > 0")
	}
	return &MACross{Symbol: symbol, Qty: qty, Fast: fast, Slow: slow}, nil
}

func (s *MACross) Name() string {
	return fmt.Sprintf("ma-cross(%d,%d)", s.Fast, s.Slow)
}

func (s *MACross) OnBar(ctx context.Context, view View, w Window) ([]sim.Intent, error) {
	if w.Current().Symbol != s.Symbol {
		return nil, nil
	}

	// Need one bar beyond the slow period to detect a cross.
	fastNow, ok := w.SMA(s.Fast, 0)
	if !ok {
		return nil, nil
	}
	slowNow, ok := w.SMA(s.Slow, 0)
	if !ok {
		return nil, nil
	}
	fastPrev, ok := w.SMA(s.Fast, 1)
	if !ok {
		return nil, nil
	}
	slowPrev, ok := w.SMA(s.Slow, 1)
	if !ok {
		return nil, nil
	}

	crossedUp := fastPrev.LessThanOrEqual(slowPrev) && fastNow.GreaterThan(slowNow)
	crossedDown := fastPrev.GreaterThanOrEqual(slowPrev) && fastNow.LessThan(slowNow)

	pos := view.PositionQty(s.Symbol)

	switch {
	case crossedUp && pos == 0:
		return []sim.Intent{{
			Symbol: s.Symbol,
			Side:   market.Buy,
			Qty:    s.Qty,
			Type:   sim.MarketOrder,
		}}, nil

	case crossedDown && pos > 0:
		// Sell only what has settled; the rest stays for a later bar.
		sellable := view.SettledQty(s.Symbol)
		if sellable == 0 {
			return nil, nil
		}
		return []sim.Intent{{
			Symbol: s.Symbol,
			Side:   market.Sell,
			Qty:    sellable,
			Type:   sim.MarketOrder,
		}}, nil
	}

	return nil, nil
}
