package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one session of OHLCV data for an instrument. PrevClose is carried
// on the bar because the daily price-limit band is anchored to it.
type Bar struct {
	Symbol  string
	Session time.Time // trading day, midnight UTC

	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	PrevClose decimal.Decimal
	Volume    decimal.Decimal
}

// Validate rejects bars the engine must not trade on: non-positive OHLC or
// an inverted range.
func (b *Bar) Validate() error {
	if b.Symbol == "" {
		return fmt.Errorf("bar: symbol is required")
	}
	if b.Session.IsZero() {
		return fmt.Errorf("bar %s: session is required", b.Symbol)
	}
	for _, p := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	} {
		if !p.v.IsPositive() {
			return fmt.Errorf("bar %s %s: %s must be > 0", b.Symbol, b.Session.Format("2006-01-02"), p.name)
		}
	}
	if b.High.LessThan(b.Low) {
		return fmt.Errorf("bar %s %s: high < low", b.Symbol, b.Session.Format("2006-01-02"))
	}
	return nil
}

// Crosses reports whether the bar's traded range touched price.
func (b *Bar) Crosses(price decimal.Decimal) bool {
	return b.Low.LessThanOrEqual(price) && b.High.GreaterThanOrEqual(price)
}
