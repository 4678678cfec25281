// Package market defines instrument economics and historical bar data.
//
// All prices and monetary amounts are decimal values; float64 drift across
// thousands of simulated fills is exactly the kind of error a backtest must
// not have.
package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AssetClass determines which fee and P&L rules apply to an instrument.
type AssetClass string

const (
	Equity  AssetClass = "equity"
	ETF     AssetClass = "etf"
	Futures AssetClass = "futures"
	Index   AssetClass = "index"
	Forex   AssetClass = "forex"
	Crypto  AssetClass = "crypto"
	Option  AssetClass = "option"
)

// hasStampDuty reports whether sells in this asset class carry stamp duty.
// Sell-side-only transaction tax exists on equity-like A-share instruments.
func (c AssetClass) hasStampDuty() bool {
	return c == Equity || c == ETF
}

// Side of an order or fill.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// InstrumentSpec is the immutable per-symbol economics: contract multiplier,
// commission model, margin rate, tick size, daily price-limit band and
// settlement delay. Loaded once before a run and shared read-only.
type InstrumentSpec struct {
	Symbol string
	Name   string
	Class  AssetClass

	Currency   string
	Multiplier decimal.Decimal // contract value per price point
	TickSize   decimal.Decimal // minimum price increment

	// Commission model: at least one of Rate and PerContract must be set.
	// PerContract wins when both are configured.
	CommissionRate        *decimal.Decimal // fraction of notional, e.g. 0.0003
	CommissionPerContract *decimal.Decimal // fixed fee per lot
	MinCommission         decimal.Decimal  // floor, e.g. 5 CNY for A-shares

	StampDutyRate decimal.Decimal // sell-side only, e.g. 0.001

	// LimitPct is the daily price-limit percentage off the previous close
	// (0.10 for main-board A-shares). Nil means no band.
	LimitPct *decimal.Decimal

	// SettlementDelay in trading sessions before bought quantity becomes
	// sellable. 1 models A-share T+1; 0 for everything else.
	SettlementDelay int

	ShortEnabled bool
	MarginRate   decimal.Decimal // required when ShortEnabled
}

// Validate fails on any incomplete economics before a simulation starts.
// Nothing is silently defaulted.
func (s *InstrumentSpec) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("instrument: symbol is required")
	}
	if !s.Multiplier.IsPositive() {
		return fmt.Errorf("instrument %s: multiplier must be > 0", s.Symbol)
	}
	if !s.TickSize.IsPositive() {
		return fmt.Errorf("instrument %s: tick_size must be > 0", s.Symbol)
	}
	if s.CommissionRate == nil && s.CommissionPerContract == nil {
		return fmt.Errorf("instrument %s: one of commission_rate or commission_per_contract is required", s.Symbol)
	}
	if s.CommissionRate != nil && s.CommissionRate.IsNegative() {
		return fmt.Errorf("instrument %s: commission_rate must not be negative", s.Symbol)
	}
	if s.CommissionPerContract != nil && s.CommissionPerContract.IsNegative() {
		return fmt.Errorf("instrument %s: commission_per_contract must not be negative", s.Symbol)
	}
	if s.MinCommission.IsNegative() {
		return fmt.Errorf("instrument %s: min_commission must not be negative", s.Symbol)
	}
	if s.StampDutyRate.IsNegative() {
		return fmt.Errorf("instrument %s: stamp_duty_rate must not be negative", s.Symbol)
	}
	if s.LimitPct != nil {
		one := decimal.NewFromInt(1)
		if !s.LimitPct.IsPositive() || s.LimitPct.GreaterThanOrEqual(one) {
			return fmt.Errorf("instrument %s: limit_pct must be in (0, 1)", s.Symbol)
		}
	}
	if s.SettlementDelay < 0 {
		return fmt.Errorf("instrument %s: settlement_delay must not be negative", s.Symbol)
	}
	if s.ShortEnabled && !s.MarginRate.IsPositive() {
		return fmt.Errorf("instrument %s: margin_rate is required when shorting is enabled", s.Symbol)
	}
	return nil
}

// Commission returns the fee for a fill of qty lots at price.
//
// Per-contract fee if configured: perContract * qty. Otherwise
// rate * qty * price * multiplier. The result never falls below
// MinCommission and is rounded to the smallest currency unit, half-up.
func (s *InstrumentSpec) Commission(qty int64, price decimal.Decimal) decimal.Decimal {
	q := decimal.NewFromInt(qty)

	var fee decimal.Decimal
	switch {
	case s.CommissionPerContract != nil:
		fee = s.CommissionPerContract.Mul(q)
	case s.CommissionRate != nil:
		fee = s.CommissionRate.Mul(q).Mul(price).Mul(s.Multiplier)
	}

	if fee.LessThan(s.MinCommission) {
		fee = s.MinCommission
	}
	return RoundMoney(fee)
}

// StampDuty returns the sell-side transaction tax for asset classes that
// carry it, zero otherwise.
func (s *InstrumentSpec) StampDuty(side Side, qty int64, price decimal.Decimal) decimal.Decimal {
	if side != Sell || !s.Class.hasStampDuty() || s.StampDutyRate.IsZero() {
		return decimal.Zero
	}
	notional := price.Mul(decimal.NewFromInt(qty)).Mul(s.Multiplier)
	return RoundMoney(notional.Mul(s.StampDutyRate))
}

// ProfitLoss is the signed P&L of a round trip:
// (exit - entry) * qty * multiplier for longs, negated for shorts.
func (s *InstrumentSpec) ProfitLoss(entry, exit decimal.Decimal, qty int64, side Side) decimal.Decimal {
	pl := exit.Sub(entry).Mul(decimal.NewFromInt(qty)).Mul(s.Multiplier)
	if side == Sell {
		pl = pl.Neg()
	}
	return pl
}

// RoundPrice snaps a price to the instrument's minimum increment, half-up.
func (s *InstrumentSpec) RoundPrice(p decimal.Decimal) decimal.Decimal {
	return p.Div(s.TickSize).Round(0).Mul(s.TickSize)
}

// LimitBand returns the allowed [lo, hi] trading range for a session given
// the previous close. ok is false when the instrument carries no daily band
// or the previous close is unusable.
func (s *InstrumentSpec) LimitBand(prevClose decimal.Decimal) (lo, hi decimal.Decimal, ok bool) {
	if s.LimitPct == nil || !prevClose.IsPositive() {
		return decimal.Zero, decimal.Zero, false
	}
	one := decimal.NewFromInt(1)
	lo = s.RoundPrice(prevClose.Mul(one.Sub(*s.LimitPct)))
	hi = s.RoundPrice(prevClose.Mul(one.Add(*s.LimitPct)))
	return lo, hi, true
}

// RoundMoney rounds a fee or cash amount to the smallest settlement
// currency unit (2 decimal places), half-up.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
