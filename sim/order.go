// Package sim decides whether and at what price an order intent fills
// against a historical bar, under exchange microstructure rules: daily
// price-limit bands, T+1 settled-quantity checks, slippage.
//
// The simulator never mutates the ledger; it only produces Fills and
// Rejections. Applying them is the ledger's job, which lets the same
// simulator serve dry-run validation.
package sim

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mytrader/engine/market"
)

// OrderType of an intent.
type OrderType string

const (
	MarketOrder OrderType = "MARKET"
	LimitOrder  OrderType = "LIMIT"
)

// Intent is a strategy-generated order for one bar. Intents are transient:
// an unfilled intent is dropped, and the strategy may resubmit on a later
// bar.
type Intent struct {
	Symbol     string
	Side       market.Side
	Qty        int64 // lots, > 0
	Type       OrderType
	LimitPrice decimal.Decimal // required for LimitOrder
}

// FillReason distinguishes why a fill happened. Liquidation fills are not
// errors, but they are surfaced prominently in the result.
type FillReason string

const (
	ReasonStrategy    FillReason = "Strategy"
	ReasonEndOfRun    FillReason = "EndOfRun"
	ReasonLiquidation FillReason = "Liquidation"
)

// Fill is a realized execution. Immutable once created.
type Fill struct {
	ID      string
	Symbol  string
	Side    market.Side
	Qty     int64
	Price   decimal.Decimal // tick-rounded execution price
	Session time.Time

	Commission decimal.Decimal
	StampDuty  decimal.Decimal

	Reason FillReason
}

// Fees is the total charge attached to the fill.
func (f *Fill) Fees() decimal.Decimal {
	return f.Commission.Add(f.StampDuty)
}

// RejectReason explains why an intent did not transact this bar.
type RejectReason string

const (
	// RejectLimitUp / RejectLimitDown model a locked limit: the execution
	// price sits beyond the daily band, so the order cannot transact.
	RejectLimitUp   RejectReason = "LimitUp"
	RejectLimitDown RejectReason = "LimitDown"

	// RejectPriceOutsideBand is a limit order priced beyond the band.
	RejectPriceOutsideBand RejectReason = "PriceOutsideBand"

	// RejectNotCrossed is a limit order whose price the bar never touched.
	RejectNotCrossed RejectReason = "NotCrossed"

	// RejectNoBar is an intent due to execute in a session where its
	// instrument has no bar, including intents still held when the data
	// runs out.
	RejectNoBar RejectReason = "NoBar"

	// RejectUnsettled is a T+1 settlement violation: the sell asked for
	// more than the settled quantity.
	RejectUnsettled RejectReason = "Unsettled"

	RejectInsufficientCash  RejectReason = "InsufficientCash"
	RejectUnknownInstrument RejectReason = "UnknownInstrument"
	RejectBadIntent         RejectReason = "BadIntent"
)

// Rejection records an intent that could not transact. Rejections are
// structured outcomes in the backtest result, never fatal errors.
type Rejection struct {
	Intent  Intent
	Session time.Time
	Reason  RejectReason
}
