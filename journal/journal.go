// Package journal persists backtest output: fills, equity points and run
// summaries. It is the seam the reporting/persistence side plugs into; the
// engine only writes through the Journal interface.
//
// Monetary columns are stored as exact decimal strings. REAL columns would
// quietly corrupt stored records.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// FillRecord is one executed (or force-closed/liquidated) order.
type FillRecord struct {
	RunID   string
	FillID  string
	Symbol  string
	Side    string
	Qty     int64
	Price   decimal.Decimal
	Session time.Time

	Commission decimal.Decimal
	StampDuty  decimal.Decimal

	Reason string // Strategy, EndOfRun, Liquidation
}

// EquityRecord is one point of the equity curve.
type EquityRecord struct {
	RunID   string
	Session time.Time

	Cash          decimal.Decimal
	PositionValue decimal.Decimal
	Equity        decimal.Decimal
	DrawdownPct   decimal.Decimal // from running peak
}

// RunSummary mirrors the backtest_runs table.
type RunSummary struct {
	RunID   string
	Created time.Time

	Account  string
	Strategy string
	Symbols  string // comma-separated

	Start time.Time
	End   time.Time

	InitialCapital decimal.Decimal
	FinalEquity    decimal.Decimal

	TotalReturnPct decimal.Decimal
	MaxDrawdownPct decimal.Decimal

	Trades int
	Wins   int
	Losses int

	Timing       string
	GapPolicy    string
	ForceClosed  bool
	Liquidations int
}

type Journal interface {
	RecordFill(FillRecord) error
	RecordEquity(EquityRecord) error
	RecordRun(RunSummary) error
	Close() error
}
