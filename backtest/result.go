package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mytrader/engine/sim"
)

// EquityPoint is one net-worth snapshot per simulated session. Append-only;
// the curve has exactly one point per simulated session.
type EquityPoint struct {
	Session time.Time

	Cash          decimal.Decimal
	PositionValue decimal.Decimal
	Equity        decimal.Decimal
	DrawdownPct   decimal.Decimal // percent off the running peak
}

// Metrics are the derived summary numbers of a run. All monetary values are
// exact decimals.
type Metrics struct {
	TotalReturnPct  decimal.Decimal
	AnnualReturnPct decimal.Decimal
	MaxDrawdownPct  decimal.Decimal
	MaxDrawdownLen  int // sessions below the previous peak

	Trades int // closing fills that realized P&L
	Wins   int
	Losses int

	WinRatePct   decimal.Decimal
	ProfitFactor decimal.Decimal // gross wins / gross losses, zero when undefined

	TotalCommission decimal.Decimal
	TotalStampDuty  decimal.Decimal
}

// Metadata records what policies shaped the run, so the result is
// self-describing for the persistence side.
type Metadata struct {
	RunID   string
	Account string

	Strategy string
	Symbols  []string

	Start time.Time
	End   time.Time

	InitialCapital decimal.Decimal
	FinalEquity    decimal.Decimal

	Timing    sim.Timing
	GapPolicy GapPolicy

	// CloseEnd is the configured policy; ForceClosedAtEnd reports whether
	// open positions were actually force-closed (versus marked-to-market
	// only).
	CloseEnd         bool
	ForceClosedAtEnd bool

	SkippedSessions []time.Time
	Liquidations    int
	Sessions        int
}

// Result of one completed run. Immutable once returned.
type Result struct {
	Fills      []sim.Fill
	Rejections []sim.Rejection
	Equity     []EquityPoint
	Metrics    Metrics
	Meta       Metadata
}
