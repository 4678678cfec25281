// Package ledger tracks per (account, instrument) holdings with cost basis
// and settlement holds. Entries mutate only by applying fills; the session
// clock advances once per simulated day.
package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mytrader/engine/market"
	"github.com/mytrader/engine/sim"
)

// cohort is a batch of bought-but-unsettled quantity acquired on one
// session. Cohorts mature in acquisition order, never by price.
type cohort struct {
	acquired int // session index
	qty      int64
}

// Entry is the position for one instrument. Qty is signed: positive long,
// negative short. AvgCost is undefined (zero) while Qty is zero.
type Entry struct {
	Account string
	Symbol  string

	Qty     int64
	AvgCost decimal.Decimal

	unsettled []cohort

	RealizedPnL decimal.Decimal // gross of fees
	FeesPaid    decimal.Decimal
}

// UnsettledQty is the bought quantity still under settlement hold.
func (e *Entry) UnsettledQty() int64 {
	var n int64
	for _, c := range e.unsettled {
		n += c.qty
	}
	return n
}

// SettledQty is the sellable part of a long position.
func (e *Entry) SettledQty() int64 {
	if e.Qty <= 0 {
		return 0
	}
	return e.Qty - e.UnsettledQty()
}

// Ledger owns all entries for one account plus its cash balance. One
// backtest run owns one ledger; there is no cross-run sharing.
type Ledger struct {
	account string
	cash    decimal.Decimal
	specs   map[string]*market.InstrumentSpec

	entries map[string]*Entry
	session int // current session index, advanced once per day
}

func New(account string, initialCash decimal.Decimal, specs map[string]*market.InstrumentSpec) *Ledger {
	return &Ledger{
		account: account,
		cash:    initialCash,
		specs:   specs,
		entries: make(map[string]*Entry),
	}
}

func (l *Ledger) Account() string       { return l.account }
func (l *Ledger) Cash() decimal.Decimal { return l.cash }

// Entry returns the position entry for symbol, or nil if flat and never
// traded.
func (l *Ledger) Entry(symbol string) *Entry { return l.entries[symbol] }

// PositionQty implements sim.AccountView.
func (l *Ledger) PositionQty(symbol string) int64 {
	if e, ok := l.entries[symbol]; ok {
		return e.Qty
	}
	return 0
}

// SettledQty implements sim.AccountView.
func (l *Ledger) SettledQty(symbol string) int64 {
	if e, ok := l.entries[symbol]; ok {
		return e.SettledQty()
	}
	return 0
}

// Symbols returns traded symbols in deterministic order.
func (l *Ledger) Symbols() []string {
	out := make([]string, 0, len(l.entries))
	for s := range l.entries {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) entry(symbol string) *Entry {
	e, ok := l.entries[symbol]
	if !ok {
		e = &Entry{Account: l.account, Symbol: symbol}
		l.entries[symbol] = e
	}
	return e
}

// ApplyFill mutates the ledger with one fill: cash, cost basis, settlement
// cohorts and realized P&L. The simulator has already enforced the settled
// and cash constraints.
func (l *Ledger) ApplyFill(f *sim.Fill) error {
	spec, ok := l.specs[f.Symbol]
	if !ok {
		return fmt.Errorf("ledger: no instrument spec for %s", f.Symbol)
	}
	if f.Qty <= 0 {
		return fmt.Errorf("ledger: fill qty must be > 0, got %d", f.Qty)
	}

	e := l.entry(f.Symbol)
	fees := f.Fees()
	notional := f.Price.Mul(decimal.NewFromInt(f.Qty)).Mul(spec.Multiplier)

	delta := f.Qty
	if f.Side == market.Sell {
		delta = -f.Qty
	}

	// Cash first: buys pay notional plus fees, sells collect notional
	// minus fees. Same flow whether the fill opens or closes.
	if f.Side == market.Buy {
		l.cash = l.cash.Sub(notional).Sub(fees)
	} else {
		l.cash = l.cash.Add(notional).Sub(fees)
	}
	e.FeesPaid = e.FeesPaid.Add(fees)

	remaining := delta
	// Closing portion: fill direction opposes the open position.
	if e.Qty != 0 && (e.Qty > 0) != (delta > 0) {
		closeQty := min64(abs64(remaining), abs64(e.Qty))

		posSide := market.Buy // long
		if e.Qty < 0 {
			posSide = market.Sell
		}
		pl := spec.ProfitLoss(e.AvgCost, f.Price, closeQty, posSide)
		e.RealizedPnL = e.RealizedPnL.Add(pl)

		if e.Qty > 0 {
			e.Qty -= closeQty
		} else {
			e.Qty += closeQty
		}
		if e.Qty == 0 {
			// No position, no cost basis.
			e.AvgCost = decimal.Zero
		}
		if remaining > 0 {
			remaining -= closeQty
		} else {
			remaining += closeQty
		}
	}

	// Opening/extending portion: weighted-average cost basis.
	if remaining != 0 {
		oldQty := abs64(e.Qty)
		addQty := abs64(remaining)
		if oldQty == 0 {
			e.AvgCost = f.Price
		} else {
			oldVal := e.AvgCost.Mul(decimal.NewFromInt(oldQty))
			addVal := f.Price.Mul(decimal.NewFromInt(addQty))
			e.AvgCost = oldVal.Add(addVal).Div(decimal.NewFromInt(oldQty + addQty))
		}
		e.Qty += remaining

		// Bought quantity goes under settlement hold. Shorts and zero-delay
		// instruments settle immediately.
		if remaining > 0 && spec.SettlementDelay > 0 {
			e.unsettled = append(e.unsettled, cohort{acquired: l.session, qty: addQty})
		}
	}

	return nil
}

// AdvanceSession moves the session clock forward one trading day and
// matures settlement cohorts in acquisition order (oldest first).
func (l *Ledger) AdvanceSession() {
	l.session++
	for _, sym := range l.Symbols() {
		e := l.entries[sym]
		spec := l.specs[sym]
		if spec == nil || len(e.unsettled) == 0 {
			continue
		}
		keep := e.unsettled[:0]
		for _, c := range e.unsettled {
			if l.session-c.acquired < spec.SettlementDelay {
				keep = append(keep, c)
			}
		}
		e.unsettled = keep
	}
}

// Session returns the current session index (0-based).
func (l *Ledger) Session() int { return l.session }

// MarkToMarket values all open positions at the given closes. Positions
// without a price keep contributing nothing, which the orchestrator treats
// as a data gap.
func (l *Ledger) MarkToMarket(closes map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, sym := range l.Symbols() {
		e := l.entries[sym]
		if e.Qty == 0 {
			continue
		}
		px, ok := closes[sym]
		if !ok {
			continue
		}
		spec := l.specs[sym]
		total = total.Add(px.Mul(decimal.NewFromInt(e.Qty)).Mul(spec.Multiplier))
	}
	return total
}

// Equity is cash plus mark-to-market position value.
func (l *Ledger) Equity(closes map[string]decimal.Decimal) decimal.Decimal {
	return l.cash.Add(l.MarkToMarket(closes))
}

// RealizedPnL sums realized P&L (gross of fees) across all entries.
func (l *Ledger) RealizedPnL() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l.entries {
		total = total.Add(e.RealizedPnL)
	}
	return total
}

// FeesPaid sums all commission and stamp duty charged so far.
func (l *Ledger) FeesPaid() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l.entries {
		total = total.Add(e.FeesPaid)
	}
	return total
}

// MarginCalls returns the symbols of short positions whose margin coverage
// has broken at the given closes: equity below the maintained margin
// requirement across shorts. The orchestrator force-closes them at the next
// bar's execution price.
func (l *Ledger) MarginCalls(closes map[string]decimal.Decimal) []string {
	required := decimal.Zero
	var shorts []string
	for _, sym := range l.Symbols() {
		e := l.entries[sym]
		if e.Qty >= 0 {
			continue
		}
		px, ok := closes[sym]
		if !ok {
			continue
		}
		spec := l.specs[sym]
		notional := px.Mul(decimal.NewFromInt(-e.Qty)).Mul(spec.Multiplier)
		required = required.Add(notional.Mul(spec.MarginRate))
		shorts = append(shorts, sym)
	}
	if len(shorts) == 0 {
		return nil
	}
	if l.Equity(closes).GreaterThanOrEqual(required) {
		return nil
	}
	return shorts
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
