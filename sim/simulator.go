package sim

import (
	"github.com/shopspring/decimal"

	"github.com/mytrader/engine/market"
)

// Timing selects the execution reference price for market orders.
type Timing string

const (
	// CloseOfBar fills market orders at the close of the bar the intent
	// was submitted on.
	CloseOfBar Timing = "close"

	// NextOpen fills market orders at the open of the bar after the
	// intent was submitted. The orchestrator routes held-over intents
	// against the following bar; the simulator itself always executes
	// against the bar it is handed.
	NextOpen Timing = "next-open"
)

// AccountView is the read-only ledger state the simulator checks before
// letting an order transact.
type AccountView interface {
	Cash() decimal.Decimal
	PositionQty(symbol string) int64
	// SettledQty is the sellable (non-hold) part of a long position.
	// Quantity bought this session stays out of it until the instrument's
	// settlement delay elapses.
	SettledQty(symbol string) int64
}

// Simulator turns intents into fills against historical bars. It is
// stateless apart from configuration, so a single run reuses one instance
// for every bar.
type Simulator struct {
	specs    map[string]*market.InstrumentSpec
	timing   Timing
	slippage decimal.Decimal // fraction of price, e.g. 0.001
}

func NewSimulator(specs map[string]*market.InstrumentSpec, timing Timing, slippage decimal.Decimal) *Simulator {
	return &Simulator{specs: specs, timing: timing, slippage: slippage}
}

// Execute routes one intent against one bar. Exactly one of fill and rej is
// non-nil. reason tags strategy fills versus forced closes.
func (s *Simulator) Execute(intent Intent, bar market.Bar, view AccountView, reason FillReason) (*Fill, *Rejection) {
	reject := func(r RejectReason) (*Fill, *Rejection) {
		return nil, &Rejection{Intent: intent, Session: bar.Session, Reason: r}
	}

	spec, ok := s.specs[intent.Symbol]
	if !ok {
		return reject(RejectUnknownInstrument)
	}
	if intent.Qty <= 0 {
		return reject(RejectBadIntent)
	}
	if intent.Type == LimitOrder && !intent.LimitPrice.IsPositive() {
		return reject(RejectBadIntent)
	}

	lo, hi, banded := spec.LimitBand(bar.PrevClose)

	var price decimal.Decimal
	switch intent.Type {
	case MarketOrder:
		price = s.marketPrice(spec, intent.Side, bar)
		if banded {
			// A locked limit: the reference price is beyond the band on
			// the aggressive side, so the order cannot transact this bar.
			if intent.Side == market.Buy && price.GreaterThan(hi) {
				return reject(RejectLimitUp)
			}
			if intent.Side == market.Sell && price.LessThan(lo) {
				return reject(RejectLimitDown)
			}
			price = clamp(price, lo, hi)
		}

	case LimitOrder:
		limit := spec.RoundPrice(intent.LimitPrice)
		if banded {
			if intent.Side == market.Buy && limit.GreaterThan(hi) {
				return reject(RejectPriceOutsideBand)
			}
			if intent.Side == market.Sell && limit.LessThan(lo) {
				return reject(RejectPriceOutsideBand)
			}
		}
		// Fills only if the bar's range crossed the price; never better
		// than the limit, no partial fills.
		crossed := false
		if intent.Side == market.Buy {
			crossed = bar.Low.LessThanOrEqual(limit)
		} else {
			crossed = bar.High.GreaterThanOrEqual(limit)
		}
		if !crossed {
			return reject(RejectNotCrossed)
		}
		price = limit

	default:
		return reject(RejectBadIntent)
	}

	// T+1: selling out of a long is capped at the settled quantity. Shorts
	// on margin instruments live outside the settlement-hold model.
	if intent.Side == market.Sell && !spec.ShortEnabled {
		if intent.Qty > view.SettledQty(intent.Symbol) {
			return reject(RejectUnsettled)
		}
	}

	commission := spec.Commission(intent.Qty, price)
	duty := spec.StampDuty(intent.Side, intent.Qty, price)

	if intent.Side == market.Buy {
		notional := price.Mul(decimal.NewFromInt(intent.Qty)).Mul(spec.Multiplier)
		if notional.Add(commission).GreaterThan(view.Cash()) {
			return reject(RejectInsufficientCash)
		}
	}

	// ID assignment is the caller's: sequential IDs keep rerun output
	// byte-identical, which random ULIDs would break.
	return &Fill{
		Symbol:     intent.Symbol,
		Side:       intent.Side,
		Qty:        intent.Qty,
		Price:      price,
		Session:    bar.Session,
		Commission: commission,
		StampDuty:  duty,
		Reason:     reason,
	}, nil
}

// marketPrice is the reference price for a market order plus slippage:
// buys execute worse upward, sells worse downward.
func (s *Simulator) marketPrice(spec *market.InstrumentSpec, side market.Side, bar market.Bar) decimal.Decimal {
	ref := bar.Close
	if s.timing == NextOpen {
		ref = bar.Open
	}
	if s.slippage.IsPositive() {
		slip := ref.Mul(s.slippage)
		if side == market.Buy {
			ref = ref.Add(slip)
		} else {
			ref = ref.Sub(slip)
		}
	}
	return spec.RoundPrice(ref)
}

func clamp(p, lo, hi decimal.Decimal) decimal.Decimal {
	if p.LessThan(lo) {
		return lo
	}
	if p.GreaterThan(hi) {
		return hi
	}
	return p
}
