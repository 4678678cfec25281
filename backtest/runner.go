// Package backtest drives the deterministic simulation loop: bars in,
// strategy intents through the execution simulator, fills into the ledger,
// one equity point out per session.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mytrader/engine/internal/id"
	"github.com/mytrader/engine/journal"
	"github.com/mytrader/engine/ledger"
	"github.com/mytrader/engine/market"
	"github.com/mytrader/engine/sim"
	"github.com/mytrader/engine/strategy"
)

// GapPolicy decides what a missing expected session does to a run.
type GapPolicy string

const (
	// GapSkip records the gap in the result metadata and keeps going. A
	// single bad session never aborts a multi-year backtest.
	GapSkip GapPolicy = "skip"

	// GapAbort fails the run with a DataGapError.
	GapAbort GapPolicy = "abort"
)

// Options are the run policies. Every one of them is echoed in the result
// metadata so stored results are self-describing.
type Options struct {
	Timing    sim.Timing
	GapPolicy GapPolicy

	// CloseEnd force-closes open positions at the final close price to
	// produce a realized-equivalent return. When false the final equity
	// point is mark-to-market only.
	CloseEnd bool

	Slippage decimal.Decimal

	// Calendar is the expected trading-session sequence. When set, a
	// session without bars is a data gap handled per GapPolicy. When nil,
	// the bar sequence itself defines the sessions.
	Calendar []time.Time
}

// RunSpec is everything one run needs. Runs share nothing: each owns its
// ledger and recorder, so independent runs may execute concurrently.
type RunSpec struct {
	Account        string
	InitialCapital decimal.Decimal
	Instruments    []*market.InstrumentSpec
	Bars           []market.Bar
	Strategy       strategy.Strategy
	Options        Options

	// Journal is optional; nil means results live only in the returned
	// Result.
	Journal journal.Journal
}

// session groups the bars that share one trading day, in input order.
type session struct {
	t    time.Time
	bars []market.Bar
}

// pendingIntent is an intent held over to the next session: strategy
// intents under NextOpen timing, and forced liquidations.
type pendingIntent struct {
	intent sim.Intent
	reason sim.FillReason
}

// Run executes a complete backtest synchronously. Cancellation is checked
// once per bar boundary, never mid-fill, so ledger state is consistent at
// every observable checkpoint.
func Run(ctx context.Context, rs RunSpec) (*Result, error) {
	specs, err := validateSpec(&rs)
	if err != nil {
		return nil, err
	}

	sessions, skipped, err := buildSessions(rs.Bars, rs.Options)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrNoData
	}

	r := &runner{
		rs:      rs,
		specs:   specs,
		led:     ledger.New(rs.Account, rs.InitialCapital, specs),
		sim:     sim.NewSimulator(specs, rs.Options.Timing, rs.Options.Slippage),
		windows: make(map[string][]market.Bar),
		closes:  make(map[string]decimal.Decimal),
		lastBar: make(map[string]market.Bar),
		peak:    rs.InitialCapital,
		runID:   id.New(),
	}

	for _, s := range sessions {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := r.step(ctx, s); err != nil {
			return nil, err
		}
	}

	return r.finish(sessions, skipped)
}

func validateSpec(rs *RunSpec) (map[string]*market.InstrumentSpec, error) {
	if rs.Strategy == nil {
		return nil, &ConfigError{Reason: "strategy is required"}
	}
	if !rs.InitialCapital.IsPositive() {
		return nil, &ConfigError{Reason: "initial capital must be > 0"}
	}
	if len(rs.Instruments) == 0 {
		return nil, &ConfigError{Reason: "at least one instrument is required"}
	}
	if rs.Account == "" {
		rs.Account = "SIM-BACKTEST"
	}
	if rs.Options.Timing == "" {
		rs.Options.Timing = sim.CloseOfBar
	}
	if rs.Options.GapPolicy == "" {
		rs.Options.GapPolicy = GapSkip
	}
	if rs.Options.Slippage.IsNegative() {
		return nil, &ConfigError{Reason: "slippage must not be negative"}
	}

	specs := make(map[string]*market.InstrumentSpec, len(rs.Instruments))
	for _, s := range rs.Instruments {
		if err := s.Validate(); err != nil {
			return nil, &ConfigError{Reason: "invalid instrument", Err: err}
		}
		if _, dup := specs[s.Symbol]; dup {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate instrument %s", s.Symbol)}
		}
		specs[s.Symbol] = s
	}
	return specs, nil
}

// buildSessions groups the time-ordered bar sequence by trading day and
// applies the gap policy. The engine does not re-sort: regressions and
// per-symbol duplicates are corrupt input and fail regardless of policy.
func buildSessions(bars []market.Bar, opts Options) ([]session, []time.Time, error) {
	if len(bars) == 0 {
		return nil, nil, ErrNoData
	}

	var (
		sessions []session
		skipped  []time.Time
		lastSeen = make(map[string]time.Time)
	)
	for i := range bars {
		b := bars[i]
		if err := b.Validate(); err != nil {
			if opts.GapPolicy == GapAbort {
				return nil, nil, &DataGapError{Session: b.Session, Reason: err.Error()}
			}
			skipped = append(skipped, b.Session)
			continue
		}
		if prev, ok := lastSeen[b.Symbol]; ok && !b.Session.After(prev) {
			return nil, nil, &DataGapError{Session: b.Session, Reason: fmt.Sprintf("%s bars out of order", b.Symbol)}
		}
		lastSeen[b.Symbol] = b.Session

		if n := len(sessions); n > 0 && sessions[n-1].t.Equal(b.Session) {
			sessions[n-1].bars = append(sessions[n-1].bars, b)
			continue
		}
		if n := len(sessions); n > 0 && b.Session.Before(sessions[n-1].t) {
			return nil, nil, &DataGapError{Session: b.Session, Reason: "sessions out of order"}
		}
		sessions = append(sessions, session{t: b.Session, bars: []market.Bar{b}})
	}

	// With an expected calendar, sessions that never produced a bar are
	// gaps in their own right.
	if len(opts.Calendar) > 0 {
		have := make(map[time.Time]bool, len(sessions))
		for _, s := range sessions {
			have[s.t] = true
		}
		for _, want := range opts.Calendar {
			if have[want] {
				continue
			}
			if opts.GapPolicy == GapAbort {
				return nil, nil, &DataGapError{Session: want, Reason: "no bars for expected session"}
			}
			skipped = append(skipped, want)
		}
	}

	return sessions, skipped, nil
}

type runner struct {
	rs    RunSpec
	specs map[string]*market.InstrumentSpec
	led   *ledger.Ledger
	sim   *sim.Simulator

	windows map[string][]market.Bar
	closes  map[string]decimal.Decimal
	lastBar map[string]market.Bar

	pending      []pendingIntent
	fills        []sim.Fill
	rejections   []sim.Rejection
	equity       []EquityPoint
	peak         decimal.Decimal
	liquidations int
	forceClosed  bool

	// trade accounting
	wins, losses, trades  int
	grossWins, grossLoses decimal.Decimal

	runID string
}

// step runs the full per-bar sequence for one session: held-over orders,
// mark-to-market, strategy, routing, margin checks, settlement maturation,
// equity snapshot.
func (r *runner) step(ctx context.Context, s session) error {
	barBySym := make(map[string]market.Bar, len(s.bars))
	for _, b := range s.bars {
		barBySym[b.Symbol] = b
		r.windows[b.Symbol] = append(r.windows[b.Symbol], b)
		r.closes[b.Symbol] = b.Close
		r.lastBar[b.Symbol] = b
	}

	// Orders held over from the previous session execute first, in their
	// original submission order: forced liquidations and, under NextOpen
	// timing, the strategy's intents.
	carried := r.pending
	r.pending = nil
	for _, p := range carried {
		bar, ok := barBySym[p.intent.Symbol]
		if !ok {
			if p.reason == sim.ReasonLiquidation {
				// A liquidation must eventually close; carry it until the
				// instrument trades again.
				r.pending = append(r.pending, p)
			} else {
				r.rejections = append(r.rejections, sim.Rejection{
					Intent: p.intent, Session: s.t, Reason: sim.RejectNoBar,
				})
			}
			continue
		}
		if p.reason == sim.ReasonLiquidation {
			// Forced closes bypass band and cash checks: the position must
			// go, whatever the microstructure says.
			if err := r.applyForced(p.intent, bar, sim.ReasonLiquidation); err != nil {
				return err
			}
			continue
		}
		if err := r.route(p.intent, bar); err != nil {
			return err
		}
	}

	// Strategy sees the ledger after settlements and held-over executions,
	// marked at this session's closes.
	for _, b := range s.bars {
		intents, err := r.rs.Strategy.OnBar(ctx, r.led, strategy.Window{Bars: r.windows[b.Symbol]})
		if err != nil {
			return fmt.Errorf("strategy %s: %w", r.rs.Strategy.Name(), err)
		}
		for _, intent := range intents {
			if r.rs.Options.Timing == sim.NextOpen {
				r.pending = append(r.pending, pendingIntent{intent: intent, reason: sim.ReasonStrategy})
				continue
			}
			bar, ok := barBySym[intent.Symbol]
			if !ok {
				r.rejections = append(r.rejections, sim.Rejection{
					Intent: intent, Session: s.t, Reason: sim.RejectNoBar,
				})
				continue
			}
			if err := r.route(intent, bar); err != nil {
				return err
			}
		}
	}

	// Margin coverage is checked at the close; broken shorts are closed at
	// the next session's execution price.
	for _, sym := range r.led.MarginCalls(r.closes) {
		if r.liquidationPending(sym) {
			continue
		}
		qty := r.led.PositionQty(sym)
		if qty >= 0 {
			continue
		}
		r.pending = append(r.pending, pendingIntent{
			intent: sim.Intent{Symbol: sym, Side: market.Buy, Qty: -qty, Type: sim.MarketOrder},
			reason: sim.ReasonLiquidation,
		})
		r.liquidations++
	}

	// Mature settlement cohorts, then snapshot equity.
	r.led.AdvanceSession()
	return r.snapshot(s.t)
}

func (r *runner) liquidationPending(symbol string) bool {
	for _, p := range r.pending {
		if p.reason == sim.ReasonLiquidation && p.intent.Symbol == symbol {
			return true
		}
	}
	return false
}

// route sends one intent through the simulator and applies the outcome.
func (r *runner) route(intent sim.Intent, bar market.Bar) error {
	fill, rej := r.sim.Execute(intent, bar, r.led, sim.ReasonStrategy)
	if rej != nil {
		r.rejections = append(r.rejections, *rej)
		return nil
	}
	return r.apply(fill)
}

// applyForced closes a position outside the simulator's band and cash
// checks, at the session's execution reference price.
func (r *runner) applyForced(intent sim.Intent, bar market.Bar, reason sim.FillReason) error {
	spec := r.specs[intent.Symbol]
	ref := bar.Close
	if r.rs.Options.Timing == sim.NextOpen && reason == sim.ReasonLiquidation {
		ref = bar.Open
	}
	price := spec.RoundPrice(ref)

	return r.apply(&sim.Fill{
		Symbol:     intent.Symbol,
		Side:       intent.Side,
		Qty:        intent.Qty,
		Price:      price,
		Session:    bar.Session,
		Commission: spec.Commission(intent.Qty, price),
		StampDuty:  spec.StampDuty(intent.Side, intent.Qty, price),
		Reason:     reason,
	})
}

// apply books a fill into the ledger, updates trade statistics and journals
// it.
func (r *runner) apply(f *sim.Fill) error {
	// Sequential fill IDs: identical inputs reproduce identical fill
	// sequences byte for byte. Only the run ID is unique per run.
	f.ID = fmt.Sprintf("F-%06d", len(r.fills)+1)

	before := r.led.RealizedPnL()
	posBefore := r.led.PositionQty(f.Symbol)
	if err := r.led.ApplyFill(f); err != nil {
		// Only reachable with a fill for an unknown spec, which validation
		// has already excluded.
		panic(err)
	}
	delta := r.led.RealizedPnL().Sub(before)

	// A fill that reduced the position closed (part of) a trade.
	if abs64(r.led.PositionQty(f.Symbol)) < abs64(posBefore) {
		r.trades++
		net := delta.Sub(f.Fees())
		switch {
		case net.IsPositive():
			r.wins++
			r.grossWins = r.grossWins.Add(net)
		case net.IsNegative():
			r.losses++
			r.grossLoses = r.grossLoses.Add(net.Neg())
		}
	}

	r.fills = append(r.fills, *f)

	if r.rs.Journal != nil {
		if err := r.rs.Journal.RecordFill(journal.FillRecord{
			RunID:      r.runID,
			FillID:     f.ID,
			Symbol:     f.Symbol,
			Side:       string(f.Side),
			Qty:        f.Qty,
			Price:      f.Price,
			Session:    f.Session,
			Commission: f.Commission,
			StampDuty:  f.StampDuty,
			Reason:     string(f.Reason),
		}); err != nil {
			return fmt.Errorf("journal fill: %w", err)
		}
	}
	return nil
}

// snapshot appends the session's equity point and journals it.
func (r *runner) snapshot(t time.Time) error {
	mtm := r.led.MarkToMarket(r.closes)
	eq := r.led.Cash().Add(mtm)

	if eq.GreaterThan(r.peak) {
		r.peak = eq
	}
	dd := decimal.Zero
	if r.peak.IsPositive() && eq.LessThan(r.peak) {
		dd = r.peak.Sub(eq).Div(r.peak).Mul(decimal.NewFromInt(100))
	}

	pt := EquityPoint{
		Session:       t,
		Cash:          r.led.Cash(),
		PositionValue: mtm,
		Equity:        eq,
		DrawdownPct:   dd,
	}
	r.equity = append(r.equity, pt)

	if r.rs.Journal != nil {
		if err := r.rs.Journal.RecordEquity(journal.EquityRecord{
			RunID:         r.runID,
			Session:       pt.Session,
			Cash:          pt.Cash,
			PositionValue: pt.PositionValue,
			Equity:        pt.Equity,
			DrawdownPct:   pt.DrawdownPct,
		}); err != nil {
			return fmt.Errorf("journal equity: %w", err)
		}
	}
	return nil
}

// finish optionally force-closes open positions at the final close, then
// assembles the immutable result.
func (r *runner) finish(sessions []session, skipped []time.Time) (*Result, error) {
	// Intents still waiting for a session when the data runs out never
	// execute; record them so every intent is accounted for.
	last := sessions[len(sessions)-1].t
	for _, p := range r.pending {
		r.rejections = append(r.rejections, sim.Rejection{
			Intent: p.intent, Session: last, Reason: sim.RejectNoBar,
		})
	}
	r.pending = nil

	if r.rs.Options.CloseEnd {
		for _, sym := range r.led.Symbols() {
			qty := r.led.PositionQty(sym)
			if qty == 0 {
				continue
			}
			bar, ok := r.lastBar[sym]
			if !ok {
				continue
			}
			side := market.Sell
			if qty < 0 {
				side = market.Buy
			}
			// Final close at the last close price, outside band/settlement
			// checks: this is a realized-equivalent valuation, not a
			// tradable order.
			if err := r.applyForced(sim.Intent{Symbol: sym, Side: side, Qty: abs64(qty), Type: sim.MarketOrder}, bar, sim.ReasonEndOfRun); err != nil {
				return nil, err
			}
			r.forceClosed = true
		}
	}

	finalEq := r.led.Equity(r.closes)

	meta := Metadata{
		RunID:            r.runID,
		Account:          r.rs.Account,
		Strategy:         r.rs.Strategy.Name(),
		Symbols:          r.led.Symbols(),
		Start:            sessions[0].t,
		End:              sessions[len(sessions)-1].t,
		InitialCapital:   r.rs.InitialCapital,
		FinalEquity:      finalEq,
		Timing:           r.rs.Options.Timing,
		GapPolicy:        r.rs.Options.GapPolicy,
		CloseEnd:         r.rs.Options.CloseEnd,
		ForceClosedAtEnd: r.forceClosed,
		SkippedSessions:  skipped,
		Liquidations:     r.liquidations,
		Sessions:         len(sessions),
	}
	if len(meta.Symbols) == 0 {
		meta.Symbols = sortedSymbols(r.specs)
	}

	res := &Result{
		Fills:      r.fills,
		Rejections: r.rejections,
		Equity:     r.equity,
		Meta:       meta,
	}
	res.Metrics = r.computeMetrics(res)

	if r.rs.Journal != nil {
		if err := r.rs.Journal.RecordRun(summarize(res)); err != nil {
			return nil, fmt.Errorf("journal run: %w", err)
		}
	}
	return res, nil
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
