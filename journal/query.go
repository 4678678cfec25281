package journal

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// GetRun returns a single run summary by ID.
func (j *SQLiteJournal) GetRun(runID string) (RunSummary, error) {
	var (
		r                       RunSummary
		initial, final, ret, dd string
		forceClosed             int
	)

	row := j.db.QueryRow(`
		SELECT run_id, created, account, strategy, symbols, start_date, end_date,
		       initial_capital, final_equity, total_return_pct, max_drawdown_pct,
		       trades, wins, losses, timing, gap_policy, force_closed, liquidations
		FROM backtest_runs
		WHERE run_id = ?`, runID)

	err := row.Scan(
		&r.RunID, &r.Created, &r.Account, &r.Strategy, &r.Symbols,
		&r.Start, &r.End, &initial, &final, &ret, &dd,
		&r.Trades, &r.Wins, &r.Losses, &r.Timing, &r.GapPolicy,
		&forceClosed, &r.Liquidations,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunSummary{}, fmt.Errorf("run %q not found", runID)
		}
		return RunSummary{}, err
	}

	if r.InitialCapital, err = decimal.NewFromString(initial); err != nil {
		return RunSummary{}, fmt.Errorf("run %q: bad initial_capital: %w", runID, err)
	}
	if r.FinalEquity, err = decimal.NewFromString(final); err != nil {
		return RunSummary{}, fmt.Errorf("run %q: bad final_equity: %w", runID, err)
	}
	if r.TotalReturnPct, err = decimal.NewFromString(ret); err != nil {
		return RunSummary{}, fmt.Errorf("run %q: bad total_return_pct: %w", runID, err)
	}
	if r.MaxDrawdownPct, err = decimal.NewFromString(dd); err != nil {
		return RunSummary{}, fmt.Errorf("run %q: bad max_drawdown_pct: %w", runID, err)
	}
	r.ForceClosed = forceClosed != 0

	return r, nil
}

// ListFillsByRun returns a run's fills ordered by session then fill ID
// (fill IDs are zero-padded sequence numbers, so ties keep submission
// order).
func (j *SQLiteJournal) ListFillsByRun(runID string) ([]FillRecord, error) {
	rows, err := j.db.Query(`
		SELECT fill_id, run_id, symbol, side, qty, price, session, commission, stamp_duty, reason
		FROM fills
		WHERE run_id = ?
		ORDER BY session ASC, fill_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var (
			rec                     FillRecord
			price, commission, duty string
		)
		if err := rows.Scan(
			&rec.FillID, &rec.RunID, &rec.Symbol, &rec.Side, &rec.Qty,
			&price, &rec.Session, &commission, &duty, &rec.Reason,
		); err != nil {
			return nil, err
		}
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("fill %s: bad price: %w", rec.FillID, err)
		}
		if rec.Commission, err = decimal.NewFromString(commission); err != nil {
			return nil, fmt.Errorf("fill %s: bad commission: %w", rec.FillID, err)
		}
		if rec.StampDuty, err = decimal.NewFromString(duty); err != nil {
			return nil, fmt.Errorf("fill %s: bad stamp_duty: %w", rec.FillID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListEquityByRun returns a run's equity curve in session order.
func (j *SQLiteJournal) ListEquityByRun(runID string) ([]EquityRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, session, cash, position_value, equity, drawdown_pct
		FROM equity
		WHERE run_id = ?
		ORDER BY session ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRecord
	for rows.Next() {
		var (
			rec                 EquityRecord
			cash, pv, eq, ddStr string
		)
		if err := rows.Scan(&rec.RunID, &rec.Session, &cash, &pv, &eq, &ddStr); err != nil {
			return nil, err
		}
		if rec.Cash, err = decimal.NewFromString(cash); err != nil {
			return nil, fmt.Errorf("equity row: bad cash: %w", err)
		}
		if rec.PositionValue, err = decimal.NewFromString(pv); err != nil {
			return nil, fmt.Errorf("equity row: bad position_value: %w", err)
		}
		if rec.Equity, err = decimal.NewFromString(eq); err != nil {
			return nil, fmt.Errorf("equity row: bad equity: %w", err)
		}
		if rec.DrawdownPct, err = decimal.NewFromString(ddStr); err != nil {
			return nil, fmt.Errorf("equity row: bad drawdown_pct: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
