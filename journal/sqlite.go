package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordFill(f FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(fill_id, run_id, symbol, side, qty, price, session, commission, stamp_duty, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FillID, f.RunID, f.Symbol, f.Side, f.Qty, f.Price.String(),
		f.Session, f.Commission.String(), f.StampDuty.String(), f.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquityRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, session, cash, position_value, equity, drawdown_pct)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Session, e.Cash.String(), e.PositionValue.String(),
		e.Equity.String(), e.DrawdownPct.String(),
	)
	return err
}

func (j *SQLiteJournal) RecordRun(r RunSummary) error {
	_, err := j.db.Exec(`
		INSERT INTO backtest_runs
		(run_id, created, account, strategy, symbols, start_date, end_date,
		 initial_capital, final_equity, total_return_pct, max_drawdown_pct,
		 trades, wins, losses, timing, gap_policy, force_closed, liquidations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Account, r.Strategy, r.Symbols, r.Start, r.End,
		r.InitialCapital.String(), r.FinalEquity.String(),
		r.TotalReturnPct.String(), r.MaxDrawdownPct.String(),
		r.Trades, r.Wins, r.Losses, r.Timing, r.GapPolicy,
		boolToInt(r.ForceClosed), r.Liquidations,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
