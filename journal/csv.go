package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	fills  *csv.Writer
	equity *csv.Writer
	runs   *csv.Writer
	files  []*os.File
}

func NewCSV(fillsPath, equityPath, runsPath string) (*CSVJournal, error) {
	ff, err := os.Create(fillsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		ff.Close()
		return nil, err
	}
	rf, err := os.Create(runsPath)
	if err != nil {
		ff.Close()
		ef.Close()
		return nil, err
	}

	fw := csv.NewWriter(ff)
	ew := csv.NewWriter(ef)
	rw := csv.NewWriter(rf)

	if err := fw.Write([]string{"fill_id", "run_id", "symbol", "side", "qty", "price", "session", "commission", "stamp_duty", "reason"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"run_id", "session", "cash", "position_value", "equity", "drawdown_pct"}); err != nil {
		return nil, err
	}
	if err := rw.Write([]string{"run_id", "created", "account", "strategy", "symbols", "start", "end", "initial_capital", "final_equity", "total_return_pct", "max_drawdown_pct", "trades", "wins", "losses", "timing", "gap_policy", "force_closed", "liquidations"}); err != nil {
		return nil, err
	}

	for _, w := range []*csv.Writer{fw, ew, rw} {
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
	}

	return &CSVJournal{fills: fw, equity: ew, runs: rw, files: []*os.File{ff, ef, rf}}, nil
}

func (j *CSVJournal) RecordFill(f FillRecord) error {
	j.fills.Write([]string{
		f.FillID,
		f.RunID,
		f.Symbol,
		f.Side,
		strconv.FormatInt(f.Qty, 10),
		f.Price.String(),
		f.Session.Format(time.RFC3339),
		f.Commission.String(),
		f.StampDuty.String(),
		f.Reason,
	})
	j.fills.Flush()
	return j.fills.Error()
}

func (j *CSVJournal) RecordEquity(e EquityRecord) error {
	j.equity.Write([]string{
		e.RunID,
		e.Session.Format(time.RFC3339),
		e.Cash.String(),
		e.PositionValue.String(),
		e.Equity.String(),
		e.DrawdownPct.String(),
	})
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) RecordRun(r RunSummary) error {
	j.runs.Write([]string{
		r.RunID,
		r.Created.Format(time.RFC3339),
		r.Account,
		r.Strategy,
		r.Symbols,
		r.Start.Format(time.RFC3339),
		r.End.Format(time.RFC3339),
		r.InitialCapital.String(),
		r.FinalEquity.String(),
		r.TotalReturnPct.String(),
		r.MaxDrawdownPct.String(),
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		r.Timing,
		r.GapPolicy,
		strconv.FormatBool(r.ForceClosed),
		strconv.Itoa(r.Liquidations),
	})
	j.runs.Flush()
	return j.runs.Error()
}

func (j *CSVJournal) Close() error {
	var firstErr error
	for _, f := range j.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
