package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mytrader/engine/market"
)

// LoadCSVBars reads canonical daily bar CSV rows:
//
//	date,symbol,open,high,low,close,volume
//
// where date is 2006-01-02 or RFC3339. A header row ("date,...") is
// allowed; empty/short rows are skipped. Rows are optionally filtered to
// [from, to). PrevClose is chained per symbol while loading; a symbol's
// first bar anchors its band to its own close, matching how the upstream
// data source seeds the series.
func LoadCSVBars(path string, from, to time.Time) ([]market.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var (
		bars      []market.Bar
		prevClose = make(map[string]decimal.Decimal)
		sawFirst  bool
	)
	for {
		row, err := r.Read()
		if err == io.EOF {
			return bars, nil
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row.
		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "date") {
				continue
			}
		}

		b, ok, err := parseBarRow(row)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		if pc, seen := prevClose[b.Symbol]; seen {
			b.PrevClose = pc
		} else {
			b.PrevClose = b.Close
		}
		prevClose[b.Symbol] = b.Close

		if !inRange(b.Session, from, to) {
			continue
		}
		bars = append(bars, b)
	}
}

func parseBarRow(row []string) (market.Bar, bool, error) {
	// Need at least: date,symbol,open,high,low,close
	if len(row) < 6 {
		return market.Bar{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Bar{}, false, nil
	}
	t, err := time.Parse("2006-01-02", ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339, ts)
		if err2 != nil {
			return market.Bar{}, false, fmt.Errorf("bad date %q: %w", ts, err)
		}
		t = t2
	}

	sym := strings.TrimSpace(row[1])
	if sym == "" {
		return market.Bar{}, false, nil
	}

	b := market.Bar{Symbol: sym, Session: t}
	for _, fld := range []struct {
		name string
		dst  *decimal.Decimal
		col  int
	}{
		{"open", &b.Open, 2},
		{"high", &b.High, 3},
		{"low", &b.Low, 4},
		{"close", &b.Close, 5},
	} {
		v, err := decimal.NewFromString(strings.TrimSpace(row[fld.col]))
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("bad %s %q: %w", fld.name, row[fld.col], err)
		}
		*fld.dst = v
	}
	if len(row) > 6 && strings.TrimSpace(row[6]) != "" {
		v, err := decimal.NewFromString(strings.TrimSpace(row[6]))
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("bad volume %q: %w", row[6], err)
		}
		b.Volume = v
	}

	return b, true, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
