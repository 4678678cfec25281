package backtest

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoData means the bar sequence was empty after filtering.
var ErrNoData = errors.New("backtest: no bar data")

// ConfigError is a fatal pre-run failure: incomplete instrument economics,
// bad capital, missing strategy. It always fires before any ledger state
// exists, so an aborted run leaves nothing half-written.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backtest config: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("backtest config: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DataGapError reports a missing or out-of-order session. Fatal only under
// GapAbort; under GapSkip the session is recorded and skipped.
type DataGapError struct {
	Session time.Time
	Reason  string
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("backtest data gap at %s: %s", e.Session.Format("2006-01-02"), e.Reason)
}
