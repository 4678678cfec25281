package backtest

import (
	"fmt"
	"io"
)

// PrintResult renders a result summary for the CLI.
func PrintResult(w io.Writer, res *Result) {
	m := res.Meta

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", m.RunID)
	fmt.Fprintf(w, "Account:       %s\n", m.Account)
	fmt.Fprintf(w, "Strategy:      %s\n", m.Strategy)
	fmt.Fprintf(w, "Symbols:       %v\n", m.Symbols)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", m.Start.Format("2006-01-02"))
	fmt.Fprintf(w, "End:           %s\n", m.End.Format("2006-01-02"))
	fmt.Fprintf(w, "Sessions:      %d\n", m.Sessions)
	if len(m.SkippedSessions) > 0 {
		fmt.Fprintf(w, "Skipped:       %d (gap policy %q)\n", len(m.SkippedSessions), m.GapPolicy)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Execution Policy")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Timing:        %s\n", m.Timing)
	fmt.Fprintf(w, "Close at End:  %v (force-closed: %v)\n", m.CloseEnd, m.ForceClosedAtEnd)
	if m.Liquidations > 0 {
		fmt.Fprintf(w, "LIQUIDATIONS:  %d\n", m.Liquidations)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Fills:         %d\n", len(res.Fills))
	fmt.Fprintf(w, "Rejections:    %d\n", len(res.Rejections))
	fmt.Fprintf(w, "Trades:        %d\n", res.Metrics.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", res.Metrics.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", res.Metrics.Losses)
	if res.Metrics.Trades > 0 {
		fmt.Fprintf(w, "Win Rate:      %s%%\n", res.Metrics.WinRatePct.StringFixed(2))
	}
	if res.Metrics.ProfitFactor.IsPositive() {
		fmt.Fprintf(w, "Profit Factor: %s\n", res.Metrics.ProfitFactor.StringFixed(2))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Initial:       %s\n", m.InitialCapital.StringFixed(2))
	fmt.Fprintf(w, "Final Equity:  %s\n", m.FinalEquity.StringFixed(2))
	fmt.Fprintf(w, "Total Return:  %s%%\n", res.Metrics.TotalReturnPct.StringFixed(2))
	if !res.Metrics.AnnualReturnPct.IsZero() {
		fmt.Fprintf(w, "Annualized:    %s%%\n", res.Metrics.AnnualReturnPct.StringFixed(2))
	}
	fmt.Fprintf(w, "Max Drawdown:  %s%% (%d sessions)\n", res.Metrics.MaxDrawdownPct.StringFixed(2), res.Metrics.MaxDrawdownLen)
	fmt.Fprintf(w, "Commission:    %s\n", res.Metrics.TotalCommission.StringFixed(2))
	fmt.Fprintf(w, "Stamp Duty:    %s\n", res.Metrics.TotalStampDuty.StringFixed(2))

	fmt.Fprintln(w)
}
