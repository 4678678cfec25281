package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mytrader/engine/backtest"
	"github.com/mytrader/engine/config"
	"github.com/mytrader/engine/journal"
	"github.com/mytrader/engine/sim"
	"github.com/mytrader/engine/strategy"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a backtest against historical daily bars",
	Long: `Backtest replays a daily bar CSV through a strategy under exchange
microstructure rules (T+1 settlement, price-limit bands, commission and
stamp duty taken from the instrument configuration).

Supported strategies:
  - noop: does nothing (baseline test)
  - open-once: opens a single position on the first bar
  - ma-cross: SMA crossover with configurable fast/slow periods

Example:
  trader backtest --config astock.yaml --bars data/600519.csv`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btBarsPath   string
	btFrom       string
	btTo         string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to run configuration (YAML or JSON) (required)")
	backtestCmd.Flags().StringVarP(&btBarsPath, "bars", "b", "", "path to daily bar CSV (date,symbol,open,high,low,close,volume) (required)")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "start date (inclusive, 2006-01-02)")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "end date (exclusive, 2006-01-02)")

	backtestCmd.MarkFlagRequired("config")
	backtestCmd.MarkFlagRequired("bars")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(btConfigPath)
	if err != nil {
		return err
	}

	from, to, err := parseRange(btFrom, btTo)
	if err != nil {
		return err
	}

	bars, err := backtest.LoadCSVBars(btBarsPath, from, to)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	specs, err := cfg.InstrumentSpecs()
	if err != nil {
		return err
	}
	capital, err := cfg.InitialCapital()
	if err != nil {
		return err
	}
	slippage, err := cfg.Slippage()
	if err != nil {
		return err
	}

	strat, err := strategyFromConfig(cfg.Strategy)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	j, err := journalFromConfig(cfg.Journal)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if j != nil {
		defer j.Close()
	}

	fmt.Printf("Running backtest with strategy: %s\n", strat.Name())
	fmt.Printf("  Bars: %s (%d rows)\n\n", btBarsPath, len(bars))

	res, err := backtest.Run(context.Background(), backtest.RunSpec{
		Account:        cfg.Account.ID,
		InitialCapital: capital,
		Instruments:    specs,
		Bars:           bars,
		Strategy:       strat,
		Options: backtest.Options{
			Timing:    sim.Timing(cfg.Simulation.Timing),
			GapPolicy: backtest.GapPolicy(cfg.Simulation.GapPolicy),
			CloseEnd:  cfg.Simulation.CloseEnd,
			Slippage:  slippage,
		},
		Journal: j,
	})
	if err != nil {
		return err
	}

	backtest.PrintResult(os.Stdout, res)
	return nil
}

func parseRange(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			return from, to, fmt.Errorf("bad --from: %w", err)
		}
	}
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return from, to, fmt.Errorf("bad --to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return from, to, fmt.Errorf("--to must be after --from")
	}
	return from, to, nil
}

func strategyFromConfig(sc config.StrategyConfig) (strategy.Strategy, error) {
	switch sc.Name {
	case "noop", "none":
		return strategy.Noop{}, nil

	case "open-once":
		if sc.Qty <= 0 {
			return nil, fmt.Errorf("open-once: qty must be > 0")
		}
		return &strategy.OpenOnce{Symbol: sc.Symbol, Qty: sc.Qty}, nil

	case "ma-cross", "macross":
		return strategy.NewMACross(sc.Symbol, sc.Qty, sc.Fast, sc.Slow)

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, open-once, ma-cross)", sc.Name)
	}
}

func journalFromConfig(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "", "none":
		return nil, nil
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	case "csv":
		return journal.NewCSV(jc.FillsFile, jc.EquityFile, jc.RunsFile)
	default:
		return nil, fmt.Errorf("unknown journal type %q", jc.Type)
	}
}
