package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mytrader/engine/market/data"
)

var importOut string

var importCmd = &cobra.Command{
	Use:   "import [sources...]",
	Short: "Import EOD bar archives into canonical bar CSV",
	Long: `Import reads end-of-day bar dumps (.csv, .csv.xz, .zip bundles of
CSV files) and writes one normalized bar CSV the backtest command reads.

Example:
  trader import --out bars.csv eod/2023.zip eod/2024.csv.xz`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importOut, "out", "o", "./bars.csv", "output bar CSV path")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	out, err := os.Create(importOut)
	if err != nil {
		return err
	}
	defer out.Close()

	im, err := data.NewImporter(out)
	if err != nil {
		return err
	}

	for _, src := range args {
		if err := im.ImportFile(src); err != nil {
			return err
		}
	}
	if err := im.Flush(); err != nil {
		return err
	}

	fmt.Printf("Imported %d rows into %s\n", im.Rows(), importOut)
	return nil
}
