package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mytrader/engine/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage run configuration",
}

var configInitOut string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if err := cfg.SaveToFile(configInitOut); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", configInitOut)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVarP(&configInitOut, "out", "o", "./trader.yaml", "output path")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
