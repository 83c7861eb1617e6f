// Package cmd defines the kiosk CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gamezone/m/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gamezone",
	Short: "GAME ZONE kiosk - barcode price lookup and sales log",
	Long: `GAME ZONE kiosk looks up scanned barcodes against a locally cached
product catalog, accumulates a cart in operator mode and records completed
sales to an append-only log shared across devices on the same machine.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
}

// loadConfig applies the environment and the optional config file.
func loadConfig() config.Config {
	_ = godotenv.Load()
	if cfgFile != "" {
		os.Setenv("CONFIG_FILE", cfgFile)
	}
	return config.Load()
}
