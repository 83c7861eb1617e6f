package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gamezone/m/internal/identity"
	"gamezone/m/internal/ledger"
	"gamezone/m/internal/storage"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the full sales report to a date-stamped text file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		kv, err := storage.OpenSQLite(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("unable to open storage: %v", err)
		}
		defer kv.Close()

		device := identity.NewStored(kv)
		led := ledger.New(kv, device.DeviceID(), ledger.Options{
			MaxSales:      cfg.MaxSales,
			MaxEvents:     cfg.MaxEvents,
			RetentionDays: cfg.RetentionDays,
		})

		// Pick up the other devices' bundles before rendering.
		led.Sync()

		path := filepath.Join(exportDir, led.ReportFilename())
		if err := os.WriteFile(path, []byte(led.Report()), 0o644); err != nil {
			log.Fatalf("unable to write report: %v", err)
		}
		led.LogAction("LOGS_DOWNLOADED", map[string]string{"file": path})
		fmt.Println(path)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", ".", "directory to write the report into")
	rootCmd.AddCommand(exportCmd)
}
