package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the kiosk release.
const Version = "5.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kiosk version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gamezone " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
