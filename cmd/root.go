package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "habitd",
	Short: "Track habits, daily progress and streaks",
	Long: `
	Habitd is a habit-tracking service and CLI. Define habits with a daily,
	weekly or monthly cadence, log progress against numeric or boolean
	targets, and follow streaks and completion rates over time.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
}
