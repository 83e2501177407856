package cmd

import (
	"fmt"
	"os"

	"github.com/brk3/habitd/internal/apiclient"
	"github.com/brk3/habitd/internal/config"
	"github.com/brk3/habitd/internal/nudge"
	"github.com/brk3/habitd/internal/nudge/resend"
	"github.com/spf13/cobra"
)

var nudgeCmd = &cobra.Command{
	Use:   "nudge",
	Short: "Email a reminder for habit streaks expiring today",
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey := os.Getenv("HABITD_RESEND_API_KEY")
		if apiKey == "" {
			return fmt.Errorf("HABITD_RESEND_API_KEY environment variable is not set")
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Nudge.NotifyEmail == "" {
			return fmt.Errorf("nudge.notify_email is not set in config")
		}
		threshold := cfg.Nudge.ThresholdHours
		if threshold == 0 {
			threshold = 4
		}

		q := apiclient.New(cfg.APIBaseURL, cfg.AuthToken)
		n := &resend.ResendNotifier{
			ApiKey: apiKey,
			Email:  cfg.Nudge.NotifyEmail,
		}
		return nudge.Nudge(cmd.Context(), q, n, threshold, cfg.DefaultTZOffsetMinutes)
	},
}

func init() {
	rootCmd.AddCommand(nudgeCmd)
}
