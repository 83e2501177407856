package cmd

import (
	"github.com/brk3/habitd/internal/apiclient"
	"github.com/brk3/habitd/internal/config"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active habits with their streaks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return list(cmd)
	},
}

func list(cmd *cobra.Command) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	client := apiclient.New(cfg.APIBaseURL, cfg.AuthToken)
	habits, err := client.ListHabits(cmd.Context())
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		cmd.Println("No habits yet.")
		return nil
	}

	for _, h := range habits {
		summary, err := client.GetHabitSummary(cmd.Context(), h.ID)
		if err != nil {
			return err
		}
		done := " "
		if summary.CompletedToday {
			done = "x"
		}
		cmd.Printf("[%s] %s %s (%s, target %d) streak %d, best %d, %.2f%% last %d days\n",
			done, h.Emoji, h.Name, h.Cadence.Kind, h.TargetValue,
			summary.CurrentStreak, summary.BestStreak, summary.CompletionRate, summary.WindowDays)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
}
