package cmd

import (
	"github.com/brk3/habitd/internal/apiclient"
	"github.com/brk3/habitd/internal/config"
	"github.com/spf13/cobra"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the daily statistics summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStats(cmd)
	},
}

func showStats(cmd *cobra.Command) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	client := apiclient.New(cfg.APIBaseURL, cfg.AuthToken)
	summary, err := client.GetStats(cmd.Context(), statsDays)
	if err != nil {
		return err
	}

	cmd.Printf("Date:            %s\n", summary.Date)
	cmd.Printf("Habits:          %d\n", summary.TotalHabits)
	cmd.Printf("%d-day rate:      %.2f%%\n", statsDays, summary.SevenDayCompletionRate)
	cmd.Printf("Best streak:     %d\n", summary.BestStreak)
	if summary.BestDay != nil {
		cmd.Printf("Best day:        %s (%.2f%%, %d/%d)\n", summary.BestDay.Date,
			summary.BestDay.CompletionRate, summary.BestDay.CompletedCount, summary.BestDay.TotalCount)
	}
	if summary.WorstDay != nil {
		cmd.Printf("Worst day:       %s (%.2f%%, %d/%d)\n", summary.WorstDay.Date,
			summary.WorstDay.CompletionRate, summary.WorstDay.CompletedCount, summary.WorstDay.TotalCount)
	}
	return nil
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "completion rate window in days")
	rootCmd.AddCommand(statsCmd)
}
