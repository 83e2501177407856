package cmd

import (
	"strconv"

	"github.com/brk3/habitd/internal/apiclient"
	"github.com/brk3/habitd/internal/config"
	"github.com/spf13/cobra"
)

var trackDate string

var trackCmd = &cobra.Command{
	Use:   "track <habit-id> [amount]",
	Short: "Log progress against a habit",
	Long: `The "track" command adds progress to a habit for today (or the day
	given with --date). Amount defaults to 1; negative amounts undo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount := 1
		if len(args) == 2 {
			var err error
			amount, err = strconv.Atoi(args[1])
			if err != nil {
				return err
			}
		}
		return track(cmd, args[0], amount)
	},
}

func track(cmd *cobra.Command, habitID string, amount int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	client := apiclient.New(cfg.APIBaseURL, cfg.AuthToken)
	snap, err := client.AddProgress(cmd.Context(), habitID, amount, trackDate)
	if err != nil {
		return err
	}

	status := "in progress"
	if snap.IsCompleted {
		status = "done"
	}
	cmd.Printf("%s: %d/%d (%s)\n", snap.Name, snap.CurrentProgress, snap.TargetValue, status)
	return nil
}

func init() {
	trackCmd.Flags().StringVar(&trackDate, "date", "", "calendar date YYYY-MM-DD (default today)")
	rootCmd.AddCommand(trackCmd)
}
