package nudge

import (
	"context"
	"time"

	"github.com/brk3/habitd/internal/logger"
	"github.com/brk3/habitd/pkg/calendar"
)

// HoursLeftInDay returns the whole hours remaining until midnight in the
// given fixed offset.
func HoursLeftInDay(now time.Time, offsetMinutes int) int {
	today := calendar.FromTime(now, offsetMinutes)
	midnight := today.AddDays(1).UTCMidnight().Add(-time.Duration(offsetMinutes) * time.Minute)
	return int(midnight.Sub(now).Hours())
}

// GetHabitsExpiringToday returns the names of habits whose live streak dies
// at midnight unless they are completed: current streak above zero, today
// not yet done.
func GetHabitsExpiringToday(ctx context.Context, q Querier) ([]string, error) {
	habits, err := q.ListHabits(ctx)
	if err != nil {
		return nil, err
	}
	var expiring []string
	for _, h := range habits {
		summary, err := q.GetHabitSummary(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		if summary.CurrentStreak > 0 && !summary.CompletedToday {
			expiring = append(expiring, summary.Name)
		}
	}
	return expiring, nil
}

// Nudge sends one reminder covering every streak at risk, but only once the
// day has thresholdHours or less to run.
func Nudge(ctx context.Context, q Querier, n Notifier, thresholdHours, offsetMinutes int) error {
	hoursLeft := HoursLeftInDay(time.Now(), offsetMinutes)
	if hoursLeft > thresholdHours {
		logger.Debug("Day not close enough to ending, skipping nudge",
			"hours_left", hoursLeft, "threshold", thresholdHours)
		return nil
	}

	expiring, err := GetHabitsExpiringToday(ctx, q)
	if err != nil {
		return err
	}
	if len(expiring) == 0 {
		logger.Info("No streaks at risk, nothing to send")
		return nil
	}

	logger.Info("Sending nudge", "habits", len(expiring), "hours_left", hoursLeft)
	return n.SendNudge(expiring, hoursLeft)
}
