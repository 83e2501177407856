package nudge

import (
	"context"

	"github.com/brk3/habitd/internal/server"
	"github.com/brk3/habitd/pkg/habit"
)

type Querier interface {
	ListHabits(ctx context.Context) ([]habit.Habit, error)
	GetHabitSummary(ctx context.Context, habitID string) (*server.HabitSummaryResponse, error)
}

type Notifier interface {
	SendNudge(habits []string, hoursTillExpiry int) error
}
