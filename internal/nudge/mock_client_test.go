package nudge

import (
	"context"

	"github.com/brk3/habitd/internal/server"
	"github.com/brk3/habitd/pkg/habit"
)

type mockClient struct {
	habits  []habit.Habit
	summary map[string]*server.HabitSummaryResponse
	err     error
}

func (f *mockClient) ListHabits(ctx context.Context) ([]habit.Habit, error) {
	return f.habits, f.err
}

func (f *mockClient) GetHabitSummary(ctx context.Context, habitID string) (*server.HabitSummaryResponse, error) {
	return f.summary[habitID], f.err
}
