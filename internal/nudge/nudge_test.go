package nudge

import (
	"context"
	"testing"
	"time"

	"github.com/brk3/habitd/internal/server"
	"github.com/brk3/habitd/pkg/habit"
)

func TestHoursLeftInDay(t *testing.T) {
	// 2025-03-10 20:00 UTC.
	now := time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		offsetMinutes int
		want          int
	}{
		{"utc", 0, 4},
		{"east of utc", 420, 21}, // 03:00 next local day in UTC+7
		{"west of utc", -300, 9}, // 15:00 same local day in UTC-5
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HoursLeftInDay(now, tt.offsetMinutes); got != tt.want {
				t.Fatalf("got %d want %d", got, tt.want)
			}
		})
	}
}

func TestGetHabitsExpiringToday(t *testing.T) {
	f := &mockClient{
		habits: []habit.Habit{{ID: "h1"}, {ID: "h2"}, {ID: "h3"}},
		summary: map[string]*server.HabitSummaryResponse{
			"h1": {HabitID: "h1", Name: "guitar", CurrentStreak: 3, CompletedToday: false},
			"h2": {HabitID: "h2", Name: "coding", CurrentStreak: 5, CompletedToday: true},
			"h3": {HabitID: "h3", Name: "water", CurrentStreak: 0, CompletedToday: false},
		},
	}
	got, err := GetHabitsExpiringToday(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "guitar" {
		t.Fatalf("got %v, want [guitar]", got)
	}
}

func TestNudge_SendsWhenThresholdReached(t *testing.T) {
	f := &mockClient{
		habits: []habit.Habit{{ID: "h1"}},
		summary: map[string]*server.HabitSummaryResponse{
			"h1": {HabitID: "h1", Name: "guitar", CurrentStreak: 3},
		},
	}
	n := &mockNotifier{}

	// A full-day threshold always fires regardless of wall clock.
	if err := Nudge(context.Background(), f, n, 24, 0); err != nil {
		t.Fatal(err)
	}
	if !n.called {
		t.Fatal("notifier was not called")
	}
	if len(n.habits) != 1 || n.habits[0] != "guitar" {
		t.Fatalf("got %v, want [guitar]", n.habits)
	}
}

func TestNudge_SkipsBeforeThreshold(t *testing.T) {
	f := &mockClient{
		habits: []habit.Habit{{ID: "h1"}},
		summary: map[string]*server.HabitSummaryResponse{
			"h1": {HabitID: "h1", Name: "guitar", CurrentStreak: 3},
		},
	}
	n := &mockNotifier{}

	// A negative threshold can never be reached.
	if err := Nudge(context.Background(), f, n, -1, 0); err != nil {
		t.Fatal(err)
	}
	if n.called {
		t.Fatal("notifier should not have been called")
	}
}

func TestNudge_NothingAtRisk(t *testing.T) {
	f := &mockClient{
		habits: []habit.Habit{{ID: "h1"}},
		summary: map[string]*server.HabitSummaryResponse{
			"h1": {HabitID: "h1", Name: "guitar", CurrentStreak: 0},
		},
	}
	n := &mockNotifier{}

	if err := Nudge(context.Background(), f, n, 24, 0); err != nil {
		t.Fatal(err)
	}
	if n.called {
		t.Fatal("notifier should not have been called with no streaks at risk")
	}
}
