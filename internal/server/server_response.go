package server

import (
	"github.com/brk3/habitd/pkg/habit"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type HabitListResponse struct {
	Habits []habit.Habit `json:"habits"`
}

type HabitSummaryResponse struct {
	HabitID        string  `json:"habit_id"`
	Name           string  `json:"name"`
	CurrentStreak  int     `json:"current_streak"`
	BestStreak     int     `json:"best_streak"`
	CompletionRate float64 `json:"completion_rate"`
	WindowDays     int     `json:"window_days"`
	CompletedToday bool    `json:"completed_today"`
}

type DailyProgressResponse struct {
	Records []habit.DailyRecord `json:"records"`
}

type TimezoneResponse struct {
	UserID                string `json:"user_id"`
	TimezoneOffsetMinutes int    `json:"timezone_offset_minutes"`
}

type ProgressRequest struct {
	ProgressToAdd int    `json:"progress_to_add"`
	Date          string `json:"date,omitempty"`
}

type RecomputeRequest struct {
	Date         string `json:"date,omitempty"`
	WindowDays   int    `json:"window_days,omitempty"`
	LookbackDays int    `json:"lookback_days,omitempty"`
}
