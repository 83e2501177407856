package habit

import (
	"time"

	"github.com/brk3/habitd/pkg/calendar"
)

type CadenceKind string

const (
	CadenceDaily   CadenceKind = "daily"
	CadenceWeekly  CadenceKind = "weekly"
	CadenceMonthly CadenceKind = "monthly"
)

type TargetType string

const (
	TargetCount   TargetType = "count"
	TargetMinutes TargetType = "minutes"
	TargetBoolean TargetType = "boolean"
)

// Cadence says how often a habit recurs. Days is only meaningful for weekly
// habits: weekday numbers 0 (Sunday) through 6 (Saturday).
type Cadence struct {
	Kind CadenceKind `json:"kind"`
	Days []int       `json:"days,omitempty"`
}

type Habit struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Emoji       string     `json:"emoji,omitempty"`
	Color       string     `json:"color,omitempty"`
	Cadence     Cadence    `json:"cadence"`
	TargetType  TargetType `json:"target_type"`
	TargetValue int        `json:"target_value"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProgressSnapshot is the per-day state of one habit, embedded in its day's
// DailyRecord. Name, cadence and target are copied from the habit definition
// when the snapshot is first created, so history keeps the target that was in
// force that day even if the habit is edited later.
type ProgressSnapshot struct {
	HabitID         string     `json:"habit_id"`
	Name            string     `json:"name"`
	Cadence         Cadence    `json:"cadence"`
	TargetType      TargetType `json:"target_type"`
	TargetValue     int        `json:"target_value"`
	CurrentProgress int        `json:"current_progress"`
	IsCompleted     bool       `json:"is_completed"`
	LastUpdated     time.Time  `json:"last_updated"`
}

// DailyRecord is the aggregate for one (user, calendar day): a mapping of
// habit ID to that habit's snapshot. It is the atomic unit of update.
type DailyRecord struct {
	UserID     string                      `json:"user_id"`
	Date       calendar.Date               `json:"date"`
	HabitsByID map[string]ProgressSnapshot `json:"habits_by_id"`
}

// DayStats is derived from a single DailyRecord.
type DayStats struct {
	Date           calendar.Date `json:"date"`
	TotalHabits    int           `json:"total_habits"`
	CompletedCount int           `json:"completed_count"`
	CompletionRate float64       `json:"completion_rate"`
}

type StreakInfo struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

// DayOutcome identifies the best or worst day inside a lookback window.
type DayOutcome struct {
	Date           calendar.Date `json:"date"`
	CompletionRate float64       `json:"completion_rate"`
	CompletedCount int           `json:"completed_count"`
	TotalCount     int           `json:"total_count"`
}

// StatsSummary is the cached, denormalized statistics record. It is derived
// entirely from DailyRecord history and can be dropped and rebuilt at any
// time.
type StatsSummary struct {
	UserID                 string        `json:"user_id"`
	Date                   calendar.Date `json:"date"`
	TotalHabits            int           `json:"total_habits"`
	WindowDays             int           `json:"window_days"`
	SevenDayCompletionRate float64       `json:"seven_day_completion_rate"`
	BestStreak             int           `json:"best_streak"`
	BestDay                *DayOutcome   `json:"best_day"`
	WorstDay               *DayOutcome   `json:"worst_day"`
	LastUpdated            time.Time     `json:"last_updated"`
}

// UserSettings holds per-user preferences. TimezoneOffsetMinutes is a fixed
// UTC offset in minutes east of UTC, e.g. 420 for UTC+7.
type UserSettings struct {
	UserID                string `json:"user_id"`
	TimezoneOffsetMinutes int    `json:"timezone_offset_minutes"`
}
