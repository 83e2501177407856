package stats

import (
	"math"
	"time"

	"github.com/brk3/habitd/internal/logger"
	"github.com/brk3/habitd/internal/registry"
	"github.com/brk3/habitd/internal/storage"
	"github.com/brk3/habitd/pkg/calendar"
	"github.com/brk3/habitd/pkg/habit"
)

const (
	DefaultWindowDays   = 7
	DefaultLookbackDays = 30
)

// Engine derives streaks, completion rates and daily aggregates from the
// Daily Progress Store's history. Missing records are zero-activity days,
// never errors; the only failures it surfaces are storage failures.
type Engine struct {
	store         storage.Store
	registry      *registry.Registry
	defaultOffset int
	now           func() time.Time
}

func New(store storage.Store, reg *registry.Registry, defaultOffsetMinutes int) *Engine {
	return &Engine{
		store:         store,
		registry:      reg,
		defaultOffset: defaultOffsetMinutes,
		now:           time.Now,
	}
}

// SetClock pins the engine's notion of now. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// OffsetFor resolves the user's fixed timezone offset, falling back to the
// configured default when the user has no stored preference.
func (e *Engine) OffsetFor(userID string) int {
	settings, found, err := e.store.GetUserSettings(userID)
	if err != nil || !found {
		return e.defaultOffset
	}
	return settings.TimezoneOffsetMinutes
}

// Today is the current calendar day as the user sees it.
func (e *Engine) Today(userID string) calendar.Date {
	return calendar.FromTime(e.now(), e.OffsetFor(userID))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// snapshotsByDate indexes a habit's snapshots out of a record range.
func snapshotsByDate(records []habit.DailyRecord, habitID string) map[calendar.Date]habit.ProgressSnapshot {
	out := make(map[calendar.Date]habit.ProgressSnapshot, len(records))
	for _, rec := range records {
		if snap, ok := rec.HabitsByID[habitID]; ok {
			out[rec.Date] = snap
		}
	}
	return out
}

// eligibleOn judges a day by the cadence recorded in that day's snapshot
// when one exists, else by the habit's current cadence.
func eligibleOn(h habit.Habit, snaps map[calendar.Date]habit.ProgressSnapshot, date calendar.Date) bool {
	if snap, ok := snaps[date]; ok {
		return registry.SnapshotEligibleOn(snap, date)
	}
	return registry.EligibleOn(h, date)
}

func completedOn(snaps map[calendar.Date]habit.ProgressSnapshot, date calendar.Date) bool {
	snap, ok := snaps[date]
	return ok && snap.IsCompleted
}

// Streaks computes the current and best streak for one habit. A streak runs
// over the habit's eligible days only: ineligible days are skipped, not
// counted as breaks. The current streak is anchored at today; if today is
// eligible but not yet completed it is skipped rather than treated as a
// break, since the day is not over.
func (e *Engine) Streaks(userID, habitID string) (habit.StreakInfo, error) {
	h, err := e.registry.Get(userID, habitID)
	if err != nil {
		return habit.StreakInfo{}, err
	}

	offset := e.OffsetFor(userID)
	today := calendar.FromTime(e.now(), offset)
	start := calendar.FromTime(h.CreatedAt, offset)
	if today.Before(start) {
		return habit.StreakInfo{}, nil
	}

	records, err := e.store.ListDailyRecords(userID, start, today)
	if err != nil {
		return habit.StreakInfo{}, err
	}
	snaps := snapshotsByDate(records, habitID)

	info := habit.StreakInfo{}

	// Best: walk forward over eligible days.
	run := 0
	for d := start; !d.After(today); d = d.AddDays(1) {
		if !eligibleOn(h, snaps, d) {
			continue
		}
		if completedOn(snaps, d) {
			run++
			if run > info.Best {
				info.Best = run
			}
		} else {
			run = 0
		}
	}

	// Current: walk backward from today over eligible days.
	first := true
	for d := today; !d.Before(start); d = d.AddDays(-1) {
		if !eligibleOn(h, snaps, d) {
			continue
		}
		done := completedOn(snaps, d)
		if first && !done {
			// Today still in flight.
			first = false
			continue
		}
		first = false
		if !done {
			break
		}
		info.Current++
	}

	return info, nil
}

// CompletionRate is the percentage of the habit's eligible days completed in
// the trailing window ending today, rounded to two decimals. Zero when the
// window holds no eligible days.
func (e *Engine) CompletionRate(userID, habitID string, windowDays int) (float64, error) {
	if windowDays < 1 {
		return 0, nil
	}
	h, err := e.registry.Get(userID, habitID)
	if err != nil {
		return 0, err
	}

	offset := e.OffsetFor(userID)
	today := calendar.FromTime(e.now(), offset)
	start := today.AddDays(-(windowDays - 1))

	records, err := e.store.ListDailyRecords(userID, start, today)
	if err != nil {
		return 0, err
	}
	snaps := snapshotsByDate(records, habitID)

	eligible, completed := 0, 0
	for d := start; !d.After(today); d = d.AddDays(1) {
		if !eligibleOn(h, snaps, d) {
			continue
		}
		eligible++
		if completedOn(snaps, d) {
			completed++
		}
	}
	if eligible == 0 {
		return 0, nil
	}
	return round2(float64(completed) / float64(eligible) * 100), nil
}

// DayStats aggregates a single day's record.
func DayStats(rec habit.DailyRecord) habit.DayStats {
	stats := habit.DayStats{Date: rec.Date, TotalHabits: len(rec.HabitsByID)}
	for _, snap := range rec.HabitsByID {
		if snap.IsCompleted {
			stats.CompletedCount++
		}
	}
	if stats.TotalHabits > 0 {
		stats.CompletionRate = round2(float64(stats.CompletedCount) / float64(stats.TotalHabits) * 100)
	}
	return stats
}

// RecomputeSummary rebuilds and upserts the cached statistics record for the
// given day. Recomputation is idempotent: it reads only DailyRecord history
// and the habit registry.
func (e *Engine) RecomputeSummary(userID string, date calendar.Date, windowDays, lookbackDays int) (habit.StatsSummary, error) {
	if windowDays < 1 {
		windowDays = DefaultWindowDays
	}
	if lookbackDays < 1 {
		lookbackDays = DefaultLookbackDays
	}

	active, err := e.registry.ListActive(userID, "")
	if err != nil {
		return habit.StatsSummary{}, err
	}

	summary := habit.StatsSummary{
		UserID:      userID,
		Date:        date,
		TotalHabits: len(active),
		WindowDays:  windowDays,
		LastUpdated: e.now().UTC(),
	}

	// Window rate: completed snapshots over total snapshots across the
	// trailing window's records.
	windowRecords, err := e.store.ListDailyRecords(userID, date.AddDays(-(windowDays-1)), date)
	if err != nil {
		return habit.StatsSummary{}, err
	}
	total, completed := 0, 0
	for _, rec := range windowRecords {
		day := DayStats(rec)
		total += day.TotalHabits
		completed += day.CompletedCount
	}
	if total > 0 {
		summary.SevenDayCompletionRate = round2(float64(completed) / float64(total) * 100)
	}

	for _, h := range active {
		info, err := e.Streaks(userID, h.ID)
		if err != nil {
			return habit.StatsSummary{}, err
		}
		if info.Best > summary.BestStreak {
			summary.BestStreak = info.Best
		}
	}

	// Best and worst day across the lookback. Records arrive most recent
	// first, so strict comparisons break ties toward the most recent date.
	lookbackRecords, err := e.store.ListDailyRecords(userID, date.AddDays(-(lookbackDays-1)), date)
	if err != nil {
		return habit.StatsSummary{}, err
	}
	for _, rec := range lookbackRecords {
		day := DayStats(rec)
		if day.TotalHabits == 0 {
			continue
		}
		outcome := habit.DayOutcome{
			Date:           day.Date,
			CompletionRate: day.CompletionRate,
			CompletedCount: day.CompletedCount,
			TotalCount:     day.TotalHabits,
		}
		if summary.BestDay == nil || outcome.CompletionRate > summary.BestDay.CompletionRate {
			best := outcome
			summary.BestDay = &best
		}
		if summary.WorstDay == nil || outcome.CompletionRate < summary.WorstDay.CompletionRate {
			worst := outcome
			summary.WorstDay = &worst
		}
	}

	if err := e.store.PutStatsSummary(userID, summary); err != nil {
		return habit.StatsSummary{}, err
	}
	logger.Debug("Recomputed stats summary", "user_id", userID, "date", date.String(),
		"total_habits", summary.TotalHabits, "best_streak", summary.BestStreak)
	return summary, nil
}

// CachedSummary reads the stats cache. The cache is non-authoritative: a
// miss just means the caller should recompute.
func (e *Engine) CachedSummary(userID string, date calendar.Date) (habit.StatsSummary, bool, error) {
	return e.store.GetStatsSummary(userID, date)
}
