package storage

import (
	"github.com/brk3/habitd/pkg/calendar"
	"github.com/brk3/habitd/pkg/habit"
)

// Store is the keyed record store the core persists through. Implementations
// must make UpdateDailyRecord an atomic read-modify-write: concurrent calls
// for the same (user, date) serialize, so no progress update is lost.
type Store interface {
	// CreateHabit persists a new habit. It fails with habit.ErrDuplicateName
	// if an active habit with the same name already exists for the user;
	// the name check and the write happen in one transaction.
	CreateHabit(userID string, h habit.Habit) error

	// PutHabit upserts a habit. Writing an active habit whose name collides
	// (case-insensitively) with another active habit fails with
	// habit.ErrDuplicateName; the check shares the write's transaction.
	PutHabit(userID string, h habit.Habit) error
	GetHabit(userID, habitID string) (habit.Habit, error)
	ListHabits(userID string) ([]habit.Habit, error)

	// GetDailyRecord returns the record for the given day, with ok=false if
	// none exists yet.
	GetDailyRecord(userID string, date calendar.Date) (habit.DailyRecord, bool, error)

	// UpdateDailyRecord loads (or initializes) the day's record, applies fn
	// to it, and persists the result, all within a single transaction. The
	// returned record is the persisted state. fn runs with the record's
	// transaction (or lock) held and must not call back into the Store.
	UpdateDailyRecord(userID string, date calendar.Date, fn func(*habit.DailyRecord) error) (habit.DailyRecord, error)

	// ListDailyRecords returns records in [start, end], most recent first.
	ListDailyRecords(userID string, start, end calendar.Date) ([]habit.DailyRecord, error)

	GetStatsSummary(userID string, date calendar.Date) (habit.StatsSummary, bool, error)
	PutStatsSummary(userID string, s habit.StatsSummary) error

	GetUserSettings(userID string) (habit.UserSettings, bool, error)
	PutUserSettings(userID string, s habit.UserSettings) error

	Close() error
}
