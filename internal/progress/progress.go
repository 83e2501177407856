package progress

import (
	"fmt"
	"time"

	"github.com/brk3/habitd/internal/logger"
	"github.com/brk3/habitd/internal/registry"
	"github.com/brk3/habitd/internal/storage"
	"github.com/brk3/habitd/pkg/calendar"
	"github.com/brk3/habitd/pkg/habit"
)

// Service is the Daily Progress Store: one aggregate per (user, calendar
// day), holding a snapshot per habit. All writes flow through a single
// read-modify-write transaction on the day's record, so concurrent updates
// to different habits on the same day cannot lose each other.
type Service struct {
	store    storage.Store
	registry *registry.Registry
	now      func() time.Time
}

func New(store storage.Store, reg *registry.Registry) *Service {
	return &Service{store: store, registry: reg, now: time.Now}
}

// SetClock pins the service's notion of now. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func snapshotFor(h habit.Habit, at time.Time) habit.ProgressSnapshot {
	return habit.ProgressSnapshot{
		HabitID:     h.ID,
		Name:        h.Name,
		Cadence:     h.Cadence,
		TargetType:  h.TargetType,
		TargetValue: h.TargetValue,
		LastUpdated: at,
	}
}

// seed fills a day record with zero-progress snapshots for the given active
// habits, so the day's totals count habits that were never touched. The list
// is resolved before the record's transaction opens: the update callback must
// never call back into the store.
func seed(rec *habit.DailyRecord, active []habit.Habit, at time.Time) {
	for _, h := range active {
		if _, ok := rec.HabitsByID[h.ID]; !ok {
			rec.HabitsByID[h.ID] = snapshotFor(h, at)
		}
	}
}

// GetOrCreate returns the day's record, creating and persisting an empty,
// seeded one if this is the first touch of that day. Idempotent.
func (s *Service) GetOrCreate(userID string, date calendar.Date) (habit.DailyRecord, error) {
	rec, found, err := s.store.GetDailyRecord(userID, date)
	if err != nil {
		return habit.DailyRecord{}, err
	}
	if found {
		return rec, nil
	}
	active, err := s.registry.ListActive(userID, "")
	if err != nil {
		return habit.DailyRecord{}, err
	}
	return s.store.UpdateDailyRecord(userID, date, func(r *habit.DailyRecord) error {
		if len(r.HabitsByID) > 0 {
			// Someone else created it between our read and this tx.
			return nil
		}
		seed(r, active, s.now().UTC())
		return nil
	})
}

// AddProgress applies a progress delta to one habit's snapshot for the given
// day. Negative amounts undo progress; the result is clamped at zero.
// Completion is always rederived from the snapshot's own target.
func (s *Service) AddProgress(userID, habitID string, amount int, date calendar.Date) (habit.ProgressSnapshot, error) {
	h, err := s.registry.Get(userID, habitID)
	if err != nil {
		return habit.ProgressSnapshot{}, err
	}
	if !h.Active {
		return habit.ProgressSnapshot{}, fmt.Errorf("habit %s is inactive: %w", habitID, habit.ErrNotFound)
	}
	active, err := s.registry.ListActive(userID, "")
	if err != nil {
		return habit.ProgressSnapshot{}, err
	}

	now := s.now().UTC()
	var snap habit.ProgressSnapshot
	_, err = s.store.UpdateDailyRecord(userID, date, func(rec *habit.DailyRecord) error {
		seed(rec, active, now)
		cur, ok := rec.HabitsByID[habitID]
		if !ok {
			// A habit created after the day's record was seeded.
			cur = snapshotFor(h, now)
		}
		cur.CurrentProgress += amount
		if cur.CurrentProgress < 0 {
			cur.CurrentProgress = 0
		}
		cur.IsCompleted = cur.CurrentProgress >= cur.TargetValue
		cur.LastUpdated = now
		rec.HabitsByID[habitID] = cur
		snap = cur
		return nil
	})
	if err != nil {
		return habit.ProgressSnapshot{}, err
	}

	logger.Debug("Added progress", "user_id", userID, "habit_id", habitID,
		"date", date.String(), "amount", amount, "current", snap.CurrentProgress,
		"completed", snap.IsCompleted)
	return snap, nil
}

// Get is a point lookup; ok is false when no record exists for the day.
func (s *Service) Get(userID string, date calendar.Date) (habit.DailyRecord, bool, error) {
	return s.store.GetDailyRecord(userID, date)
}

// Range returns the records between start and end inclusive, most recent
// first.
func (s *Service) Range(userID string, start, end calendar.Date) ([]habit.DailyRecord, error) {
	if end.Before(start) {
		return nil, nil
	}
	return s.store.ListDailyRecords(userID, start, end)
}
