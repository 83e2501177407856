package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/brk3/habitd/internal/storage"
	"github.com/brk3/habitd/pkg/calendar"
	"github.com/brk3/habitd/pkg/habit"
)

// memStore is an in-memory Store for handler tests. The single mutex makes
// every UpdateDailyRecord a serialized read-modify-write, matching the bolt
// store's transactional contract.
type memStore struct {
	mu       sync.Mutex
	habits   map[string]map[string]habit.Habit
	records  map[string]map[calendar.Date]habit.DailyRecord
	stats    map[string]map[calendar.Date]habit.StatsSummary
	settings map[string]habit.UserSettings
}

func newMemStore() *memStore {
	return &memStore{
		habits:   map[string]map[string]habit.Habit{},
		records:  map[string]map[calendar.Date]habit.DailyRecord{},
		stats:    map[string]map[calendar.Date]habit.StatsSummary{},
		settings: map[string]habit.UserSettings{},
	}
}

func (m *memStore) CreateHabit(userID string, h habit.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.habits[userID] {
		if existing.Active && strings.EqualFold(existing.Name, h.Name) {
			return fmt.Errorf("habit %q: %w", h.Name, habit.ErrDuplicateName)
		}
	}
	if m.habits[userID] == nil {
		m.habits[userID] = map[string]habit.Habit{}
	}
	m.habits[userID][h.ID] = h

	return nil
}

func (m *memStore) PutHabit(userID string, h habit.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.Active {
		for id, existing := range m.habits[userID] {
			if id != h.ID && existing.Active && strings.EqualFold(existing.Name, h.Name) {
				return fmt.Errorf("habit %q: %w", h.Name, habit.ErrDuplicateName)
			}
		}
	}
	if m.habits[userID] == nil {
		m.habits[userID] = map[string]habit.Habit{}
	}
	m.habits[userID][h.ID] = h

	return nil
}

func (m *memStore) GetHabit(userID, habitID string) (habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.habits[userID][habitID]
	if !ok {
		return habit.Habit{}, fmt.Errorf("habit %s: %w", habitID, habit.ErrNotFound)
	}

	return h, nil
}

func (m *memStore) ListHabits(userID string) ([]habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []habit.Habit{}
	for _, h := range m.habits[userID] {
		out = append(out, h)
	}

	return out, nil
}

func cloneRecord(rec habit.DailyRecord) habit.DailyRecord {
	out := rec
	out.HabitsByID = make(map[string]habit.ProgressSnapshot, len(rec.HabitsByID))
	for id, snap := range rec.HabitsByID {
		out.HabitsByID[id] = snap
	}

	return out
}

func (m *memStore) GetDailyRecord(userID string, date calendar.Date) (habit.DailyRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[userID][date]
	if !ok {
		return habit.DailyRecord{}, false, nil
	}

	return cloneRecord(rec), true, nil
}

func (m *memStore) UpdateDailyRecord(userID string, date calendar.Date, fn func(*habit.DailyRecord) error) (habit.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[userID][date]
	if !ok {
		rec = habit.DailyRecord{UserID: userID, Date: date}
	}
	rec = cloneRecord(rec)
	if rec.HabitsByID == nil {
		rec.HabitsByID = map[string]habit.ProgressSnapshot{}
	}
	if err := fn(&rec); err != nil {
		return habit.DailyRecord{}, err
	}
	if m.records[userID] == nil {
		m.records[userID] = map[calendar.Date]habit.DailyRecord{}
	}
	m.records[userID][date] = rec

	return cloneRecord(rec), nil
}

func (m *memStore) ListDailyRecords(userID string, start, end calendar.Date) ([]habit.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []habit.DailyRecord{}
	for d := end; !d.Before(start); d = d.AddDays(-1) {
		if rec, ok := m.records[userID][d]; ok {
			out = append(out, cloneRecord(rec))
		}
	}

	return out, nil
}

func (m *memStore) GetStatsSummary(userID string, date calendar.Date) (habit.StatsSummary, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[userID][date]

	return s, ok, nil
}

func (m *memStore) PutStatsSummary(userID string, s habit.StatsSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stats[userID] == nil {
		m.stats[userID] = map[calendar.Date]habit.StatsSummary{}
	}
	m.stats[userID][s.Date] = s

	return nil
}

func (m *memStore) GetUserSettings(userID string) (habit.UserSettings, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settings[userID]

	return s, ok, nil
}

func (m *memStore) PutUserSettings(userID string, s habit.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[userID] = s

	return nil
}

func (m *memStore) Close() error {
	return nil
}

var _ storage.Store = (*memStore)(nil)
