package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/brk3/habitd/internal/logger"
	"github.com/brk3/habitd/internal/storage"
	"github.com/brk3/habitd/pkg/calendar"
	"github.com/brk3/habitd/pkg/habit"
	"github.com/google/uuid"
)

// Registry owns habit definitions and their lifecycle. Habits are never hard
// deleted: Deactivate flips Active off so historical snapshots stay intact.
type Registry struct {
	store storage.Store
	now   func() time.Time
}

func New(store storage.Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

// SetClock pins the registry's notion of now. Tests only.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Definition carries the caller-supplied fields for create and update.
type Definition struct {
	Name        string           `json:"name"`
	Emoji       string           `json:"emoji"`
	Color       string           `json:"color"`
	Cadence     habit.Cadence    `json:"cadence"`
	TargetType  habit.TargetType `json:"target_type"`
	TargetValue int              `json:"target_value"`
}

func validateCadence(c habit.Cadence) error {
	switch c.Kind {
	case habit.CadenceDaily, habit.CadenceMonthly:
		return nil
	case habit.CadenceWeekly:
		for _, d := range c.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("weekday %d out of range: %w", d, habit.ErrInvalidTarget)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown cadence %q: %w", c.Kind, habit.ErrInvalidTarget)
	}
}

func validateTargetType(t habit.TargetType) error {
	switch t {
	case habit.TargetCount, habit.TargetMinutes, habit.TargetBoolean:
		return nil
	default:
		return fmt.Errorf("unknown target type %q: %w", t, habit.ErrInvalidTarget)
	}
}

func (r *Registry) Create(userID string, def Definition) (habit.Habit, error) {
	if def.Name == "" {
		return habit.Habit{}, fmt.Errorf("habit name is required: %w", habit.ErrInvalidTarget)
	}
	if def.TargetValue < 1 {
		return habit.Habit{}, fmt.Errorf("target value %d: %w", def.TargetValue, habit.ErrInvalidTarget)
	}
	if err := validateCadence(def.Cadence); err != nil {
		return habit.Habit{}, err
	}
	if err := validateTargetType(def.TargetType); err != nil {
		return habit.Habit{}, err
	}

	h := habit.Habit{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        def.Name,
		Emoji:       def.Emoji,
		Color:       def.Color,
		Cadence:     def.Cadence,
		TargetType:  def.TargetType,
		TargetValue: def.TargetValue,
		Active:      true,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.store.CreateHabit(userID, h); err != nil {
		return habit.Habit{}, err
	}
	logger.Info("Created habit", "user_id", userID, "habit_id", h.ID, "name", h.Name)
	return h, nil
}

// Update applies the non-zero fields of def to an existing habit.
func (r *Registry) Update(userID, habitID string, def Definition) (habit.Habit, error) {
	h, err := r.store.GetHabit(userID, habitID)
	if err != nil {
		return habit.Habit{}, err
	}

	if def.Name != "" {
		h.Name = def.Name
	}
	if def.Emoji != "" {
		h.Emoji = def.Emoji
	}
	if def.Color != "" {
		h.Color = def.Color
	}
	if def.Cadence.Kind != "" {
		if err := validateCadence(def.Cadence); err != nil {
			return habit.Habit{}, err
		}
		h.Cadence = def.Cadence
	}
	if def.TargetType != "" {
		if err := validateTargetType(def.TargetType); err != nil {
			return habit.Habit{}, err
		}
		h.TargetType = def.TargetType
	}
	if def.TargetValue != 0 {
		if def.TargetValue < 1 {
			return habit.Habit{}, fmt.Errorf("target value %d: %w", def.TargetValue, habit.ErrInvalidTarget)
		}
		h.TargetValue = def.TargetValue
	}

	if err := r.store.PutHabit(userID, h); err != nil {
		return habit.Habit{}, err
	}
	logger.Info("Updated habit", "user_id", userID, "habit_id", h.ID)
	return h, nil
}

func (r *Registry) Deactivate(userID, habitID string) error {
	h, err := r.store.GetHabit(userID, habitID)
	if err != nil {
		return err
	}
	if !h.Active {
		return nil
	}
	h.Active = false
	if err := r.store.PutHabit(userID, h); err != nil {
		return err
	}
	logger.Info("Deactivated habit", "user_id", userID, "habit_id", habitID)
	return nil
}

func (r *Registry) Get(userID, habitID string) (habit.Habit, error) {
	return r.store.GetHabit(userID, habitID)
}

// ListActive returns the user's active habits, oldest first. An empty
// cadence filter matches everything.
func (r *Registry) ListActive(userID string, cadenceFilter habit.CadenceKind) ([]habit.Habit, error) {
	all, err := r.store.ListHabits(userID)
	if err != nil {
		return nil, err
	}
	out := make([]habit.Habit, 0, len(all))
	for _, h := range all {
		if !h.Active {
			continue
		}
		if cadenceFilter != "" && h.Cadence.Kind != cadenceFilter {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// EligibleOn reports whether the habit's cadence tracks the given day.
// Weekly habits with an empty weekday set are never eligible. Monthly habits
// are eligible on the first day of each month only.
func EligibleOn(h habit.Habit, date calendar.Date) bool {
	return cadenceEligibleOn(h.Cadence, date)
}

// SnapshotEligibleOn is EligibleOn against the cadence recorded in a day's
// snapshot, so history is judged by the rules that applied then.
func SnapshotEligibleOn(snap habit.ProgressSnapshot, date calendar.Date) bool {
	return cadenceEligibleOn(snap.Cadence, date)
}

func cadenceEligibleOn(c habit.Cadence, date calendar.Date) bool {
	switch c.Kind {
	case habit.CadenceDaily:
		return true
	case habit.CadenceWeekly:
		wd := int(date.Weekday())
		for _, d := range c.Days {
			if d == wd {
				return true
			}
		}
		return false
	case habit.CadenceMonthly:
		return date.Day == 1
	default:
		return false
	}
}
