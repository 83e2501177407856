package registry

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/brk3/habitd/internal/storage/bolt"
	"github.com/brk3/habitd/pkg/calendar"
	"github.com/brk3/habitd/pkg/habit"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store)
}

func dailyDef(name string) Definition {
	return Definition{
		Name:        name,
		Cadence:     habit.Cadence{Kind: habit.CadenceDaily},
		TargetType:  habit.TargetCount,
		TargetValue: 1,
	}
}

func TestCreate_AssignsIDAndDefaults(t *testing.T) {
	reg := newTestRegistry(t)

	h, err := reg.Create("testuser", dailyDef("guitar"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if h.ID == "" {
		t.Fatal("expected generated habit ID")
	}
	if !h.Active {
		t.Fatal("new habits must be active")
	}
	if h.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	reg := newTestRegistry(t)

	if _, err := reg.Create("testuser", dailyDef("guitar")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := reg.Create("testuser", dailyDef("guitar"))
	if !errors.Is(err, habit.ErrDuplicateName) {
		t.Fatalf("got %v want ErrDuplicateName", err)
	}
}

func TestCreate_InvalidInputs(t *testing.T) {
	reg := newTestRegistry(t)

	cases := []struct {
		name string
		def  Definition
	}{
		{"empty name", Definition{Cadence: habit.Cadence{Kind: habit.CadenceDaily}, TargetType: habit.TargetCount, TargetValue: 1}},
		{"zero target", Definition{Name: "x", Cadence: habit.Cadence{Kind: habit.CadenceDaily}, TargetType: habit.TargetCount}},
		{"negative target", Definition{Name: "x", Cadence: habit.Cadence{Kind: habit.CadenceDaily}, TargetType: habit.TargetCount, TargetValue: -3}},
		{"bad cadence", Definition{Name: "x", Cadence: habit.Cadence{Kind: "fortnightly"}, TargetType: habit.TargetCount, TargetValue: 1}},
		{"bad weekday", Definition{Name: "x", Cadence: habit.Cadence{Kind: habit.CadenceWeekly, Days: []int{7}}, TargetType: habit.TargetCount, TargetValue: 1}},
		{"bad target type", Definition{Name: "x", Cadence: habit.Cadence{Kind: habit.CadenceDaily}, TargetType: "steps", TargetValue: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Create("testuser", tc.def)
			if !errors.Is(err, habit.ErrInvalidTarget) {
				t.Fatalf("got %v want ErrInvalidTarget", err)
			}
		})
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	reg := newTestRegistry(t)

	h, err := reg.Create("testuser", dailyDef("guitar"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := reg.Update("testuser", h.ID, Definition{TargetValue: 5})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.TargetValue != 5 {
		t.Fatalf("got target %d want 5", updated.TargetValue)
	}
	if updated.Name != "guitar" {
		t.Fatalf("name changed unexpectedly: %s", updated.Name)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Update("testuser", "missing", Definition{TargetValue: 2})
	if !errors.Is(err, habit.ErrNotFound) {
		t.Fatalf("got %v want ErrNotFound", err)
	}
}

func TestUpdate_RenameToTakenName(t *testing.T) {
	reg := newTestRegistry(t)

	if _, err := reg.Create("testuser", dailyDef("guitar")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	h, err := reg.Create("testuser", dailyDef("exercise"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = reg.Update("testuser", h.ID, Definition{Name: "guitar"})
	if !errors.Is(err, habit.ErrDuplicateName) {
		t.Fatalf("got %v want ErrDuplicateName", err)
	}

	// Renames hit the same case-insensitive rule as creates.
	_, err = reg.Update("testuser", h.ID, Definition{Name: "GUITAR"})
	if !errors.Is(err, habit.ErrDuplicateName) {
		t.Fatalf("got %v want ErrDuplicateName for case-only rename", err)
	}

	// Renaming a habit over its own name (case change only) is allowed.
	renamed, err := reg.Update("testuser", h.ID, Definition{Name: "Exercise"})
	if err != nil {
		t.Fatalf("self rename failed: %v", err)
	}
	if renamed.Name != "Exercise" {
		t.Fatalf("got '%s' want Exercise", renamed.Name)
	}
}

func TestDeactivate_LeavesHabitReadable(t *testing.T) {
	reg := newTestRegistry(t)

	h, err := reg.Create("testuser", dailyDef("guitar"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := reg.Deactivate("testuser", h.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	got, err := reg.Get("testuser", h.ID)
	if err != nil {
		t.Fatalf("get after deactivate failed: %v", err)
	}
	if got.Active {
		t.Fatal("expected habit to be inactive")
	}

	active, err := reg.ListActive("testuser", "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("got %d active habits want 0", len(active))
	}

	// idempotent
	if err := reg.Deactivate("testuser", h.ID); err != nil {
		t.Fatalf("second deactivate failed: %v", err)
	}
}

func TestListActive_CadenceFilter(t *testing.T) {
	reg := newTestRegistry(t)

	if _, err := reg.Create("testuser", dailyDef("guitar")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	weekly := Definition{
		Name:        "gym",
		Cadence:     habit.Cadence{Kind: habit.CadenceWeekly, Days: []int{1, 3, 5}},
		TargetType:  habit.TargetMinutes,
		TargetValue: 30,
	}
	if _, err := reg.Create("testuser", weekly); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := reg.ListActive("testuser", habit.CadenceWeekly)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "gym" {
		t.Fatalf("got %v", got)
	}

	all, err := reg.ListActive("testuser", "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d habits want 2", len(all))
	}
}

func TestEligibleOn(t *testing.T) {
	monday := calendar.Date{Year: 2025, Month: time.March, Day: 10}
	tuesday := monday.AddDays(1)
	firstOfMonth := calendar.Date{Year: 2025, Month: time.April, Day: 1}
	midMonth := calendar.Date{Year: 2025, Month: time.April, Day: 15}

	daily := habit.Habit{Cadence: habit.Cadence{Kind: habit.CadenceDaily}}
	weekly := habit.Habit{Cadence: habit.Cadence{Kind: habit.CadenceWeekly, Days: []int{1, 3, 5}}}
	emptyWeekly := habit.Habit{Cadence: habit.Cadence{Kind: habit.CadenceWeekly}}
	monthly := habit.Habit{Cadence: habit.Cadence{Kind: habit.CadenceMonthly}}

	if !EligibleOn(daily, monday) || !EligibleOn(daily, tuesday) {
		t.Fatal("daily habits are eligible every day")
	}
	if !EligibleOn(weekly, monday) {
		t.Fatal("Monday is in {1,3,5}")
	}
	if EligibleOn(weekly, tuesday) {
		t.Fatal("Tuesday is not in {1,3,5}")
	}
	if EligibleOn(emptyWeekly, monday) {
		t.Fatal("weekly habit with no days is never eligible")
	}
	if !EligibleOn(monthly, firstOfMonth) {
		t.Fatal("monthly habits are eligible on the 1st")
	}
	if EligibleOn(monthly, midMonth) {
		t.Fatal("monthly habits are not eligible mid-month")
	}
}
