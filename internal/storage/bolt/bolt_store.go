package bolt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brk3/habitd/internal/storage"
	"github.com/brk3/habitd/pkg/calendar"
	"github.com/brk3/habitd/pkg/habit"
	"go.etcd.io/bbolt"
)

const rootBucket = "users"

// Per-user sub-buckets. Progress and stats are keyed by the canonical
// YYYY-MM-DD string of the record's calendar day.
const (
	habitsBucket   = "habits"
	progressBucket = "progress"
	statsBucket    = "stats"
	settingsBucket = "settings"
)

const settingsKey = "settings"

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func userBucket(tx *bbolt.Tx, userID, name string) (*bbolt.Bucket, error) {
	users := tx.Bucket([]byte(rootBucket))
	ub, err := users.CreateBucketIfNotExists([]byte(userID))
	if err != nil {
		return nil, err
	}
	return ub.CreateBucketIfNotExists([]byte(name))
}

// userBucketRead is the View-transaction variant: it never creates buckets
// and returns nil when the user has no data yet.
func userBucketRead(tx *bbolt.Tx, userID, name string) *bbolt.Bucket {
	users := tx.Bucket([]byte(rootBucket))
	ub := users.Bucket([]byte(userID))
	if ub == nil {
		return nil
	}
	return ub.Bucket([]byte(name))
}

func (s *Store) CreateHabit(userID string, h habit.Habit) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, habitsBucket)
		if err != nil {
			return err
		}
		// Uniqueness check and write share this transaction, so two
		// concurrent creates with the same name cannot both land.
		var dupe bool
		err = bucket.ForEach(func(_, v []byte) error {
			var existing habit.Habit
			if err := json.Unmarshal(v, &existing); err != nil {
				return err
			}
			if existing.Active && strings.EqualFold(existing.Name, h.Name) {
				dupe = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if dupe {
			return fmt.Errorf("habit %q: %w", h.Name, habit.ErrDuplicateName)
		}
		val, err := json.Marshal(h)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(h.ID), val)
	})
}

func (s *Store) PutHabit(userID string, h habit.Habit) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, habitsBucket)
		if err != nil {
			return err
		}
		// Renames face the same transactional uniqueness rule as creates.
		if h.Active {
			var dupe bool
			err = bucket.ForEach(func(k, v []byte) error {
				if string(k) == h.ID {
					return nil
				}
				var existing habit.Habit
				if err := json.Unmarshal(v, &existing); err != nil {
					return err
				}
				if existing.Active && strings.EqualFold(existing.Name, h.Name) {
					dupe = true
				}
				return nil
			})
			if err != nil {
				return err
			}
			if dupe {
				return fmt.Errorf("habit %q: %w", h.Name, habit.ErrDuplicateName)
			}
		}
		val, err := json.Marshal(h)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(h.ID), val)
	})
}

func (s *Store) GetHabit(userID, habitID string) (habit.Habit, error) {
	var h habit.Habit
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := userBucketRead(tx, userID, habitsBucket)
		if bucket == nil {
			return habit.ErrNotFound
		}
		v := bucket.Get([]byte(habitID))
		if v == nil {
			return habit.ErrNotFound
		}
		return json.Unmarshal(v, &h)
	})
	return h, err
}

func (s *Store) ListHabits(userID string) ([]habit.Habit, error) {
	var out []habit.Habit
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := userBucketRead(tx, userID, habitsBucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			var h habit.Habit
			if err := json.Unmarshal(v, &h); err != nil {
				return err
			}
			out = append(out, h)
			return nil
		})
	})
	return out, err
}

func (s *Store) GetDailyRecord(userID string, date calendar.Date) (habit.DailyRecord, bool, error) {
	var rec habit.DailyRecord
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := userBucketRead(tx, userID, progressBucket)
		if bucket == nil {
			return nil
		}
		v := bucket.Get([]byte(date.String()))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		found = true
		return nil
	})
	return rec, found, err
}

func (s *Store) UpdateDailyRecord(userID string, date calendar.Date, fn func(*habit.DailyRecord) error) (habit.DailyRecord, error) {
	var rec habit.DailyRecord
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, progressBucket)
		if err != nil {
			return err
		}
		key := []byte(date.String())
		if v := bucket.Get(key); v != nil {
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
		} else {
			rec = habit.DailyRecord{UserID: userID, Date: date}
		}
		if rec.HabitsByID == nil {
			rec.HabitsByID = map[string]habit.ProgressSnapshot{}
		}
		if err := fn(&rec); err != nil {
			return err
		}
		val, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return bucket.Put(key, val)
	})
	return rec, err
}

func (s *Store) ListDailyRecords(userID string, start, end calendar.Date) ([]habit.DailyRecord, error) {
	var out []habit.DailyRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := userBucketRead(tx, userID, progressBucket)
		if bucket == nil {
			return nil
		}
		// Keys are YYYY-MM-DD, so byte order is date order. Walk backwards
		// from end for the date-descending contract.
		c := bucket.Cursor()
		min := []byte(start.String())
		max := []byte(end.String())
		k, v := c.Seek(max)
		if k == nil {
			k, v = c.Last()
		} else if !bytes.Equal(k, max) {
			k, v = c.Prev()
		}
		for ; k != nil && bytes.Compare(k, min) >= 0; k, v = c.Prev() {
			if bytes.Compare(k, max) > 0 {
				continue
			}
			var rec habit.DailyRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (s *Store) GetStatsSummary(userID string, date calendar.Date) (habit.StatsSummary, bool, error) {
	var sum habit.StatsSummary
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := userBucketRead(tx, userID, statsBucket)
		if bucket == nil {
			return nil
		}
		v := bucket.Get([]byte(date.String()))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &sum); err != nil {
			return err
		}
		found = true
		return nil
	})
	return sum, found, err
}

func (s *Store) PutStatsSummary(userID string, sum habit.StatsSummary) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, statsBucket)
		if err != nil {
			return err
		}
		val, err := json.Marshal(sum)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(sum.Date.String()), val)
	})
}

func (s *Store) GetUserSettings(userID string) (habit.UserSettings, bool, error) {
	var settings habit.UserSettings
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := userBucketRead(tx, userID, settingsBucket)
		if bucket == nil {
			return nil
		}
		v := bucket.Get([]byte(settingsKey))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &settings); err != nil {
			return err
		}
		found = true
		return nil
	})
	return settings, found, err
}

func (s *Store) PutUserSettings(userID string, settings habit.UserSettings) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := userBucket(tx, userID, settingsBucket)
		if err != nil {
			return err
		}
		val, err := json.Marshal(settings)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(settingsKey), val)
	})
}

var _ storage.Store = (*Store)(nil)
