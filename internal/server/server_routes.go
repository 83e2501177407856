package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/brk3/habitd/internal/logger"
	"github.com/brk3/habitd/internal/registry"
	"github.com/brk3/habitd/internal/stats"
	"github.com/brk3/habitd/pkg/calendar"
	"github.com/brk3/habitd/pkg/habit"
	"github.com/brk3/habitd/pkg/versioninfo"
	"github.com/go-chi/chi/v5"
)

// statsCacheTTL bounds how stale a cached summary may be before a dashboard
// read triggers a recompute.
const statsCacheTTL = 5 * time.Minute

const maxConflictRetries = 3

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var code int
	var kind string
	switch {
	case errors.Is(err, habit.ErrNotFound):
		code, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, habit.ErrDuplicateName):
		code, kind = http.StatusConflict, "duplicate_name"
	case errors.Is(err, habit.ErrInvalidTarget):
		code, kind = http.StatusBadRequest, "invalid_target"
	case errors.Is(err, habit.ErrConflict):
		code, kind = http.StatusConflict, "conflict"
	default:
		code, kind = http.StatusInternalServerError, "internal"
	}
	_ = writeJSON(w, code, ErrorResponse{Error: err.Error(), Kind: kind})
}

func badRequest(w http.ResponseWriter, msg string) {
	_ = writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Kind: "bad_request"})
}

func (s *Server) getVersionInfo(w http.ResponseWriter, _ *http.Request) {
	info := versioninfo.VersionInfo{
		Version:   versioninfo.Version,
		BuildDate: versioninfo.BuildDate,
	}
	if err := writeJSON(w, http.StatusOK, info); err != nil {
		logger.Error("Failed to serialize version info response", "error", err)
	}
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		badRequest(w, "user id is required")
		return
	}
	var def registry.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		logger.Warn("Invalid JSON in create habit request", "error", err)
		badRequest(w, "invalid JSON")
		return
	}
	h, err := s.registry.Create(userID, def)
	if err != nil {
		logger.Warn("Failed to create habit", "user_id", userID, "name", def.Name, "error", err)
		writeError(w, err)
		return
	}
	s.updateActiveHabitsMetric(userID)
	if err := writeJSON(w, http.StatusCreated, h); err != nil {
		logger.Error("Failed to serialize create habit response", "user_id", userID, "error", err)
	}
}

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		badRequest(w, "user id is required")
		return
	}
	cadence := habit.CadenceKind(r.URL.Query().Get("cadence"))
	habits, err := s.registry.ListActive(userID, cadence)
	if err != nil {
		logger.Error("Failed to list habits", "user_id", userID, "error", err)
		writeError(w, err)
		return
	}
	if habits == nil {
		habits = []habit.Habit{}
	}
	if err := writeJSON(w, http.StatusOK, HabitListResponse{Habits: habits}); err != nil {
		logger.Error("Failed to serialize habit list response", "user_id", userID, "error", err)
	}
}

func (s *Server) getHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		badRequest(w, "user id and habit id are required")
		return
	}
	h, err := s.registry.Get(userID, habitID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, h); err != nil {
		logger.Error("Failed to serialize habit response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) updateHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		badRequest(w, "user id and habit id are required")
		return
	}
	var def registry.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	h, err := s.registry.Update(userID, habitID, def)
	if err != nil {
		logger.Warn("Failed to update habit", "user_id", userID, "habit_id", habitID, "error", err)
		writeError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, h); err != nil {
		logger.Error("Failed to serialize update habit response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		badRequest(w, "user id and habit id are required")
		return
	}
	if err := s.registry.Deactivate(userID, habitID); err != nil {
		logger.Warn("Failed to deactivate habit", "user_id", userID, "habit_id", habitID, "error", err)
		writeError(w, err)
		return
	}
	logger.Info("Deactivated habit", "user_id", userID, "habit_id", habitID)
	s.updateActiveHabitsMetric(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addProgress(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		badRequest(w, "user id and habit id are required")
		return
	}
	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	date := s.stats.Today(userID)
	if req.Date != "" {
		parsed, err := calendar.Parse(req.Date)
		if err != nil {
			badRequest(w, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	var snap habit.ProgressSnapshot
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		snap, err = s.progress.AddProgress(userID, habitID, req.ProgressToAdd, date)
		if !errors.Is(err, habit.ErrConflict) {
			break
		}
		logger.Debug("Retrying progress update after conflict", "user_id", userID,
			"habit_id", habitID, "attempt", attempt+1)
	}
	if err != nil {
		logger.Warn("Failed to add progress", "user_id", userID, "habit_id", habitID,
			"date", date.String(), "error", err)
		writeError(w, err)
		return
	}

	logger.Info("Progress added", "user_id", userID, "habit_id", habitID,
		"date", date.String(), "amount", req.ProgressToAdd, "current", snap.CurrentProgress)
	if err := writeJSON(w, http.StatusOK, snap); err != nil {
		logger.Error("Failed to serialize progress response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) getHabitSummary(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		badRequest(w, "user id and habit id are required")
		return
	}

	windowDays := stats.DefaultWindowDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(w, "days must be a positive integer")
			return
		}
		windowDays = n
	}

	h, err := s.registry.Get(userID, habitID)
	if err != nil {
		writeError(w, err)
		return
	}
	streaks, err := s.stats.Streaks(userID, habitID)
	if err != nil {
		logger.Error("Failed to compute streaks", "user_id", userID, "habit_id", habitID, "error", err)
		writeError(w, err)
		return
	}
	rate, err := s.stats.CompletionRate(userID, habitID, windowDays)
	if err != nil {
		logger.Error("Failed to compute completion rate", "user_id", userID, "habit_id", habitID, "error", err)
		writeError(w, err)
		return
	}

	completedToday := false
	if rec, found, err := s.progress.Get(userID, s.stats.Today(userID)); err == nil && found {
		if snap, ok := rec.HabitsByID[habitID]; ok {
			completedToday = snap.IsCompleted
		}
	}

	resp := HabitSummaryResponse{
		HabitID:        habitID,
		Name:           h.Name,
		CurrentStreak:  streaks.Current,
		BestStreak:     streaks.Best,
		CompletionRate: rate,
		WindowDays:     windowDays,
		CompletedToday: completedToday,
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize habit summary response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) getDailyProgress(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		badRequest(w, "user id is required")
		return
	}
	q := r.URL.Query()

	if dateStr := q.Get("date"); dateStr != "" {
		date, err := calendar.Parse(dateStr)
		if err != nil {
			badRequest(w, "date must be YYYY-MM-DD")
			return
		}
		rec, found, err := s.progress.Get(userID, date)
		if err != nil {
			logger.Error("Failed to get daily record", "user_id", userID, "date", dateStr, "error", err)
			writeError(w, err)
			return
		}
		records := []habit.DailyRecord{}
		if found {
			records = append(records, rec)
		}
		_ = writeJSON(w, http.StatusOK, DailyProgressResponse{Records: records})
		return
	}

	startStr, endStr := q.Get("start_date"), q.Get("end_date")
	if startStr == "" || endStr == "" {
		badRequest(w, "date or start_date/end_date is required")
		return
	}
	start, err := calendar.Parse(startStr)
	if err != nil {
		badRequest(w, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := calendar.Parse(endStr)
	if err != nil {
		badRequest(w, "end_date must be YYYY-MM-DD")
		return
	}
	records, err := s.progress.Range(userID, start, end)
	if err != nil {
		logger.Error("Failed to list daily records", "user_id", userID, "error", err)
		writeError(w, err)
		return
	}
	if records == nil {
		records = []habit.DailyRecord{}
	}
	if err := writeJSON(w, http.StatusOK, DailyProgressResponse{Records: records}); err != nil {
		logger.Error("Failed to serialize daily progress response", "user_id", userID, "error", err)
	}
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		badRequest(w, "user id is required")
		return
	}

	windowDays := stats.DefaultWindowDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(w, "days must be a positive integer")
			return
		}
		windowDays = n
	}

	today := s.stats.Today(userID)

	// Serve the cached summary when it is fresh enough and was computed
	// over the same window; otherwise rebuild.
	if windowDays == stats.DefaultWindowDays {
		cached, found, err := s.stats.CachedSummary(userID, today)
		if err == nil && found && cached.WindowDays == windowDays &&
			time.Since(cached.LastUpdated) < statsCacheTTL {
			_ = writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	summary, err := s.stats.RecomputeSummary(userID, today, windowDays, stats.DefaultLookbackDays)
	if err != nil {
		logger.Error("Failed to recompute stats", "user_id", userID, "error", err)
		writeError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, summary); err != nil {
		logger.Error("Failed to serialize stats response", "user_id", userID, "error", err)
	}
}

func (s *Server) recomputeStats(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		badRequest(w, "user id is required")
		return
	}
	var req RecomputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	date := s.stats.Today(userID)
	if req.Date != "" {
		parsed, err := calendar.Parse(req.Date)
		if err != nil {
			badRequest(w, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	summary, err := s.stats.RecomputeSummary(userID, date, req.WindowDays, req.LookbackDays)
	if err != nil {
		logger.Error("Failed to recompute stats", "user_id", userID, "date", date.String(), "error", err)
		writeError(w, err)
		return
	}
	logger.Info("Recomputed stats summary", "user_id", userID, "date", date.String())
	if err := writeJSON(w, http.StatusOK, summary); err != nil {
		logger.Error("Failed to serialize stats response", "user_id", userID, "error", err)
	}
}

func (s *Server) getTimezone(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		badRequest(w, "user id is required")
		return
	}
	resp := TimezoneResponse{
		UserID:                userID,
		TimezoneOffsetMinutes: s.stats.OffsetFor(userID),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize timezone response", "user_id", userID, "error", err)
	}
}

func (s *Server) putTimezone(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		badRequest(w, "user id is required")
		return
	}
	var req TimezoneResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	// Sanity bound: UTC-12h to UTC+14h covers every civil offset in use.
	if req.TimezoneOffsetMinutes < -12*60 || req.TimezoneOffsetMinutes > 14*60 {
		badRequest(w, "timezone offset out of range")
		return
	}
	settings := habit.UserSettings{
		UserID:                userID,
		TimezoneOffsetMinutes: req.TimezoneOffsetMinutes,
	}
	if err := s.store.PutUserSettings(userID, settings); err != nil {
		logger.Error("Failed to save timezone", "user_id", userID, "error", err)
		writeError(w, err)
		return
	}
	logger.Info("Saved timezone preference", "user_id", userID, "offset_minutes", req.TimezoneOffsetMinutes)
	if err := writeJSON(w, http.StatusOK, TimezoneResponse(settings)); err != nil {
		logger.Error("Failed to serialize timezone response", "user_id", userID, "error", err)
	}
}

func (s *Server) updateActiveHabitsMetric(userID string) {
	habits, err := s.registry.ListActive(userID, "")
	if err != nil {
		logger.Warn("Failed to update active habits metric", "user_id", userID, "error", err)
		return
	}
	UpdateActiveHabitsForUser(userID, len(habits))
}
