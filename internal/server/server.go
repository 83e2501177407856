package server

import (
	"net/http"

	"github.com/brk3/habitd/internal/config"
	"github.com/brk3/habitd/internal/progress"
	"github.com/brk3/habitd/internal/registry"
	"github.com/brk3/habitd/internal/stats"
	"github.com/brk3/habitd/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// defaultUserID is the singleton user used when auth is disabled.
const defaultUserID = "default"

type Server struct {
	cfg      *config.Config
	store    storage.Store
	registry *registry.Registry
	progress *progress.Service
	stats    *stats.Engine

	authProviders map[string]*AuthProvider
	sessionCookie *securecookie.SecureCookie
}

func New(cfg *config.Config, store storage.Store) (*Server, error) {
	reg := registry.New(store)
	s := &Server{
		cfg:      cfg,
		store:    store,
		registry: reg,
		progress: progress.New(store, reg),
		stats:    stats.New(store, reg, cfg.DefaultTZOffsetMinutes),
	}

	if cfg.AuthEnabled && len(cfg.OIDCProviders) > 0 {
		providers, cookie, err := ConfigureOIDCProviders(cfg)
		if err != nil {
			return nil, err
		}
		s.authProviders = providers
		s.sessionCookie = cookie
	}

	return s, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/version", s.getVersionInfo)
	r.Handle("/metrics", promhttp.Handler())

	if s.cfg.AuthEnabled {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/{id}/login", s.login)
			r.Get("/{id}/callback", s.callback)
			r.Post("/logout", s.logout)
		})
	}

	r.Group(func(r chi.Router) {
		if s.cfg.AuthEnabled {
			r.Use(s.authMiddleware)
			r.Use(s.userAwareMetricsMiddleware)
		}

		r.Route("/habits", func(r chi.Router) {
			r.Post("/", s.createHabit)
			r.Get("/", s.listHabits)
			r.Get("/{habit_id}", s.getHabit)
			r.Patch("/{habit_id}", s.updateHabit)
			r.Delete("/{habit_id}", s.deleteHabit)
			r.Patch("/{habit_id}/progress", s.addProgress)
			r.Get("/{habit_id}/summary", s.getHabitSummary)
		})

		r.Get("/daily-progress", s.getDailyProgress)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", s.getStats)
			r.Post("/recompute", s.recomputeStats)
		})

		r.Route("/user/timezone", func(r chi.Router) {
			r.Get("/", s.getTimezone)
			r.Put("/", s.putTimezone)
		})

		if s.cfg.AuthEnabled {
			r.Get("/auth/token", s.getAPIToken)
		}
	})

	return r
}
