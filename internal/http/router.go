package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Auth     *AuthHandler
	People   *PeopleHandler
	Shifts   *ShiftHandler
	TimeOff  *TimeOffHandler
	Reports  *ReportHandler
	Locks    *LockHandler
	Sessions SessionValidator
	// SignInLimiter throttles POST /config when set.
	SignInLimiter *RateLimiter
	// Health reports backend readiness for GET /health. Nil always reports ok.
	Health     func(r *http.Request) error
	Middleware []func(http.Handler) http.Handler
	// MetricsHandler overrides the Prometheus handler mounted at /metrics.
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		if cfg.Health != nil {
			if err := cfg.Health(req); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unavailable"
			}
		}
		newResponder(nil).writeJSON(req.Context(), w, status, body)
	})
	metrics := cfg.MetricsHandler
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Handle("/metrics", metrics)

	if cfg.Auth != nil {
		if cfg.SignInLimiter != nil {
			r.With(cfg.SignInLimiter.Limit).Post("/config", cfg.Auth.SignIn)
		} else {
			r.Post("/config", cfg.Auth.SignIn)
		}
	}

	if cfg.Sessions == nil {
		return r
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireSession(cfg.Sessions, nil))

		if cfg.Auth != nil {
			r.Get("/session", cfg.Auth.Session)
		}
		if cfg.Reports != nil {
			r.Get("/channels", cfg.Reports.Channels)
			r.Get("/coverage", cfg.Reports.Coverage)
			r.Get("/reports/agents", cfg.Reports.Agents)
		}
		if cfg.People != nil {
			r.Get("/people", cfg.People.List)
			r.Put("/people/{email}", cfg.People.Put)
			r.Delete("/people/{email}", cfg.People.Delete)
		}
		if cfg.Shifts != nil {
			r.Get("/shifts", cfg.Shifts.List)
			r.Post("/shifts", cfg.Shifts.Create)
			r.Put("/shifts/{id}", cfg.Shifts.Update)
			r.Delete("/shifts/{id}", cfg.Shifts.Delete)
		}
		if cfg.TimeOff != nil {
			r.Get("/timeoff", cfg.TimeOff.List)
			r.Post("/timeoff", cfg.TimeOff.Submit)
			r.Put("/timeoff/{id}/decision", cfg.TimeOff.Decide)
			r.Delete("/timeoff/{id}", cfg.TimeOff.Delete)
		}
		if cfg.Locks != nil {
			r.Get("/locks/{recordID}", cfg.Locks.Status)
			r.Post("/locks/{recordID}", cfg.Locks.Acquire)
			r.Post("/locks/{recordID}/renew", cfg.Locks.Renew)
			r.Delete("/locks/{recordID}", cfg.Locks.Release)
		}
	})

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).writeError(r.Context(), w, http.StatusMethodNotAllowed, nil)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).writeError(r.Context(), w, http.StatusNotFound, nil)
}
