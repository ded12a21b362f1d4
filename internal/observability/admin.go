package observability

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/danmuck/botectl/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// SessionStatus is the admin view of one device session.
type SessionStatus struct {
	ID           string        `json:"id"`
	Remote       string        `json:"remote"`
	Profile      string        `json:"profile"`
	Connected    bool          `json:"connected"`
	WaitTimeout  time.Duration `json:"wait_timeout_ns"`
	PollInterval time.Duration `json:"poll_interval_ns"`
}

// StatusFunc reports the sessions currently held by the process.
type StatusFunc func() []SessionStatus

var startedAt = time.Now()

// NewAdminRouter exposes health, prometheus metrics, and session status.
// When guard is non-nil, everything but /healthz requires a bearer token.
func NewAdminRouter(logger zerolog.Logger, status StatusFunc, guard auth.Validator) http.Handler {
	RegisterMetrics()
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(RequestMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"uptime": time.Since(startedAt).String(),
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(guard))
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
		r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
			list := []SessionStatus{}
			if status != nil {
				list = append(list, status()...)
			}
			writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
