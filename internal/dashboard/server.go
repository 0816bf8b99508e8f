// Package dashboard serves the browser dashboard's data plane: backend
// connectivity state, health-check history, task lists and analytics,
// all fetched through the resilient client so the browser never talks
// to the backend directly.
package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskdeck/taskdeck/internal/health"
	"github.com/taskdeck/taskdeck/internal/store"
	"github.com/taskdeck/taskdeck/internal/tasks"
)

// Server is the dashboard sidecar HTTP server.
type Server struct {
	monitor        *health.Monitor
	svc            *tasks.Service
	history        *store.DB // nil when history persistence is disabled
	metricsEnabled bool
}

// NewServer creates a dashboard server.
func NewServer(monitor *health.Monitor, svc *tasks.Service) *Server {
	return &Server{monitor: monitor, svc: svc}
}

// SetHistory enables the health history endpoint.
func (s *Server) SetHistory(db *store.DB) { s.history = db }

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	// Liveness of the sidecar itself, not of the backend.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/history", s.handleHistory)
		r.Get("/tasks", s.handleTasks)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/errors", s.handleErrors)
		r.Post("/check", s.handleForceCheck)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// stateResponse is the connectivity snapshot plus derived indicator data.
type stateResponse struct {
	health.State
	ResponseTimeMS int64  `json:"response_time_ms"`
	Stale          bool   `json:"stale"`
	Warning        bool   `json:"warning"`
	StatusText     string `json:"status_text"`
}

func (s *Server) stateResponse() stateResponse {
	st := s.monitor.State()
	return stateResponse{
		State:          st,
		ResponseTimeMS: st.ResponseTime.Milliseconds(),
		Stale:          s.monitor.Stale(),
		Warning:        s.monitor.ShouldWarn(),
		StatusText:     s.monitor.StatusText(),
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *Server) handleForceCheck(w http.ResponseWriter, r *http.Request) {
	res := s.monitor.ForceCheck(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"skipped": res.Skipped,
		"state":   res.State,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "health history is not enabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.history.History(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checks": records})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.svc.ListTasks(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.GetTaskAnalytics(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"errors": s.svc.Client().ErrorLog().Entries(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers so the browser dashboard can call the
// sidecar from a different origin during local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
