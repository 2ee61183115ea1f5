// Package api serves health, metrics, and a small read/subscribe JSON API
// over the record store.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/incidentbot/internal/metrics"
	"github.com/user/incidentbot/internal/types"
)

const defaultIncidentLimit = 20

// Store is the part of the record store the API reads and writes.
type Store interface {
	types.SubscriberStore
	types.IncidentStore
	CountSubscribers(ctx context.Context) (int64, error)
	CountIncidents(ctx context.Context) (int64, error)
}

// SessionCounter reports how many dialogues are in progress.
type SessionCounter interface {
	Len() int
}

// Deps holds the API's collaborators. Metrics and Sessions may be nil.
type Deps struct {
	Store    Store
	Sessions SessionCounter
	Metrics  *metrics.Metrics
	Token    string
}

// Server is the HTTP handler for the bot's API.
type Server struct {
	deps   Deps
	router chi.Router
}

// NewServer builds the router.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	r.Route("/api", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/incidents", s.handleListIncidents)
		r.Get("/subscribers", s.handleListSubscribers)
		r.Post("/subscribers", s.handleAddSubscriber)
		r.Get("/status", s.handleStatus)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	limit := defaultIncidentLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			httpError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	incidents, err := s.deps.Store.ListRecentIncidents(r.Context(), limit)
	if err != nil {
		slog.Error("list incidents failed", "error", err)
		httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if incidents == nil {
		incidents = []*types.Incident{}
	}
	writeJSON(w, http.StatusOK, incidents)
}

func (s *Server) handleListSubscribers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.deps.Store.ListSubscribers(r.Context())
	if err != nil {
		slog.Error("list subscribers failed", "error", err)
		httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string][]int64{"subscribers": ids})
}

// addSubscriberRequest is the JSON body for POST /api/subscribers.
type addSubscriberRequest struct {
	UserID *int64 `json:"user_id"`
}

func (s *Server) handleAddSubscriber(w http.ResponseWriter, r *http.Request) {
	var req addSubscriberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID == nil || *req.UserID < 0 {
		httpError(w, http.StatusBadRequest, "user_id must be a non-negative integer")
		return
	}

	if err := s.deps.Store.AddSubscriber(r.Context(), *req.UserID); err != nil {
		slog.Error("add subscriber failed", "user_id", *req.UserID, "error", err)
		httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	slog.Info("subscriber added via api", "user_id", *req.UserID)
	writeJSON(w, http.StatusOK, map[string]int64{"user_id": *req.UserID})
}

type statusResponse struct {
	Subscribers    int64 `json:"subscribers"`
	Incidents      int64 `json:"incidents"`
	ActiveSessions int   `json:"active_sessions"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subs, err := s.deps.Store.CountSubscribers(ctx)
	if err != nil {
		slog.Error("count subscribers failed", "error", err)
		httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	incidents, err := s.deps.Store.CountIncidents(ctx)
	if err != nil {
		slog.Error("count incidents failed", "error", err)
		httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	resp := statusResponse{Subscribers: subs, Incidents: incidents}
	if s.deps.Sessions != nil {
		resp.ActiveSessions = s.deps.Sessions.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
