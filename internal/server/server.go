// Package server exposes repository review metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SatelliteQE/repo-metrics/internal/ghclient"
	"github.com/SatelliteQE/repo-metrics/internal/metrics"
	"github.com/SatelliteQE/repo-metrics/internal/review"
)

// RosterResolver returns the tier roster configured for a repository.
type RosterResolver interface {
	Roster(ctx context.Context, org, repo string) (review.Roster, error)
}

type Server struct {
	agg          *metrics.Aggregator
	rosters      RosterResolver
	defaultCount int
	log          *slog.Logger
}

func New(agg *metrics.Aggregator, rosters RosterResolver, defaultCount int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{agg: agg, rosters: rosters, defaultCount: defaultCount, log: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/repos/{org}/{repo}", func(r chi.Router) {
		r.Get("/pr-metrics", s.prMetrics)
		r.Get("/reviewer-actions", s.reviewerActions)
	})
	return r
}

type prMetricsResponse struct {
	PullRequests []metrics.PRRow   `json:"pull_requests"`
	Stats        []metrics.StatRow `json:"stats"`
}

type reviewerActionsResponse struct {
	Tier1 []metrics.WeeklyRow `json:"tier1"`
	Tier2 []metrics.WeeklyRow `json:"tier2"`
}

func (s *Server) prMetrics(w http.ResponseWriter, r *http.Request) {
	org, repo, count, roster, ok := s.prepare(w, r)
	if !ok {
		return
	}
	rows, stats, err := s.agg.SinglePRMetrics(r.Context(), org, repo, count, roster)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prMetricsResponse{PullRequests: rows, Stats: stats})
}

func (s *Server) reviewerActions(w http.ResponseWriter, r *http.Request) {
	org, repo, count, roster, ok := s.prepare(w, r)
	if !ok {
		return
	}
	tier1, tier2, err := s.agg.ReviewerActions(r.Context(), org, repo, count, roster)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewerActionsResponse{Tier1: tier1, Tier2: tier2})
}

// prepare reads path and query parameters and resolves the roster.
// It writes the error response itself and reports ok=false on failure.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request) (org, repo string, count int, roster review.Roster, ok bool) {
	org, repo = chi.URLParam(r, "org"), chi.URLParam(r, "repo")

	count = s.defaultCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_COUNT", "count must be a positive integer")
			return "", "", 0, review.Roster{}, false
		}
		count = n
	}

	roster, err := s.rosters.Roster(r.Context(), org, repo)
	if err != nil {
		s.fail(w, r, err)
		return "", "", 0, review.Roster{}, false
	}
	return org, repo, count, roster, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ghclient.ErrRosterNotFound):
		return http.StatusNotFound, "ROSTER_NOT_FOUND"
	case errors.Is(err, ghclient.ErrRepositoryNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, metrics.ErrInvalidCount):
		return http.StatusBadRequest, "INVALID_COUNT"
	case errors.Is(err, metrics.ErrNoValues):
		return http.StatusUnprocessableEntity, "NO_VALUES"
	default:
		return http.StatusBadGateway, "UPSTREAM"
	}
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	var e errorResponse
	e.Error.Code = code
	e.Error.Message = msg
	writeJSON(w, status, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
