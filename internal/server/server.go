// Package server exposes the aggregation and alerting engine over a small
// JSON HTTP API for the dashboard and profile screens.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/wattsonlabs/wattson/pkg/aggregate"
	"github.com/wattsonlabs/wattson/pkg/alerting"
	"github.com/wattsonlabs/wattson/pkg/model"
	"github.com/wattsonlabs/wattson/pkg/storage"
)

const requestTimeout = 10 * time.Second

// Server provides usage summary, logging, backfill, and alert endpoints.
type Server struct {
	agg        *aggregate.Aggregator
	eval       *alerting.Evaluator
	checker    *alerting.Checker
	store      storage.Store
	thresholds model.ThresholdConfig
	router     *mux.Router
	logger     *slog.Logger
}

// NewServer creates an API server with the configured default thresholds.
func NewServer(agg *aggregate.Aggregator, eval *alerting.Evaluator, checker *alerting.Checker, store storage.Store, thresholds model.ThresholdConfig, logger *slog.Logger) *Server {
	s := &Server{
		agg:        agg,
		eval:       eval,
		checker:    checker,
		store:      store,
		thresholds: thresholds,
		router:     mux.NewRouter(),
		logger:     logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/usage/daily", s.handleDaily).Methods(http.MethodGet)
	api.HandleFunc("/usage/hourly", s.handleHourly).Methods(http.MethodGet)
	api.HandleFunc("/usage/month", s.handleMonth).Methods(http.MethodGet)
	api.HandleFunc("/usage", s.handleLogUsage).Methods(http.MethodPost)
	api.HandleFunc("/backfill", s.handleBackfill).Methods(http.MethodPost)
	api.HandleFunc("/check", s.handleCheck).Methods(http.MethodPost)
	api.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}/read", s.handleMarkRead).Methods(http.MethodPost)
}

// Handler returns the HTTP handler with request logging and panic recovery.
func (s *Server) Handler() http.Handler {
	return handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stderr, s.router))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user parameter required", http.StatusBadRequest)
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "days must be a non-negative integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	writeJSON(w, http.StatusOK, s.agg.DailyUsage(ctx, userID, days))
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user parameter required", http.StatusBadRequest)
		return
	}

	var date time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(model.DateLayout, raw, time.Local)
		if err != nil {
			http.Error(w, "date must be formatted yyyy-mm-dd", http.StatusBadRequest)
			return
		}
		date = parsed
	}

	writeJSON(w, http.StatusOK, s.agg.HourlyUsage(ctx, userID, date))
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user parameter required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, s.agg.MonthTotal(ctx, userID))
}

type logUsageRequest struct {
	UserID    string    `json:"user_id"`
	DeviceID  string    `json:"device_id,omitempty"`
	EnergyKWh float64   `json:"energy_kwh"`
	Cost      float64   `json:"cost"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func (s *Server) handleLogUsage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req logUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	record, err := s.agg.LogUsage(ctx, req.UserID, req.DeviceID, req.EnergyKWh, req.Cost, req.Timestamp)
	if err != nil {
		s.logger.Error("log usage", "user_id", req.UserID, "error", err)
		http.Error(w, "failed to record usage", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

type backfillRequest struct {
	UserID string  `json:"user_id"`
	Rate   float64 `json:"rate,omitempty"`
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	devices, err := s.store.ListDevices(ctx, req.UserID)
	if err != nil {
		s.logger.Error("list devices for backfill", "user_id", req.UserID, "error", err)
		http.Error(w, "failed to load devices", http.StatusInternalServerError)
		return
	}

	rate := req.Rate
	if rate <= 0 {
		rate = s.thresholds.ElectricityRate
	}

	if err := s.agg.Backfill(ctx, req.UserID, devices, rate); err != nil {
		s.logger.Error("backfill", "user_id", req.UserID, "error", err)
		http.Error(w, "backfill failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "generated"})
}

type checkRequest struct {
	UserID        string   `json:"user_id"`
	MonthlyBudget *float64 `json:"monthly_budget,omitempty"`
	HighUsageKWh  *float64 `json:"high_usage_kwh,omitempty"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	cfg := s.thresholds
	if req.MonthlyBudget != nil {
		cfg.MonthlyBudget = *req.MonthlyBudget
	}
	if req.HighUsageKWh != nil {
		cfg.HighUsageKWh = *req.HighUsageKWh
	}

	s.checker.Run(ctx, req.UserID, cfg)
	writeJSON(w, http.StatusOK, map[string]string{"status": "checked"})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user parameter required", http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	alerts := s.eval.Alerts(ctx, userID, limit)
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := mux.Vars(r)["id"]
	if err := s.eval.MarkRead(ctx, id); err != nil {
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
