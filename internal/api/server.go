// Package api exposes the dispatch operations over HTTP JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fleetops/internal/dispatch"
	"fleetops/internal/manifest"
	"fleetops/internal/metrics"
	"fleetops/internal/model"
)

const dateQueryLayout = "2006-01-02"

// TripReader lists materialized trips for the read endpoints.
type TripReader interface {
	ListTrips(ctx context.Context, date time.Time) ([]model.Trip, error)
}

// Server is the planner/ops HTTP surface.
type Server struct {
	svc      *dispatch.Service
	trips    TripReader
	exporter *manifest.Exporter
	apiKey   string
	logger   *zerolog.Logger
}

// NewServer creates the API server. An empty apiKey disables the key check.
func NewServer(svc *dispatch.Service, trips TripReader, exporter *manifest.Exporter, apiKey string, logger *zerolog.Logger) *Server {
	return &Server{
		svc:      svc,
		trips:    trips,
		exporter: exporter,
		apiKey:   apiKey,
		logger:   logger,
	}
}

// Routes returns the configured mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/schedules", s.auth(s.handleSchedules))
	mux.HandleFunc("/api/v1/schedules/", s.auth(s.handleScheduleByID))
	mux.HandleFunc("/api/v1/candidates", s.auth(s.handleCandidates))
	mux.HandleFunc("/api/v1/trips", s.auth(s.handleTrips))
	mux.HandleFunc("/api/v1/trips/synthesize", s.auth(s.handleSynthesize))
	mux.HandleFunc("/api/v1/trips/manifest", s.auth(s.handleManifest))
	return mux
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

// handleSchedules handles POST (upsert) and GET (list by date).
func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleUpsertSchedule(w, r)
	case http.MethodGet:
		s.handleListSchedules(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// UpsertScheduleRequest is the body for POST /api/v1/schedules.
type UpsertScheduleRequest struct {
	ID             string `json:"id,omitempty"`
	OperatingDate  string `json:"operating_date"` // Format: YYYY-MM-DD
	RouteID        string `json:"route_id"`
	DepartureTime  string `json:"departure_time"` // Format: HH:MM
	VehicleID      string `json:"vehicle_id"`
	DriverID       string `json:"driver_id"`
	CustomerCareID string `json:"customer_care_id,omitempty"`
	Capacity       int    `json:"capacity,omitempty"` // 0 copies the vehicle capacity
	Status         string `json:"status,omitempty"`
}

func (s *Server) handleUpsertSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedules_upsert")

	var req UpsertScheduleRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, err := time.Parse(dateQueryLayout, req.OperatingDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid operating_date; expected YYYY-MM-DD")
		return
	}

	sc, err := s.svc.UpsertSchedule(r.Context(), dispatch.ScheduleInput{
		ID:             req.ID,
		OperatingDate:  date,
		RouteID:        req.RouteID,
		DepartureTime:  req.DepartureTime,
		VehicleID:      req.VehicleID,
		DriverID:       req.DriverID,
		CustomerCareID: req.CustomerCareID,
		Capacity:       req.Capacity,
		Status:         req.Status,
	})
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}

	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, sc)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedules_list")

	date, ok := parseDateParam(w, r, "date")
	if !ok {
		return
	}

	schedules, err := s.svc.ListSchedules(r.Context(), date,
		r.URL.Query().Get("status"), r.URL.Query().Get("vehicle_id"))
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	if schedules == nil {
		schedules = []model.Schedule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}

func (s *Server) handleScheduleByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_get")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/schedules/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	sc, err := s.svc.GetSchedule(r.Context(), id)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// handleCandidates ranks assignable vehicles for a slot.
// GET /api/v1/candidates?terminal=Kigali&date=YYYY-MM-DD&route_id=R1&capacity=30
func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("candidates")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date, ok := parseDateParam(w, r, "date")
	if !ok {
		return
	}
	capacity, err := strconv.Atoi(r.URL.Query().Get("capacity"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid capacity; expected an integer")
		return
	}

	candidates, err := s.svc.RankCandidates(r.Context(),
		r.URL.Query().Get("terminal"), date, r.URL.Query().Get("route_id"), capacity)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

// SynthesizeRequest is the body for POST /api/v1/trips/synthesize.
type SynthesizeRequest struct {
	Date string `json:"date"` // Format: YYYY-MM-DD
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("trips_synthesize")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req SynthesizeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, err := time.Parse(dateQueryLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	result, err := s.svc.SynthesizeTrips(r.Context(), date)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrips(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("trips_list")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date, ok := parseDateParam(w, r, "date")
	if !ok {
		return
	}

	trips, err := s.trips.ListTrips(r.Context(), date)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	if trips == nil {
		trips = []model.Trip{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trips": trips})
}

// handleManifest streams the day manifest workbook.
// GET /api/v1/trips/manifest?date=YYYY-MM-DD
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("trips_manifest")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date, ok := parseDateParam(w, r, "date")
	if !ok {
		return
	}

	trips, err := s.trips.ListTrips(r.Context(), date)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}

	filename := fmt.Sprintf("manifest_%s.xlsx", date.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := s.exporter.WriteDay(r.Context(), date, trips, w); err != nil {
		s.logger.Error().Err(err).Msg("manifest export failed")
	}
}

func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		writeError(w, http.StatusBadRequest, name+" query parameter is required")
		return time.Time{}, false
	}
	date, err := time.Parse(dateQueryLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+"; expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

// writeDispatchError maps the dispatch error taxonomy onto HTTP statuses.
// Conflicts carry the colliding resource so the planner can re-rank.
func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	var ce *dispatch.ConflictError
	if errors.As(err, &ce) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":       ce.Error(),
			"resource":    ce.Resource,
			"resource_id": ce.ResourceID,
			"blocked_by":  ce.ScheduleID,
		})
		return
	}
	switch {
	case dispatch.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case dispatch.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case dispatch.IsTransient(err):
		writeError(w, http.StatusServiceUnavailable, "storage busy; retry with backoff")
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
