package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Projector/internal/accuracy"
	"github.com/Alias1177/Projector/internal/database"
	"github.com/Alias1177/Projector/internal/lifecycle"
	"github.com/Alias1177/Projector/models"
)

// Pinger reports backend health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Scanner runs one lifecycle pass
type Scanner interface {
	Scan(ctx context.Context) (lifecycle.Report, error)
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	store   database.Store
	health  Pinger
	scanner Scanner
	logger  zerolog.Logger
}

// NewHandler creates a new handler. scanner may be nil, which disables POST /scan.
func NewHandler(store database.Store, health Pinger, scanner Scanner) *Handler {
	return &Handler{
		store:   store,
		health:  health,
		scanner: scanner,
		logger:  log.With().Str("component", "api").Logger(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.health != nil {
		if err := h.health.Ping(ctx); err != nil {
			h.respondError(w, http.StatusServiceUnavailable, "database unhealthy", err)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "projections-api",
	})
}

// GetProjections lists projections
// Query params: status (comma separated), player, date
func (h *Handler) GetProjections(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	filter, err := parseFilter(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	records, err := h.store.Find(ctx, filter)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve projections", err)
		return
	}
	if records == nil {
		records = []models.Record{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"projections": records,
		"count":       len(records),
	})
}

// GetAccuracy reports prediction error over completed projections
func (h *Handler) GetAccuracy(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	records, err := h.store.Find(ctx, database.Filter{
		Statuses: []models.Status{models.StatusCompleted},
		Player:   r.URL.Query().Get("player"),
	})
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve projections", err)
		return
	}

	respondJSON(w, http.StatusOK, accuracy.Compute(records))
}

// PostScan runs a lifecycle pass on demand
func (h *Handler) PostScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		h.respondError(w, http.StatusNotImplemented, "scanning is disabled", nil)
		return
	}

	report, err := h.scanner.Scan(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrCorruptState) {
			status = http.StatusConflict
		}
		h.respondError(w, status, "scan failed", err)
		return
	}

	respondJSON(w, http.StatusOK, newScanResponse(report))
}

type scanFailure struct {
	Player   string `json:"player"`
	GameDate string `json:"game_date"`
	Error    string `json:"error"`
}

type scanResponse struct {
	PassID      string              `json:"pass_id"`
	Scanned     int                 `json:"scanned"`
	ToLive      int                 `json:"to_live"`
	ToCompleted int                 `json:"to_completed"`
	Unchanged   int                 `json:"unchanged"`
	Malformed   int                 `json:"malformed"`
	Failures    []scanFailure       `json:"failures"`
	Transitions []models.Transition `json:"transitions"`
}

func newScanResponse(report lifecycle.Report) scanResponse {
	resp := scanResponse{
		PassID:      report.PassID,
		Scanned:     report.Scanned,
		ToLive:      report.ToLive,
		ToCompleted: report.ToCompleted,
		Unchanged:   report.Unchanged,
		Malformed:   report.Malformed,
		Failures:    []scanFailure{},
		Transitions: report.Transitions,
	}
	if resp.Transitions == nil {
		resp.Transitions = []models.Transition{}
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, scanFailure{
			Player:   f.Key.Player,
			GameDate: models.FormatDate(f.Key.GameDate),
			Error:    f.Err.Error(),
		})
	}
	return resp
}

func parseFilter(r *http.Request) (database.Filter, error) {
	q := r.URL.Query()
	filter := database.Filter{Player: q.Get("player")}

	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := models.ParseStatus(part)
			if err != nil {
				return filter, err
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := q.Get("date"); raw != "" {
		date, err := models.ParseDate(raw)
		if err != nil {
			return filter, err
		}
		filter.GameDate = date
	}
	return filter, nil
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("error encoding response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		h.logger.Error().Err(err).Int("status", status).Msg(message)
	}
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
