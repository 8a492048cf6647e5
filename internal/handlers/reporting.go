package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/models"
	"github.com/NAOUI1/fx-pipeline-data-warehouse/internal/warehouse"
)

// ReportingHandler exposes read-only warehouse state: latest rates,
// per-date completeness and the execution log. It never writes.
type ReportingHandler struct {
	sync     *warehouse.Sync
	universe models.Universe
}

// NewReportingHandler creates a reporting handler.
func NewReportingHandler(sync *warehouse.Sync, universe models.Universe) *ReportingHandler {
	return &ReportingHandler{sync: sync, universe: universe}
}

// Register mounts the reporting routes on the router.
func (h *ReportingHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/rates/latest", h.HandleLatestRates).Methods(http.MethodGet)
	r.HandleFunc("/api/rates/{base}/{quote}", h.HandlePairHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/completeness", h.HandleCompleteness).Methods(http.MethodGet)
	r.HandleFunc("/api/runs", h.HandleRuns).Methods(http.MethodGet)
}

// GET /health
func (h *ReportingHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "fx-pipeline",
	})
}

// GET /api/rates/latest
func (h *ReportingHandler) HandleLatestRates(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	rates, err := h.sync.LatestRates(r.Context())
	if err != nil {
		http.Error(w, "Failed to load latest rates", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(rates)
}

// GET /api/rates/{base}/{quote}?start=2024-01-01&end=2024-12-31
func (h *ReportingHandler) HandlePairHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	vars := mux.Vars(r)
	base := models.Currency(vars["base"])
	quote := models.Currency(vars["quote"])
	if !h.universe.Contains(base) || !h.universe.Contains(quote) || base == quote {
		http.Error(w, "Unknown currency pair", http.StatusBadRequest)
		return
	}

	start, end, ok := parseRange(r)
	if !ok {
		http.Error(w, "Invalid date range", http.StatusBadRequest)
		return
	}

	rates, err := h.sync.PairHistory(r.Context(), base, quote, start, end)
	if err != nil {
		http.Error(w, "Failed to load pair history", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(rates)
}

// GET /api/completeness?start=2024-01-01&end=2024-12-31
func (h *ReportingHandler) HandleCompleteness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	start, end, ok := parseRange(r)
	if !ok {
		http.Error(w, "Invalid date range", http.StatusBadRequest)
		return
	}

	report, err := h.sync.CompletenessReport(r.Context(), h.universe, start, end)
	if err != nil {
		http.Error(w, "Failed to build completeness report", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(report)
}

// GET /api/runs?limit=20
func (h *ReportingHandler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := h.sync.RecentRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(runs)
}

// parseRange reads optional start/end query params, defaulting to the
// last year ending today.
func parseRange(r *http.Request) (start, end time.Time, ok bool) {
	end = models.DateOnly(time.Now().UTC())
	start = end.AddDate(-1, 0, 0)

	q := r.URL.Query()
	if raw := q.Get("start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return start, end, false
		}
		start = models.DateOnly(parsed)
	}
	if raw := q.Get("end"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return start, end, false
		}
		end = models.DateOnly(parsed)
	}
	return start, end, !end.Before(start)
}
