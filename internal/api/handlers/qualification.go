package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/store"
	"github.com/wonny/demandcast/pkg/logger"
)

// lookupTTL bounds how long a per-product decision is served from memory
const lookupTTL = time.Minute

// QualificationHandler serves forecast/no-forecast decisions
type QualificationHandler struct {
	reader contracts.ReportReader
	lookup *expirable.LRU[string, contracts.QualificationResult]
	logger *logger.Logger
}

// NewQualificationHandler creates a handler with a per-product LRU of cacheSize entries
func NewQualificationHandler(reader contracts.ReportReader, cacheSize int, log *logger.Logger) *QualificationHandler {
	if cacheSize < 1 {
		cacheSize = 1
	}
	return &QualificationHandler{
		reader: reader,
		lookup: expirable.NewLRU[string, contracts.QualificationResult](cacheSize, nil, lookupTTL),
		logger: log,
	}
}

// qualificationList is the response of List
type qualificationList struct {
	RunID   string                          `json:"run_id"`
	Count   int                             `json:"count"`
	Results []contracts.QualificationResult `json:"results"`
}

// List returns one run's decisions, the latest run by default
// GET /api/qualifications?run_id=...&qualified=true
func (h *QualificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	onlyQualified := false
	if v := q.Get("qualified"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "qualified must be a boolean")
			return
		}
		onlyQualified = parsed
	}

	runID := q.Get("run_id")
	if runID == "" {
		latest, err := h.reader.LatestReport(ctx)
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "no runs yet")
			return
		}
		if err != nil {
			requestLogger(r, h.logger).WithError(err).Error("Failed to load latest report")
			respondError(w, http.StatusInternalServerError, "failed to load latest run")
			return
		}
		runID = latest.RunID
	}

	results, err := h.reader.ListQualifications(ctx, runID, onlyQualified)
	if store.IsNotFound(err) {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		requestLogger(r, h.logger).WithError(err).WithField("run_id", runID).Error("Failed to list qualifications")
		respondError(w, http.StatusInternalServerError, "failed to list qualifications")
		return
	}

	respondJSON(w, http.StatusOK, qualificationList{
		RunID:   runID,
		Count:   len(results),
		Results: results,
	})
}

// ByProduct returns the newest decision for one product
// GET /api/qualifications/{product_id}
func (h *QualificationHandler) ByProduct(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["product_id"]
	if productID == "" {
		respondError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	if cached, ok := h.lookup.Get(productID); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	result, err := h.reader.LatestQualification(r.Context(), productID)
	if store.IsNotFound(err) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		requestLogger(r, h.logger).WithError(err).WithField("product_id", productID).Error("Failed to load qualification")
		respondError(w, http.StatusInternalServerError, "failed to load qualification")
		return
	}

	h.lookup.Add(productID, *result)
	respondJSON(w, http.StatusOK, result)
}

// Purge drops every cached decision (after a new run)
func (h *QualificationHandler) Purge() {
	h.lookup.Purge()
}
