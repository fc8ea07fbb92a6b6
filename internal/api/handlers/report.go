package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/store"
	"github.com/wonny/demandcast/pkg/logger"
)

// ReportHandler serves evaluation reports
// ⭐ SSOT: 리포트 API 핸들러는 이 구조체에서만
type ReportHandler struct {
	reader contracts.ReportReader
	logger *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reader contracts.ReportReader, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reader: reader,
		logger: log,
	}
}

// Latest returns the most recent report
// GET /api/reports/latest
func (h *ReportHandler) Latest(w http.ResponseWriter, r *http.Request) {
	report, err := h.reader.LatestReport(r.Context())
	h.respondReport(w, r, report, err, "latest")
}

// ByRunID returns one run's report
// GET /api/reports/{run_id}
func (h *ReportHandler) ByRunID(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	if runID == "" {
		respondError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	report, err := h.reader.ReportByRunID(r.Context(), runID)
	h.respondReport(w, r, report, err, runID)
}

func (h *ReportHandler) respondReport(w http.ResponseWriter, r *http.Request, report *contracts.EvaluationReport, err error, ref string) {
	if store.IsNotFound(err) {
		respondError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		requestLogger(r, h.logger).WithError(err).WithField("report", ref).Error("Failed to load report")
		respondError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	respondJSON(w, http.StatusOK, report)
}
