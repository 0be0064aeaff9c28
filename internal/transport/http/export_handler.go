package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "launchpulse/internal/errors"
	"launchpulse/internal/exporter"
	"launchpulse/internal/services"
)

// ExportHandler serves downloadable renditions of the lift report.
type ExportHandler struct {
	kpi          *KPIHandler
	service      *services.KPIService
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewExportHandler creates a new export handler. It shares the KPI
// handler's query parsing so export filters behave exactly like the JSON
// endpoints.
func NewExportHandler(kpi *KPIHandler, service *services.KPIService, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		kpi:          kpi,
		service:      service,
		logger:       logger.With(slog.String("component", "export_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the export routes
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/analysis.csv", h.GetAnalysisCSV)
	return r
}

// GetAnalysisCSV handles GET /api/export/analysis.csv
func (h *ExportHandler) GetAnalysisCSV(w http.ResponseWriter, r *http.Request) {
	req, err := h.kpi.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	results, err := h.service.Analysis(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := fmt.Sprintf("launch_analysis_%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := exporter.WriteAnalysisCSV(w, results); err != nil {
		// Headers are already out; all we can do is log.
		h.logger.ErrorContext(r.Context(), "failed to stream analysis csv",
			slog.String("error", err.Error()))
	}
}
