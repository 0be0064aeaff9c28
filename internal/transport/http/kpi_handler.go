package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"launchpulse/internal/analytics"
	apperrors "launchpulse/internal/errors"
	"launchpulse/internal/services"
)

// kpiQuery is the validated shape of the shared analytics query string.
type kpiQuery struct {
	UseCase         string `validate:"max=200"`
	Period          string `validate:"omitempty,period"`
	KPI             string `validate:"omitempty,kpi"`
	BusinessSegment string `validate:"max=100"`
	DeviceType      string `validate:"max=100"`
	PageType        string `validate:"max=100"`
}

// KPIHandler serves the analytics endpoints: summary, daily series,
// TY/LY comparison and the lift analysis report.
type KPIHandler struct {
	service      *services.KPIService
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewKPIHandler creates a new KPI handler
func NewKPIHandler(service *services.KPIService, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *KPIHandler {
	v := validator.New()
	// "period" accepts the "all" sentinel or a positive day count.
	_ = v.RegisterValidation("period", func(fl validator.FieldLevel) bool {
		_, err := analytics.ParsePeriod(fl.Field().String())
		return err == nil
	})
	// "kpi" accepts any of the six metric names, case-insensitive.
	_ = v.RegisterValidation("kpi", func(fl validator.FieldLevel) bool {
		_, err := analytics.ParseKPI(fl.Field().String())
		return err == nil
	})
	return &KPIHandler{
		service:      service,
		validate:     v,
		logger:       logger.With(slog.String("component", "kpi_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the KPI routes
func (h *KPIHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/summary", h.GetSummary)
	r.Get("/daily", h.GetDaily)
	r.Get("/comparison", h.GetComparison)
	r.Get("/analysis", h.GetAnalysis)
	r.Post("/report", h.SendReport)

	return r
}

// parseQuery validates the shared query parameters and resolves them into
// engine types.
func (h *KPIHandler) parseQuery(r *http.Request) (services.AnalysisRequest, error) {
	q := kpiQuery{
		UseCase:         r.URL.Query().Get("use_case"),
		Period:          r.URL.Query().Get("period"),
		KPI:             r.URL.Query().Get("kpi"),
		BusinessSegment: r.URL.Query().Get("business_segment"),
		DeviceType:      r.URL.Query().Get("device_type"),
		PageType:        r.URL.Query().Get("page_type"),
	}
	if err := h.validate.Struct(q); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			switch errs[0].Field() {
			case "Period":
				return services.AnalysisRequest{}, apperrors.ErrValidation("period", `must be "all" or a positive day count`)
			case "KPI":
				return services.AnalysisRequest{}, apperrors.ErrValidation("kpi", "must be one of visits, orders, revenue, cvr, aov, rpv")
			default:
				return services.AnalysisRequest{}, apperrors.ErrValidation(errs[0].Field(), "invalid value")
			}
		}
		return services.AnalysisRequest{}, apperrors.InvalidRequestWithError(err)
	}

	period, err := analytics.ParsePeriod(q.Period)
	if err != nil {
		return services.AnalysisRequest{}, apperrors.ErrValidation("period", err.Error())
	}

	req := services.AnalysisRequest{
		UseCase: q.UseCase,
		Period:  period,
		Filter: analytics.SegmentFilter{
			BusinessSegment: q.BusinessSegment,
			DeviceType:      q.DeviceType,
			PageType:        q.PageType,
		},
	}
	if q.KPI != "" {
		k, err := analytics.ParseKPI(q.KPI)
		if err != nil {
			return services.AnalysisRequest{}, apperrors.ErrValidation("kpi", err.Error())
		}
		req.KPI = &k
	}
	return req, nil
}

// GetSummary handles GET /api/kpi/summary
func (h *KPIHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), req.UseCase, req.Period, req.Filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// GetDaily handles GET /api/kpi/daily
func (h *KPIHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rows, err := h.service.Daily(r.Context(), req.UseCase, req.Period, req.Filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"use_case": req.UseCase,
		"days":     rows,
	})
}

// GetComparison handles GET /api/kpi/comparison. The use_case parameter
// is required: aligning TY and LY needs a launch anchor.
func (h *KPIHandler) GetComparison(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if req.UseCase == "" {
		h.errorHandler.HandleError(w, r, apperrors.ErrValidation("use_case", "use_case is required"))
		return
	}

	rows, err := h.service.Comparison(r.Context(), req.UseCase, req.Period, req.Filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"use_case": req.UseCase,
		"points":   rows,
	})
}

// GetAnalysis handles GET /api/kpi/analysis
func (h *KPIHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	results, err := h.service.Analysis(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"count":   len(results),
		"results": results,
	})
}

// SendReport handles POST /api/kpi/report. It assembles the lift report
// for one use case and dispatches it to the configured stakeholders.
func (h *KPIHandler) SendReport(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if req.UseCase == "" {
		h.errorHandler.HandleError(w, r, apperrors.ErrValidation("use_case", "use_case is required"))
		return
	}

	msg, err := h.service.LaunchReport(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"sent":    true,
		"message": msg,
	})
}
