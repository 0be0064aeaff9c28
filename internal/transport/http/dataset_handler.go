package http

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "launchpulse/internal/errors"
	"launchpulse/internal/services"
)

// DatasetHandler serves the dataset lifecycle endpoints: workbook upload,
// use-case and page-type listings, data status and stakeholders.
type DatasetHandler struct {
	service        *services.KPIService
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apperrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service *services.KPIService, maxUploadBytes int64, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "dataset_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/upload", h.Upload)
	r.Get("/use-cases", h.GetUseCases)
	r.Get("/segments/page-types", h.GetPageTypes)
	r.Get("/data/status", h.GetStatus)
	r.Get("/stakeholders", h.GetStakeholders)

	return r
}

// Upload handles POST /api/upload. Accepts the workbook either as a
// multipart "file" part or as a raw body.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	content, err := h.readWorkbook(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Upload(r.Context(), content)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// readWorkbook extracts the uploaded workbook bytes from the request.
func (h *DatasetHandler) readWorkbook(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			if strings.Contains(err.Error(), "request body too large") {
				return nil, apperrors.ErrPayloadTooLarge
			}
			return nil, apperrors.ErrValidation("file", "multipart field \"file\" is required")
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			return nil, apperrors.InvalidRequestWithError(err)
		}
		return content, nil
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return nil, apperrors.ErrPayloadTooLarge
		}
		return nil, apperrors.InvalidRequestWithError(err)
	}
	if len(content) == 0 {
		return nil, apperrors.ErrValidation("body", "workbook payload is empty")
	}
	return content, nil
}

// GetUseCases handles GET /api/use-cases
func (h *DatasetHandler) GetUseCases(w http.ResponseWriter, r *http.Request) {
	cases, err := h.service.UseCases(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"count":     len(cases),
		"use_cases": cases,
	})
}

// GetPageTypes handles GET /api/segments/page-types
func (h *DatasetHandler) GetPageTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.PageTypes(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"page_types": types,
	})
}

// GetStatus handles GET /api/data/status
func (h *DatasetHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status(r.Context()))
}

// GetStakeholders handles GET /api/stakeholders?use_case=...
func (h *DatasetHandler) GetStakeholders(w http.ResponseWriter, r *http.Request) {
	useCase := r.URL.Query().Get("use_case")
	if useCase == "" {
		h.errorHandler.HandleError(w, r, apperrors.ErrValidation("use_case", "use_case is required"))
		return
	}

	emails, err := h.service.Stakeholders(r.Context(), useCase)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"use_case":     useCase,
		"stakeholders": emails,
	})
}
