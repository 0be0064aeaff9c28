package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"launchpulse/internal/dataset"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     *dataset.Store
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Dataset   DataStatus             `json:"dataset"`
}

// NewHealthService creates a new health service
func NewHealthService(version string, store *dataset.Store, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		store:     store,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// Check reports process liveness plus dataset readiness. The server is
// healthy even with no dataset loaded; readiness is reported separately so
// dashboards can prompt for an upload.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		},
	}

	if snap, ok := s.store.Snapshot(); ok {
		status.Dataset = DataStatus{
			HasData:     true,
			LastUpdated: snap.LoadedAt.UTC().Format(time.RFC3339),
			Records:     snap.Records(),
			UseCases:    len(snap.Launches),
		}
	}
	return status
}
