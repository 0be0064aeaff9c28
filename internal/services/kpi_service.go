package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"launchpulse/internal/analytics"
	"launchpulse/internal/dataset"
	apperrors "launchpulse/internal/errors"
	"launchpulse/internal/notify"
)

// RefreshNotifier is told when the dataset snapshot has been replaced so
// connected dashboards can reload. Implemented by the websocket hub.
type RefreshNotifier interface {
	NotifyDatasetRefresh(status DataStatus)
}

// AnalysisRequest carries the query parameters of a lift analysis call.
// A nil KPI means all six KPIs.
type AnalysisRequest struct {
	UseCase string
	Period  analytics.Period
	Filter  analytics.SegmentFilter
	KPI     *analytics.KPI
}

// UseCaseInfo describes one configured launch for listing endpoints.
type UseCaseInfo struct {
	UseCase      string   `json:"use_case"`
	LaunchDate   string   `json:"launch_date"`
	Description  string   `json:"description,omitempty"`
	Stakeholders []string `json:"stakeholders,omitempty"`
}

// DataStatus describes the current snapshot for the status endpoint and
// refresh broadcasts.
type DataStatus struct {
	HasData     bool   `json:"has_data"`
	LastUpdated string `json:"last_updated,omitempty"`
	Records     int    `json:"records"`
	UseCases    int    `json:"use_cases"`
}

// UploadResult summarizes an accepted workbook upload.
type UploadResult struct {
	Records  int    `json:"records"`
	UseCases int    `json:"use_cases"`
	LoadedAt string `json:"loaded_at"`
}

// ComparisonRow is the wire shape of one day-offset of the TY/LY chart
// series. A nil KPI value means no observation existed on that offset for
// that year and serializes as null, never as zero.
type ComparisonRow struct {
	DayOffset int      `json:"day_offset"`
	DateTY    string   `json:"date_ty"`
	DateLY    string   `json:"date_ly"`
	VisitsTY  *float64 `json:"visits_ty"`
	VisitsLY  *float64 `json:"visits_ly"`
	OrdersTY  *float64 `json:"orders_ty"`
	OrdersLY  *float64 `json:"orders_ly"`
	RevenueTY *float64 `json:"revenue_ty"`
	RevenueLY *float64 `json:"revenue_ly"`
	CVRTY     *float64 `json:"cvr_ty"`
	CVRLY     *float64 `json:"cvr_ly"`
	AOVTY     *float64 `json:"aov_ty"`
	AOVLY     *float64 `json:"aov_ly"`
	RPVTY     *float64 `json:"rpv_ty"`
	RPVLY     *float64 `json:"rpv_ly"`
}

// DailyRow is the wire shape of one day of the daily chart series.
type DailyRow struct {
	Date    string  `json:"date"`
	UseCase string  `json:"use_case"`
	Visits  float64 `json:"visits"`
	Orders  float64 `json:"orders"`
	Revenue float64 `json:"revenue"`
	CVR     float64 `json:"cvr"`
	AOV     float64 `json:"aov"`
	RPV     float64 `json:"rpv"`
}

// KPIService orchestrates snapshot access, segment filtering and the
// analytics engine for the HTTP handlers.
type KPIService struct {
	store    *dataset.Store
	engine   *analytics.Engine
	notifier RefreshNotifier
	mailer   notify.Mailer
	dataFile string
	logger   *slog.Logger
}

// NewKPIService creates the KPI service. The notifier may be nil; dataFile
// is where accepted uploads are persisted so a restart can reload them, and
// may be empty to disable persistence.
func NewKPIService(store *dataset.Store, engine *analytics.Engine, notifier RefreshNotifier, dataFile string, logger *slog.Logger) *KPIService {
	if logger == nil {
		logger = slog.Default()
	}
	return &KPIService{
		store:    store,
		engine:   engine,
		notifier: notifier,
		mailer:   notify.NopMailer{},
		dataFile: dataFile,
		logger:   logger.With(slog.String("service", "kpi")),
	}
}

// SetMailer replaces the transport used for stakeholder reports. The
// default is a no-op mailer.
func (s *KPIService) SetMailer(m notify.Mailer) {
	if m != nil {
		s.mailer = m
	}
}

// snapshot returns the current dataset or the no-dataset error.
func (s *KPIService) snapshot() (*dataset.Snapshot, error) {
	snap, ok := s.store.Snapshot()
	if !ok {
		return nil, apperrors.ErrNoDataset
	}
	return snap, nil
}

// Analysis computes the pre/post TY/LY lift report for the configured use
// cases, optionally restricted to one use case and a segment subset.
func (s *KPIService) Analysis(ctx context.Context, req AnalysisRequest) ([]analytics.AnalysisResult, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	launches := snap.Launches
	if req.UseCase != "" {
		launch, ok := snap.LaunchFor(req.UseCase)
		if !ok {
			return nil, apperrors.NotFoundError(fmt.Sprintf("use case %q", req.UseCase))
		}
		launches = []analytics.FeatureLaunch{launch}
	}

	results := s.engine.Analyze(snap.Observations, launches, req.Period, req.Filter)
	if req.KPI != nil {
		kept := results[:0]
		for _, r := range results {
			if r.KPI == req.KPI.Label() {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	s.logger.InfoContext(ctx, "analysis computed",
		slog.String("use_case", req.UseCase),
		slog.String("period", req.Period.String()),
		slog.Int("results", len(results)))
	return results, nil
}

// Summary rolls up totals and derived ratios over [launch, launch+period],
// or over the whole filtered set when no use case is given.
func (s *KPIService) Summary(ctx context.Context, useCase string, period analytics.Period, filter analytics.SegmentFilter) (analytics.Summary, error) {
	snap, err := s.snapshot()
	if err != nil {
		return analytics.Summary{}, err
	}

	rows := filter.Apply(snap.ObservationsFor(useCase))

	var launch time.Time
	if l, ok := snap.LaunchFor(useCase); ok {
		launch = l.LaunchDate
	}
	return s.engine.Summarize(rows, launch, period), nil
}

// Daily returns the per-day grouped series for charting, from the use
// case's launch forward when one is configured.
func (s *KPIService) Daily(ctx context.Context, useCase string, period analytics.Period, filter analytics.SegmentFilter) ([]DailyRow, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	rows := filter.Apply(snap.ObservationsFor(useCase))

	var launch time.Time
	if l, ok := snap.LaunchFor(useCase); ok {
		launch = l.LaunchDate
	}

	points := s.engine.DailySeries(rows, useCase, launch, period)
	out := make([]DailyRow, 0, len(points))
	for _, p := range points {
		out = append(out, DailyRow{
			Date:    p.Date.Format(analytics.ISODate),
			UseCase: p.UseCase,
			Visits:  p.Metrics.Visits,
			Orders:  p.Metrics.Orders,
			Revenue: p.Metrics.Revenue,
			CVR:     p.Metrics.CVR,
			AOV:     p.Metrics.AOV,
			RPV:     p.Metrics.RPV,
		})
	}
	return out, nil
}

// Comparison builds the day-offset aligned TY/LY series for one use case.
// A use case without a launch configuration yields an empty series.
func (s *KPIService) Comparison(ctx context.Context, useCase string, period analytics.Period, filter analytics.SegmentFilter) ([]ComparisonRow, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	rows := filter.Apply(snap.ObservationsFor(useCase))

	var launch time.Time
	if l, ok := snap.LaunchFor(useCase); ok {
		launch = l.LaunchDate
	}

	points := s.engine.Comparison(rows, launch, period)
	out := make([]ComparisonRow, 0, len(points))
	for _, p := range points {
		row := ComparisonRow{
			DayOffset: p.DayOffset,
			DateTY:    p.DateTY.Format(analytics.ISODate),
			DateLY:    p.DateLY.Format(analytics.ISODate),
		}
		fillSide(p.TY, &row.VisitsTY, &row.OrdersTY, &row.RevenueTY, &row.CVRTY, &row.AOVTY, &row.RPVTY)
		fillSide(p.LY, &row.VisitsLY, &row.OrdersLY, &row.RevenueLY, &row.CVRLY, &row.AOVLY, &row.RPVLY)
		out = append(out, row)
	}
	return out, nil
}

// fillSide flattens one year side of a comparison point into the nullable
// per-KPI wire fields; a nil side leaves every pointer nil.
func fillSide(m *analytics.DayMetrics, visits, orders, revenue, cvr, aov, rpv **float64) {
	if m == nil {
		return
	}
	v := func(x float64) *float64 { return &x }
	*visits = v(m.Visits)
	*orders = v(m.Orders)
	*revenue = v(m.Revenue)
	*cvr = v(m.CVR)
	*aov = v(m.AOV)
	*rpv = v(m.RPV)
}

// UseCases lists the configured launches in sheet order.
func (s *KPIService) UseCases(ctx context.Context) ([]UseCaseInfo, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	out := make([]UseCaseInfo, 0, len(snap.Launches))
	for _, l := range snap.Launches {
		out = append(out, UseCaseInfo{
			UseCase:      l.UseCase,
			LaunchDate:   analytics.Day(l.LaunchDate).Format(analytics.ISODate),
			Description:  l.Description,
			Stakeholders: l.Stakeholders,
		})
	}
	return out, nil
}

// PageTypes lists the distinct page types for the filter dropdown.
func (s *KPIService) PageTypes(ctx context.Context) ([]string, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.PageTypes(), nil
}

// Stakeholders returns the configured stakeholder emails for a use case.
func (s *KPIService) Stakeholders(ctx context.Context, useCase string) ([]string, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	launch, ok := snap.LaunchFor(useCase)
	if !ok {
		return nil, apperrors.NotFoundError(fmt.Sprintf("use case %q", useCase))
	}
	if launch.Stakeholders == nil {
		return []string{}, nil
	}
	return launch.Stakeholders, nil
}

// LaunchReport assembles the stakeholder lift report for one use case and
// hands it to the configured mailer. The assembled draft is returned so
// callers can show what was dispatched.
func (s *KPIService) LaunchReport(ctx context.Context, req AnalysisRequest) (notify.Message, error) {
	snap, err := s.snapshot()
	if err != nil {
		return notify.Message{}, err
	}

	launch, ok := snap.LaunchFor(req.UseCase)
	if !ok {
		return notify.Message{}, apperrors.NotFoundError(fmt.Sprintf("use case %q", req.UseCase))
	}

	results := s.engine.Analyze(snap.Observations, []analytics.FeatureLaunch{launch}, req.Period, req.Filter)

	msg, ok := notify.BuildLaunchReport(launch, results)
	if !ok {
		return notify.Message{}, apperrors.ErrValidation("use_case", "use case has no stakeholders configured")
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return notify.Message{}, fmt.Errorf("failed to send launch report: %w", err)
	}

	s.logger.InfoContext(ctx, "launch report dispatched",
		slog.String("use_case", req.UseCase),
		slog.Int("recipients", len(msg.To)))
	return msg, nil
}

// Status reports whether a dataset is loaded and how fresh it is. Never
// errors: an empty store reports has_data=false.
func (s *KPIService) Status(ctx context.Context) DataStatus {
	snap, ok := s.store.Snapshot()
	if !ok {
		return DataStatus{HasData: false}
	}
	return DataStatus{
		HasData:     true,
		LastUpdated: snap.LoadedAt.UTC().Format(time.RFC3339),
		Records:     snap.Records(),
		UseCases:    len(snap.Launches),
	}
}

// Upload parses a workbook, replaces the snapshot wholesale, persists the
// raw bytes for reload on restart and notifies connected clients. A parse
// failure leaves the current snapshot untouched.
func (s *KPIService) Upload(ctx context.Context, content []byte) (UploadResult, error) {
	snap, err := dataset.ParseWorkbook(bytes.NewReader(content), s.logger)
	if err != nil {
		return UploadResult{}, apperrors.MalformedWorkbookError(err)
	}

	s.store.Replace(snap)

	if s.dataFile != "" {
		if err := s.persist(content); err != nil {
			// The in-memory snapshot is already live; losing persistence
			// only costs the reload on next boot.
			s.logger.ErrorContext(ctx, "failed to persist uploaded workbook",
				slog.String("path", s.dataFile),
				slog.String("error", err.Error()))
		}
	}

	status := s.Status(ctx)
	if s.notifier != nil {
		s.notifier.NotifyDatasetRefresh(status)
	}

	s.logger.InfoContext(ctx, "dataset replaced",
		slog.Int("records", snap.Records()),
		slog.Int("use_cases", len(snap.Launches)))

	return UploadResult{
		Records:  snap.Records(),
		UseCases: len(snap.Launches),
		LoadedAt: snap.LoadedAt.UTC().Format(time.RFC3339),
	}, nil
}

// persist writes the workbook bytes atomically next to the target path.
func (s *KPIService) persist(content []byte) error {
	dir := filepath.Dir(s.dataFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := s.dataFile + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.dataFile)
}

// LoadFromDisk restores the last persisted workbook on startup. A missing
// file is not an error; the server simply starts without data.
func (s *KPIService) LoadFromDisk(ctx context.Context) error {
	if s.dataFile == "" {
		return nil
	}
	content, err := os.ReadFile(s.dataFile)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.InfoContext(ctx, "no persisted dataset found",
				slog.String("path", s.dataFile))
			return nil
		}
		return fmt.Errorf("failed to read persisted dataset: %w", err)
	}

	snap, err := dataset.ParseWorkbook(bytes.NewReader(content), s.logger)
	if err != nil {
		return fmt.Errorf("failed to parse persisted dataset: %w", err)
	}

	s.store.Replace(snap)
	s.logger.InfoContext(ctx, "persisted dataset loaded",
		slog.String("path", s.dataFile),
		slog.Int("records", snap.Records()),
		slog.Int("use_cases", len(snap.Launches)))
	return nil
}
