package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"launchpulse/internal/analytics"
	"launchpulse/internal/dataset"
	apperrors "launchpulse/internal/errors"
	"launchpulse/internal/notify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(s string) time.Time {
	d, err := time.Parse(analytics.ISODate, s)
	if err != nil {
		panic(err)
	}
	return d
}

func obs(date, useCase string, visits, orders, revenue float64) analytics.DailyObservation {
	return analytics.DailyObservation{
		Date:            day(date),
		UseCase:         useCase,
		Visits:          visits,
		Orders:          orders,
		Revenue:         revenue,
		BusinessSegment: analytics.SegmentAll,
		DeviceType:      analytics.SegmentAll,
		PageType:        analytics.SegmentAll,
	}
}

// seededService returns a KPI service over a store holding a small
// checkout dataset launched 2024-01-01 with data through 2024-01-06.
func seededService(t *testing.T) (*KPIService, *dataset.Store) {
	t.Helper()
	store := dataset.NewStore()
	store.Replace(&dataset.Snapshot{
		Observations: []analytics.DailyObservation{
			obs("2023-12-30", "checkout", 80, 4, 400),
			obs("2024-01-01", "checkout", 100, 5, 500),
			obs("2024-01-03", "checkout", 50, 0, 0),
			obs("2024-01-06", "checkout", 70, 7, 700),
			obs("2024-01-02", "search", 10, 1, 10),
		},
		Launches: []analytics.FeatureLaunch{
			{
				UseCase:      "checkout",
				LaunchDate:   day("2024-01-01"),
				Description:  "new checkout flow",
				Stakeholders: []string{"a@x.com", "b@y.com"},
			},
		},
	})
	svc := NewKPIService(store, analytics.NewEngine(discardLogger()), nil, "", discardLogger())
	return svc, store
}

func TestKPIService_NoDataset(t *testing.T) {
	store := dataset.NewStore()
	svc := NewKPIService(store, analytics.NewEngine(discardLogger()), nil, "", discardLogger())
	ctx := context.Background()

	_, err := svc.Analysis(ctx, AnalysisRequest{Period: analytics.PeriodAll})
	assert.ErrorIs(t, err, apperrors.ErrNoDataset)

	_, err = svc.UseCases(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNoDataset)

	_, err = svc.PageTypes(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNoDataset)

	status := svc.Status(ctx)
	assert.False(t, status.HasData)
}

func TestKPIService_Analysis(t *testing.T) {
	svc, _ := seededService(t)

	results, err := svc.Analysis(context.Background(), AnalysisRequest{Period: analytics.PeriodAll})
	require.NoError(t, err)

	// Only checkout is configured; search has data but no launch.
	require.Len(t, results, len(analytics.AllKPIs()))
	for _, r := range results {
		assert.Equal(t, "checkout", r.UseCase)
		assert.Equal(t, "2024-01-01", r.LaunchDate)
	}
}

func TestKPIService_Analysis_SingleKPI(t *testing.T) {
	svc, _ := seededService(t)
	kpi := analytics.KPIRevenue

	results, err := svc.Analysis(context.Background(), AnalysisRequest{
		Period: analytics.PeriodAll,
		KPI:    &kpi,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "REVENUE", results[0].KPI)
}

func TestKPIService_Analysis_UnknownUseCase(t *testing.T) {
	svc, _ := seededService(t)

	_, err := svc.Analysis(context.Background(), AnalysisRequest{
		UseCase: "ghost",
		Period:  analytics.PeriodAll,
	})
	require.Error(t, err)

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestKPIService_Summary(t *testing.T) {
	svc, _ := seededService(t)

	sum, err := svc.Summary(context.Background(), "checkout", analytics.PeriodAll, analytics.SegmentFilter{})
	require.NoError(t, err)

	// Post-launch rows only: 100+50+70 visits, 5+0+7 orders.
	assert.InDelta(t, 220.0, sum.Visits, 1e-9)
	assert.InDelta(t, 12.0, sum.Orders, 1e-9)
	assert.InDelta(t, 12.0/220.0, sum.CVR, 1e-6)
}

func TestKPIService_Daily(t *testing.T) {
	svc, _ := seededService(t)

	rows, err := svc.Daily(context.Background(), "checkout", analytics.PeriodAll, analytics.SegmentFilter{})
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01-01", rows[0].Date)
	assert.Equal(t, "2024-01-06", rows[2].Date)
	assert.Equal(t, "checkout", rows[0].UseCase)
	assert.InDelta(t, 0.05, rows[0].CVR, 1e-9)
}

func TestKPIService_Comparison(t *testing.T) {
	svc, _ := seededService(t)

	rows, err := svc.Comparison(context.Background(), "checkout", analytics.PeriodAll, analytics.SegmentFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	first := rows[0]
	assert.Equal(t, 0, first.DayOffset)
	assert.Equal(t, "2024-01-01", first.DateTY)
	assert.Equal(t, "2023-01-01", first.DateLY)

	// TY side present, LY side null.
	require.NotNil(t, first.VisitsTY)
	assert.InDelta(t, 100.0, *first.VisitsTY, 1e-9)
	assert.Nil(t, first.VisitsLY)
	assert.Nil(t, first.CVRLY)
}

func TestKPIService_Comparison_NoLaunchConfig(t *testing.T) {
	svc, _ := seededService(t)

	rows, err := svc.Comparison(context.Background(), "search", analytics.PeriodAll, analytics.SegmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestKPIService_UseCasesAndStakeholders(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	cases, err := svc.UseCases(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "checkout", cases[0].UseCase)
	assert.Equal(t, "2024-01-01", cases[0].LaunchDate)

	emails, err := svc.Stakeholders(ctx, "checkout")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, emails)

	_, err = svc.Stakeholders(ctx, "ghost")
	require.Error(t, err)
}

func TestKPIService_Status(t *testing.T) {
	svc, _ := seededService(t)

	status := svc.Status(context.Background())
	assert.True(t, status.HasData)
	assert.Equal(t, 5, status.Records)
	assert.Equal(t, 1, status.UseCases)
	assert.NotEmpty(t, status.LastUpdated)
}

type captureMailer struct {
	sent []notify.Message
}

func (c *captureMailer) Send(ctx context.Context, msg notify.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func TestKPIService_LaunchReport(t *testing.T) {
	svc, _ := seededService(t)
	mailer := &captureMailer{}
	svc.SetMailer(mailer)
	ctx := context.Background()

	msg, err := svc.LaunchReport(ctx, AnalysisRequest{UseCase: "checkout", Period: analytics.PeriodAll})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, msg.To)
	assert.Contains(t, msg.Subject, "checkout")
	assert.Contains(t, msg.Body, "new checkout flow")

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, msg, mailer.sent[0])

	_, err = svc.LaunchReport(ctx, AnalysisRequest{UseCase: "ghost", Period: analytics.PeriodAll})
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

type captureNotifier struct {
	refreshed []DataStatus
}

func (c *captureNotifier) NotifyDatasetRefresh(status DataStatus) {
	c.refreshed = append(c.refreshed, status)
}

// workbookBytes builds a minimal valid workbook in memory.
func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", dataset.SheetDailyData))
	_, err := f.NewSheet(dataset.SheetFeatureConfig)
	require.NoError(t, err)

	daily := [][]interface{}{
		{"date", "use_case", "visits", "orders", "revenue"},
		{"2024-01-01", "checkout", 100, 5, 500},
		{"2024-01-02", "checkout", 50, 2, 200},
	}
	config := [][]interface{}{
		{"use_case", "launch_date", "stakeholders"},
		{"checkout", "2024-01-01", "a@x.com"},
	}
	for i, row := range daily {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(dataset.SheetDailyData, addr, &row))
	}
	for i, row := range config {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(dataset.SheetFeatureConfig, addr, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestKPIService_Upload(t *testing.T) {
	store := dataset.NewStore()
	notifier := &captureNotifier{}
	dataFile := filepath.Join(t.TempDir(), "current_data.xlsx")
	svc := NewKPIService(store, analytics.NewEngine(discardLogger()), notifier, dataFile, discardLogger())

	result, err := svc.Upload(context.Background(), workbookBytes(t))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Records)
	assert.Equal(t, 1, result.UseCases)

	t.Run("snapshot replaced", func(t *testing.T) {
		snap, ok := store.Snapshot()
		require.True(t, ok)
		assert.Equal(t, 2, snap.Records())
	})

	t.Run("workbook persisted", func(t *testing.T) {
		info, err := os.Stat(dataFile)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	})

	t.Run("refresh broadcast", func(t *testing.T) {
		require.Len(t, notifier.refreshed, 1)
		assert.True(t, notifier.refreshed[0].HasData)
		assert.Equal(t, 2, notifier.refreshed[0].Records)
	})
}

func TestKPIService_Upload_MalformedKeepsSnapshot(t *testing.T) {
	svc, store := seededService(t)

	_, err := svc.Upload(context.Background(), []byte("not a workbook"))
	require.Error(t, err)

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)

	// The previous snapshot is untouched.
	snap, ok := store.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 5, snap.Records())
}

func TestKPIService_LoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "current_data.xlsx")

	t.Run("missing file is not an error", func(t *testing.T) {
		store := dataset.NewStore()
		svc := NewKPIService(store, analytics.NewEngine(discardLogger()), nil, dataFile, discardLogger())
		require.NoError(t, svc.LoadFromDisk(context.Background()))
		_, ok := store.Snapshot()
		assert.False(t, ok)
	})

	t.Run("persisted file restores the snapshot", func(t *testing.T) {
		require.NoError(t, os.WriteFile(dataFile, workbookBytes(t), 0o644))

		store := dataset.NewStore()
		svc := NewKPIService(store, analytics.NewEngine(discardLogger()), nil, dataFile, discardLogger())
		require.NoError(t, svc.LoadFromDisk(context.Background()))

		snap, ok := store.Snapshot()
		require.True(t, ok)
		assert.Equal(t, 2, snap.Records())
	})
}

func TestHealthService_Check(t *testing.T) {
	store := dataset.NewStore()
	hs := NewHealthService("1.0.0", store, discardLogger())

	status := hs.Check(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.False(t, status.Dataset.HasData)

	store.Replace(&dataset.Snapshot{
		Observations: []analytics.DailyObservation{obs("2024-01-01", "checkout", 1, 0, 0)},
		Launches:     []analytics.FeatureLaunch{{UseCase: "checkout", LaunchDate: day("2024-01-01")}},
	})

	status = hs.Check(context.Background())
	assert.True(t, status.Dataset.HasData)
	assert.Equal(t, 1, status.Dataset.Records)
}
