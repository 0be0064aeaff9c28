package analytics

import (
	"log/slog"
	"time"
)

// Engine orchestrates the comparison computations across use cases and
// KPIs. It holds no cross-call state; every method is a pure function of
// its arguments plus the logger used for per-KPI skip reporting, so one
// Engine may serve any number of concurrent callers.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an analysis engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With(slog.String("component", "analytics"))}
}

// Analyze computes the pre/post TY/LY lift report for every launch over the
// segment-filtered rows. Use cases whose launch has no post-launch data are
// silently excluded; a KPI whose computation fails is logged and dropped
// without aborting its siblings or other use cases.
func (e *Engine) Analyze(rows []DailyObservation, launches []FeatureLaunch, period Period, filter SegmentFilter) []AnalysisResult {
	filtered := filter.Apply(rows)

	results := make([]AnalysisResult, 0, len(launches)*len(AllKPIs()))
	for _, launch := range launches {
		caseRows := rowsForUseCase(filtered, launch.UseCase)
		if len(caseRows) == 0 {
			continue
		}

		// The horizon is the use case's own max data date, never the
		// wall clock, so this path and the chart path agree.
		horizon, _ := MaxDate(caseRows)
		w, ok := Windows(launch.LaunchDate, period, horizon)
		if !ok {
			continue
		}

		wt := CollectWindowTotals(caseRows, w)
		dates := w.Dates()

		for _, k := range AllKPIs() {
			lift, err := LiftFor(k, wt)
			if err != nil {
				e.logger.Warn("skipping kpi for use case",
					slog.String("use_case", launch.UseCase),
					slog.String("kpi", k.String()),
					slog.String("error", err.Error()))
				continue
			}
			results = append(results, AnalysisResult{
				UseCase:         launch.UseCase,
				KPI:             k.Label(),
				PreLY:           Round(wt.PreLY.Value(k), rawPrecision),
				PreTY:           Round(wt.PreTY.Value(k), rawPrecision),
				PreLift:         Round(lift.Pre, liftPrecision),
				PostLY:          Round(wt.PostLY.Value(k), rawPrecision),
				PostTY:          Round(wt.PostTY.Value(k), rawPrecision),
				PostLift:        Round(lift.Post, liftPrecision),
				PrePostCompLift: Round(lift.Comp, liftPrecision),
				LaunchDate:      Day(launch.LaunchDate).Format(ISODate),
				PeriodDays:      w.ActualPostDays,
				TotalPostDays:   w.TotalPostDays,
				MaxDataDate:     horizon.Format(ISODate),
				Windows:         dates,
				IsBPS:           k.IsBasisPoints(),
			})
		}
	}
	return results
}

// DailySeries groups the rows by calendar day from the launch date forward,
// optionally capped to the requested period, and derives the ratio metrics
// from each day's sums. Rows must already be segment-filtered and scoped to
// the requested use case. A zero launch date means no date scoping: the
// whole filtered set is grouped.
func (e *Engine) DailySeries(rows []DailyObservation, useCase string, launch time.Time, period Period) []DailyPoint {
	scoped := rows
	if !launch.IsZero() {
		launch = Day(launch)
		r := DateRange{Start: launch, End: farFuture}
		if !period.IsAll() {
			r.End = launch.AddDate(0, 0, int(period))
		}
		scoped = make([]DailyObservation, 0, len(rows))
		for _, row := range rows {
			if r.Contains(Day(row.Date)) {
				scoped = append(scoped, row)
			}
		}
	}

	label := useCase
	if label == "" {
		label = SegmentAll
	}
	days := GroupByDate(scoped)
	points := make([]DailyPoint, 0, len(days))
	for _, day := range days {
		points = append(points, DailyPoint{
			Date:    day.Date,
			UseCase: label,
			Metrics: day.Totals.Metrics(),
		})
	}
	return points
}

// Summarize rolls the rows up into a single KPI summary over
// [launch, launch+period] (unbounded when the period is "all", the whole
// set when no launch date is given). An empty selection yields the all-zero
// summary, not an error.
func (e *Engine) Summarize(rows []DailyObservation, launch time.Time, period Period) Summary {
	var t Totals
	if launch.IsZero() {
		for _, row := range rows {
			t.Add(row)
		}
	} else {
		r := DateRange{Start: Day(launch), End: farFuture}
		if !period.IsAll() {
			r.End = Day(launch).AddDate(0, 0, int(period))
		}
		t = SumRange(rows, r)
	}

	return Summary{
		Visits:  Round(t.Visits, liftPrecision),
		Orders:  Round(t.Orders, liftPrecision),
		Revenue: Round(t.Revenue, liftPrecision),
		CVR:     Round(t.CVR(), rawPrecision),
		AOV:     Round(t.AOV(), liftPrecision),
		RPV:     Round(t.RPV(), liftPrecision),
	}
}

// Comparison builds the TY/LY chart series for one use case; see
// BuildComparison for the alignment semantics.
func (e *Engine) Comparison(rows []DailyObservation, launch time.Time, period Period) []ComparisonPoint {
	return BuildComparison(rows, launch, period)
}

// rowsForUseCase selects the rows belonging to one use case.
func rowsForUseCase(rows []DailyObservation, useCase string) []DailyObservation {
	out := make([]DailyObservation, 0, len(rows))
	for _, row := range rows {
		if row.UseCase == useCase {
			out = append(out, row)
		}
	}
	return out
}

// farFuture is an open upper bound for "from launch onward" scoping.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
