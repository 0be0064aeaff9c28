package analytics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// yearShiftDays is the fixed TY→LY shift. Exactly 365 days, not a
// leap-aware year subtraction: the shift preserves day-of-week alignment in
// common years and drifts one day across a leap boundary, which is accepted
// rather than corrected.
const yearShiftDays = 365

// Period is a requested post-launch window length in days. PeriodAll means
// "all available days since launch".
type Period int

// PeriodAll is the sentinel for an uncapped post period.
const PeriodAll Period = 0

// IsAll reports whether the period is the uncapped sentinel.
func (p Period) IsAll() bool {
	return p <= 0
}

// String returns the wire form of the period: "all" or a day count.
func (p Period) String() string {
	if p.IsAll() {
		return "all"
	}
	return strconv.Itoa(int(p))
}

// ParsePeriod resolves the query form of a period: the "all" sentinel
// (case-insensitive, empty means all) or a positive day count.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return PeriodAll, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid period %q: want \"all\" or a positive day count", s)
	}
	return Period(n), nil
}

// Windows derives the four analysis windows for a launch. The horizon must
// be the maximum observed date of the use case's filtered rows, not the
// wall clock; using "today" here would make the aggregate and chart paths
// disagree whenever the data lags the calendar.
//
// Returns ok=false when the launch has no post-launch data (launch on or
// after the horizon); the use case is excluded from analysis, a valid
// empty outcome rather than an error.
func Windows(launch time.Time, period Period, horizon time.Time) (AnalysisWindow, bool) {
	launch = Day(launch)
	horizon = Day(horizon)

	totalPostDays := DaysBetween(launch, horizon)
	if totalPostDays <= 0 {
		return AnalysisWindow{}, false
	}

	actualPostDays := totalPostDays
	if !period.IsAll() && int(period) < totalPostDays {
		// The requested window is silently capped to available data,
		// never extended.
		actualPostDays = int(period)
	}

	postTY := DateRange{
		Start: launch,
		End:   launch.AddDate(0, 0, actualPostDays),
	}
	preTY := DateRange{
		Start: launch.AddDate(0, 0, -actualPostDays),
		End:   launch.AddDate(0, 0, -1),
	}

	return AnalysisWindow{
		PreTY:          preTY,
		PreLY:          preTY.ShiftBackYear(),
		PostTY:         postTY,
		PostLY:         postTY.ShiftBackYear(),
		ActualPostDays: actualPostDays,
		TotalPostDays:  totalPostDays,
	}, true
}

// MaxDate returns the latest observation date in rows, false when rows is
// empty. This is the per-use-case data-availability horizon.
func MaxDate(rows []DailyObservation) (time.Time, bool) {
	if len(rows) == 0 {
		return time.Time{}, false
	}
	max := rows[0].Date
	for _, row := range rows[1:] {
		if row.Date.After(max) {
			max = row.Date
		}
	}
	return Day(max), true
}

// Dates returns the eight window boundaries formatted as ISO calendar days.
func (w AnalysisWindow) Dates() WindowDates {
	return WindowDates{
		PreTYStart:  w.PreTY.Start.Format(ISODate),
		PreTYEnd:    w.PreTY.End.Format(ISODate),
		PreLYStart:  w.PreLY.Start.Format(ISODate),
		PreLYEnd:    w.PreLY.End.Format(ISODate),
		PostTYStart: w.PostTY.Start.Format(ISODate),
		PostTYEnd:   w.PostTY.End.Format(ISODate),
		PostLYStart: w.PostLY.Start.Format(ISODate),
		PostLYEnd:   w.PostLY.End.Format(ISODate),
	}
}
