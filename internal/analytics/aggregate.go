package analytics

import (
	"sort"
	"time"
)

// SumRange sums the primary counters over rows whose date falls in the
// range, endpoints included. An empty window yields all-zero totals.
func SumRange(rows []DailyObservation, r DateRange) Totals {
	var t Totals
	for _, row := range rows {
		if r.Contains(Day(row.Date)) {
			t.Add(row)
		}
	}
	return t
}

// CollectWindowTotals sums the primaries for all four analysis windows in
// one pass over the rows.
func CollectWindowTotals(rows []DailyObservation, w AnalysisWindow) WindowTotals {
	var wt WindowTotals
	for _, row := range rows {
		d := Day(row.Date)
		if w.PreTY.Contains(d) {
			wt.PreTY.Add(row)
		}
		if w.PreLY.Contains(d) {
			wt.PreLY.Add(row)
		}
		if w.PostTY.Contains(d) {
			wt.PostTY.Add(row)
		}
		if w.PostLY.Contains(d) {
			wt.PostLY.Add(row)
		}
	}
	return wt
}

// DayTotals is the summed primaries for one calendar day.
type DayTotals struct {
	Date   time.Time
	Totals Totals
}

// GroupByDate sums the primary counters per calendar day and returns the
// days sorted ascending. Derived ratios are taken from the per-day sums
// afterwards, never from per-row ratios.
func GroupByDate(rows []DailyObservation) []DayTotals {
	byDate := make(map[time.Time]Totals, len(rows))
	for _, row := range rows {
		d := Day(row.Date)
		t := byDate[d]
		t.Add(row)
		byDate[d] = t
	}

	days := make([]DayTotals, 0, len(byDate))
	for d, t := range byDate {
		days = append(days, DayTotals{Date: d, Totals: t})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days
}

// groupInRange groups the rows falling inside the range by calendar day.
func groupInRange(rows []DailyObservation, r DateRange) []DayTotals {
	scoped := make([]DailyObservation, 0, len(rows))
	for _, row := range rows {
		if r.Contains(Day(row.Date)) {
			scoped = append(scoped, row)
		}
	}
	return GroupByDate(scoped)
}
