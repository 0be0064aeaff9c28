package analytics

import (
	"sort"
	"time"
)

// BuildComparison builds the day-offset-aligned TY/LY series for charting.
// Rows must already be scoped to one use case and segment-filtered; the
// window derivation matches the aggregate path (same horizon definition),
// but only the post windows are charted.
//
// Each grouped TY date maps to offset date−launch; each grouped LY date to
// offset date−(launch−365d). Records sharing an offset represent "the Nth
// day since the respective year's launch-equivalent date", which is what
// lets the two lines overlay despite being 365 calendar days apart. The
// offset set is the union of TY-present and LY-present offsets: an offset
// with only one side present keeps a nil value for the other side, never a
// zero and never a dropped row.
//
// A zero launch date yields an empty series (charting without an anchor
// is meaningless), as does a launch with no post-launch data.
func BuildComparison(rows []DailyObservation, launch time.Time, period Period) []ComparisonPoint {
	if launch.IsZero() {
		return nil
	}
	horizon, ok := MaxDate(rows)
	if !ok {
		return nil
	}
	w, ok := Windows(launch, period, horizon)
	if !ok {
		return nil
	}

	launch = Day(launch)
	launchLY := launch.AddDate(0, 0, -yearShiftDays)

	ty := make(map[int]DayMetrics)
	for _, day := range groupInRange(rows, w.PostTY) {
		ty[DaysBetween(launch, day.Date)] = day.Totals.Metrics()
	}
	ly := make(map[int]DayMetrics)
	for _, day := range groupInRange(rows, w.PostLY) {
		ly[DaysBetween(launchLY, day.Date)] = day.Totals.Metrics()
	}

	offsets := make([]int, 0, len(ty)+len(ly))
	seen := make(map[int]bool, len(ty)+len(ly))
	for off := range ty {
		offsets = append(offsets, off)
		seen[off] = true
	}
	for off := range ly {
		if !seen[off] {
			offsets = append(offsets, off)
		}
	}
	sort.Ints(offsets)

	points := make([]ComparisonPoint, 0, len(offsets))
	for _, off := range offsets {
		p := ComparisonPoint{
			DayOffset: off,
			DateTY:    launch.AddDate(0, 0, off),
			DateLY:    launchLY.AddDate(0, 0, off),
		}
		if m, ok := ty[off]; ok {
			p.TY = &m
		}
		if m, ok := ly[off]; ok {
			p.LY = &m
		}
		points = append(points, p)
	}
	return points
}
