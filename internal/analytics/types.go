package analytics

import (
	"fmt"
	"strings"
	"time"
)

// SegmentAll is the sentinel value meaning "no constraint" for a segment
// dimension, both in input data and in filter parameters.
const SegmentAll = "All"

// KPI identifies one of the six supported metrics. The set is closed:
// every KPI carries its own aggregation rule and lift-unit policy, selected
// by exhaustive switching rather than string matching.
type KPI int

const (
	KPIVisits KPI = iota
	KPIOrders
	KPIRevenue
	KPICVR
	KPIAOV
	KPIRPV
)

// AllKPIs returns the six KPIs in reporting order.
func AllKPIs() []KPI {
	return []KPI{KPIVisits, KPIOrders, KPIRevenue, KPICVR, KPIAOV, KPIRPV}
}

// String returns the lower-case wire name of the KPI.
func (k KPI) String() string {
	switch k {
	case KPIVisits:
		return "visits"
	case KPIOrders:
		return "orders"
	case KPIRevenue:
		return "revenue"
	case KPICVR:
		return "cvr"
	case KPIAOV:
		return "aov"
	case KPIRPV:
		return "rpv"
	default:
		return "unknown"
	}
}

// Label returns the upper-case display name used in analysis results.
func (k KPI) Label() string {
	return strings.ToUpper(k.String())
}

// IsDerived reports whether the KPI is a ratio recomputed from summed
// primaries rather than a summable counter.
func (k KPI) IsDerived() bool {
	switch k {
	case KPICVR, KPIAOV, KPIRPV:
		return true
	default:
		return false
	}
}

// IsBasisPoints reports whether lift for this KPI is expressed in basis
// points instead of percent. CVR is already a ratio in [0,1], so its delta
// is reported as an absolute bps change; a relative percentage of a small
// denominator is numerically unstable and not analyst-meaningful.
func (k KPI) IsBasisPoints() bool {
	return k == KPICVR
}

// ParseKPI resolves a case-insensitive KPI name.
func ParseKPI(s string) (KPI, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "visits":
		return KPIVisits, nil
	case "orders":
		return KPIOrders, nil
	case "revenue":
		return KPIRevenue, nil
	case "cvr":
		return KPICVR, nil
	case "aov":
		return KPIAOV, nil
	case "rpv":
		return KPIRPV, nil
	default:
		return 0, fmt.Errorf("unknown kpi %q", s)
	}
}

// DailyObservation is one input row: the primary counters for a
// (date, use case, segment dimensions) combination. Multiple rows may share
// a date across segment dimensions; they are summed, never averaged, when
// aggregated. Ratio columns present in the source file are dropped at
// ingestion and always recomputed from summed primaries.
type DailyObservation struct {
	Date            time.Time `json:"date"`
	UseCase         string    `json:"use_case"`
	Visits          float64   `json:"visits"`
	Orders          float64   `json:"orders"`
	Revenue         float64   `json:"revenue"`
	BusinessSegment string    `json:"business_segment"`
	DeviceType      string    `json:"device_type"`
	PageType        string    `json:"page_type"`
}

// FeatureLaunch is one launch-configuration row. LaunchDate is the sole
// pre/post partition boundary for the use case.
type FeatureLaunch struct {
	UseCase      string    `json:"use_case"`
	LaunchDate   time.Time `json:"launch_date"`
	Description  string    `json:"description,omitempty"`
	Stakeholders []string  `json:"stakeholders,omitempty"`
}

// DateRange is an inclusive calendar range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls inside the range, endpoints included.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// ShiftBackYear returns the range moved back exactly 365 days.
func (r DateRange) ShiftBackYear() DateRange {
	return DateRange{
		Start: r.Start.AddDate(0, 0, -yearShiftDays),
		End:   r.End.AddDate(0, 0, -yearShiftDays),
	}
}

// AnalysisWindow holds the four calendar windows anchored at a launch date,
// plus the day counts they were derived from. Windows are recomputed per
// request and never cached.
type AnalysisWindow struct {
	PreTY  DateRange
	PreLY  DateRange
	PostTY DateRange
	PostLY DateRange

	// ActualPostDays is the requested period after capping to available
	// data; TotalPostDays is the full span from launch to the horizon.
	ActualPostDays int
	TotalPostDays  int
}

// Totals holds summed primary counters for one window.
type Totals struct {
	Visits  float64 `json:"visits"`
	Orders  float64 `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// Add accumulates another observation's primaries.
func (t *Totals) Add(o DailyObservation) {
	t.Visits += o.Visits
	t.Orders += o.Orders
	t.Revenue += o.Revenue
}

// CVR returns orders/visits from the summed primaries, 0 when there were
// no visits.
func (t Totals) CVR() float64 {
	if t.Visits > 0 {
		return t.Orders / t.Visits
	}
	return 0.0
}

// AOV returns revenue/orders from the summed primaries, 0 when there were
// no orders.
func (t Totals) AOV() float64 {
	if t.Orders > 0 {
		return t.Revenue / t.Orders
	}
	return 0.0
}

// RPV returns revenue/visits from the summed primaries, 0 when there were
// no visits.
func (t Totals) RPV() float64 {
	if t.Visits > 0 {
		return t.Revenue / t.Visits
	}
	return 0.0
}

// Value returns the KPI's value for this window's totals. Primary KPIs are
// the sums themselves; derived KPIs are ratios of the sums.
func (t Totals) Value(k KPI) float64 {
	switch k {
	case KPIVisits:
		return t.Visits
	case KPIOrders:
		return t.Orders
	case KPIRevenue:
		return t.Revenue
	case KPICVR:
		return t.CVR()
	case KPIAOV:
		return t.AOV()
	case KPIRPV:
		return t.RPV()
	default:
		return 0.0
	}
}

// Metrics expands the totals into the full six-KPI view.
func (t Totals) Metrics() DayMetrics {
	return DayMetrics{
		Visits:  t.Visits,
		Orders:  t.Orders,
		Revenue: t.Revenue,
		CVR:     t.CVR(),
		AOV:     t.AOV(),
		RPV:     t.RPV(),
	}
}

// WindowTotals holds the primary sums for all four analysis windows.
type WindowTotals struct {
	PreTY  Totals
	PreLY  Totals
	PostTY Totals
	PostLY Totals
}

// DayMetrics is the six-KPI value set for a single grouped calendar day.
type DayMetrics struct {
	Visits  float64 `json:"visits"`
	Orders  float64 `json:"orders"`
	Revenue float64 `json:"revenue"`
	CVR     float64 `json:"cvr"`
	AOV     float64 `json:"aov"`
	RPV     float64 `json:"rpv"`
}

// Value returns the metric for the given KPI.
func (m DayMetrics) Value(k KPI) float64 {
	switch k {
	case KPIVisits:
		return m.Visits
	case KPIOrders:
		return m.Orders
	case KPIRevenue:
		return m.Revenue
	case KPICVR:
		return m.CVR
	case KPIAOV:
		return m.AOV
	case KPIRPV:
		return m.RPV
	default:
		return 0.0
	}
}

// WindowDates carries the eight window boundary dates of an analysis
// result, formatted as ISO calendar days.
type WindowDates struct {
	PreTYStart  string `json:"pre_ty_start"`
	PreTYEnd    string `json:"pre_ty_end"`
	PreLYStart  string `json:"pre_ly_start"`
	PreLYEnd    string `json:"pre_ly_end"`
	PostTYStart string `json:"post_ty_start"`
	PostTYEnd   string `json:"post_ty_end"`
	PostLYStart string `json:"post_ly_start"`
	PostLYEnd   string `json:"post_ly_end"`
}

// AnalysisResult is the lift report for one (use case, KPI) pair. Raw
// window values are rounded to 6 decimal places and lift values to 4, so
// repeated runs over identical inputs serialize identically.
type AnalysisResult struct {
	UseCase         string  `json:"use_case"`
	KPI             string  `json:"kpi"`
	PreLY           float64 `json:"pre_ly"`
	PreTY           float64 `json:"pre_ty"`
	PreLift         float64 `json:"pre_lift"`
	PostLY          float64 `json:"post_ly"`
	PostTY          float64 `json:"post_ty"`
	PostLift        float64 `json:"post_lift"`
	PrePostCompLift float64 `json:"pre_post_comp_lift"`

	LaunchDate    string      `json:"launch_date"`
	PeriodDays    int         `json:"period_days"`
	TotalPostDays int         `json:"total_post_days"`
	MaxDataDate   string      `json:"max_data_date"`
	Windows       WindowDates `json:"windows"`

	// IsBPS marks the lift unit as basis points (true only for CVR), so
	// renderers never need to match on the KPI name to pick a unit.
	IsBPS bool `json:"is_bps"`
}

// DailyPoint is one grouped calendar day of the daily chart series.
type DailyPoint struct {
	Date    time.Time  `json:"-"`
	UseCase string     `json:"use_case"`
	Metrics DayMetrics `json:"metrics"`
}

// ComparisonPoint is one day-offset row of a TY/LY comparison series.
// A nil TY or LY side means no observation existed on that offset for that
// year; the absence is reported as null downstream, never as zero.
type ComparisonPoint struct {
	DayOffset int
	DateTY    time.Time
	DateLY    time.Time
	TY        *DayMetrics
	LY        *DayMetrics
}

// Summary is the single-window KPI rollup used by the dashboard header.
// Sums are rounded to 4 decimal places, CVR to 6 (it is small), AOV and
// RPV to 4.
type Summary struct {
	Visits  float64 `json:"visits"`
	Orders  float64 `json:"orders"`
	Revenue float64 `json:"revenue"`
	CVR     float64 `json:"cvr"`
	AOV     float64 `json:"aov"`
	RPV     float64 `json:"rpv"`
}

// ISODate is the calendar-day format used on every output surface.
const ISODate = "2006-01-02"

// Day truncates t to a calendar day in UTC. All engine date math assumes
// day-resolution UTC times, which makes day differences exact divisions.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole-day difference b − a for day-resolution
// UTC times.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
