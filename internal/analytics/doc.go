// Package analytics implements the pre/post-launch comparison engine for
// daily use-case KPI series.
//
// Given a daily observation table and a launch-date table, the engine
// derives four calendar windows around each launch (pre/post, this year and
// last year), aggregates the primary counters over each window, recomputes
// the derived ratio metrics from the aggregated sums, and reports lift
// figures plus day-offset-aligned TY/LY series for charting.
//
// # Core Components
//
//   - types.go: KPI enumeration, observation/launch/result value types
//   - filter.go: segment filtering (business segment, device type, page type)
//   - window.go: period parsing and pre/post TY/LY window derivation
//   - aggregate.go: window sums, per-date grouping, ratio derivation
//   - lift.go: percent and basis-point lift calculation
//   - align.go: day-offset TY/LY alignment for comparison charts
//   - engine.go: orchestration across use cases and KPIs
//
// # Invariants
//
// Derived ratios (CVR, AOV, RPV) are always computed from summed primaries,
// never by averaging per-row ratios: a conversion rate computed as a mean of
// daily conversion rates would misweight low-traffic days. The last-year
// windows are shifted back exactly 365 days, which keeps day-of-week
// alignment in common years and drifts one day across a leap boundary; the
// drift is accepted rather than corrected. The data-availability horizon is
// the maximum observed date of the use case's filtered rows, never the wall
// clock, so the aggregate and chart paths agree for identical inputs.
//
// Every function in this package is a pure computation over the snapshot it
// is handed: no I/O, no locks, no retained state between calls.
package analytics
