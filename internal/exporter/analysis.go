// Package exporter renders analysis results as CSV for download.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"launchpulse/internal/analytics"
)

// analysisHeaders is the column order of the analysis CSV export.
var analysisHeaders = []string{
	"use_case",
	"kpi",
	"pre_ly",
	"pre_ty",
	"pre_lift",
	"post_ly",
	"post_ty",
	"post_lift",
	"pre_post_comp_lift",
	"lift_unit",
	"launch_date",
	"period_days",
	"total_post_days",
	"max_data_date",
}

// WriteAnalysisCSV streams the lift report rows to w as CSV. A UTF-8 BOM
// is emitted first so Excel opens the file correctly.
func WriteAnalysisCSV(w io.Writer, results []analytics.AnalysisResult) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(analysisHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, r := range results {
		unit := "percent"
		if r.IsBPS {
			unit = "bps"
		}
		record := []string{
			r.UseCase,
			r.KPI,
			formatNumber(r.PreLY),
			formatNumber(r.PreTY),
			formatNumber(r.PreLift),
			formatNumber(r.PostLY),
			formatNumber(r.PostTY),
			formatNumber(r.PostLift),
			formatNumber(r.PrePostCompLift),
			unit,
			r.LaunchDate,
			strconv.Itoa(r.PeriodDays),
			strconv.Itoa(r.TotalPostDays),
			r.MaxDataDate,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatNumber renders a value without exponent notation and without
// trailing zeros, so exports are stable across runs.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
