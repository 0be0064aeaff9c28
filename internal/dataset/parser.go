package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"launchpulse/internal/analytics"
)

// Workbook sheet names the upload contract requires.
const (
	SheetDailyData     = "DailyData"
	SheetFeatureConfig = "FeatureConfig"
)

// excelEpoch is day zero of the 1900 date system used by xlsx serial dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are the cell formats accepted for date columns, tried in
// order. Serial numbers are handled separately.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01-02-06",
	"1/2/06",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	time.RFC3339,
}

// ParseWorkbook reads an uploaded workbook and builds a snapshot from its
// DailyData and FeatureConfig sheets. Structural problems (a missing
// sheet, a missing required column, an unparsable date or number in a
// required column) are caller-facing errors; everything downstream of a
// well-formed workbook is the engine's empty-not-error territory.
func ParseWorkbook(r io.Reader, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	observations, err := parseDailyData(f)
	if err != nil {
		return nil, err
	}
	launches, err := parseFeatureConfig(f)
	if err != nil {
		return nil, err
	}

	logger.Info("workbook parsed",
		slog.Int("observations", len(observations)),
		slog.Int("launches", len(launches)))

	return &Snapshot{Observations: observations, Launches: launches}, nil
}

// parseDailyData extracts the daily observation table.
func parseDailyData(f *excelize.File) ([]analytics.DailyObservation, error) {
	rows, err := f.GetRows(SheetDailyData)
	if err != nil {
		return nil, fmt.Errorf("missing required sheet %q: %w", SheetDailyData, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", SheetDailyData)
	}

	cols := mapColumns(rows[0])
	for _, required := range []string{"date", "use_case", "visits", "orders", "revenue"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("sheet %q is missing required column %q", SheetDailyData, required)
		}
	}

	observations := make([]analytics.DailyObservation, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rowNum := i + 2 // 1-based, after the header

		date, err := parseDateCell(cell(row, cols["date"]))
		if err != nil {
			return nil, fmt.Errorf("sheet %q row %d: bad date: %w", SheetDailyData, rowNum, err)
		}
		useCase := strings.TrimSpace(cell(row, cols["use_case"]))
		if useCase == "" {
			return nil, fmt.Errorf("sheet %q row %d: empty use_case", SheetDailyData, rowNum)
		}

		o := analytics.DailyObservation{
			Date:            date,
			UseCase:         useCase,
			BusinessSegment: segmentCell(row, cols, "business_segment"),
			DeviceType:      segmentCell(row, cols, "device_type"),
			PageType:        segmentCell(row, cols, "page_type"),
		}
		// Ratio columns (cvr, aov, rpv) in the sheet are never trusted;
		// the engine recomputes them from summed primaries.
		for _, counter := range []struct {
			name string
			dst  *float64
		}{
			{"visits", &o.Visits},
			{"orders", &o.Orders},
			{"revenue", &o.Revenue},
		} {
			v, err := parseCounterCell(cell(row, cols[counter.name]))
			if err != nil {
				return nil, fmt.Errorf("sheet %q row %d: bad %s: %w", SheetDailyData, rowNum, counter.name, err)
			}
			*counter.dst = v
		}

		observations = append(observations, o)
	}
	return observations, nil
}

// parseFeatureConfig extracts the launch-configuration table.
func parseFeatureConfig(f *excelize.File) ([]analytics.FeatureLaunch, error) {
	rows, err := f.GetRows(SheetFeatureConfig)
	if err != nil {
		return nil, fmt.Errorf("missing required sheet %q: %w", SheetFeatureConfig, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", SheetFeatureConfig)
	}

	cols := mapColumns(rows[0])
	for _, required := range []string{"use_case", "launch_date"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("sheet %q is missing required column %q", SheetFeatureConfig, required)
		}
	}

	launches := make([]analytics.FeatureLaunch, 0, len(rows)-1)
	seen := make(map[string]bool)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rowNum := i + 2

		useCase := strings.TrimSpace(cell(row, cols["use_case"]))
		if useCase == "" {
			return nil, fmt.Errorf("sheet %q row %d: empty use_case", SheetFeatureConfig, rowNum)
		}
		if seen[useCase] {
			return nil, fmt.Errorf("sheet %q row %d: duplicate launch for use case %q", SheetFeatureConfig, rowNum, useCase)
		}
		seen[useCase] = true

		launchDate, err := parseDateCell(cell(row, cols["launch_date"]))
		if err != nil {
			return nil, fmt.Errorf("sheet %q row %d: bad launch_date: %w", SheetFeatureConfig, rowNum, err)
		}

		launch := analytics.FeatureLaunch{
			UseCase:    useCase,
			LaunchDate: launchDate,
		}
		if idx, ok := cols["description"]; ok {
			launch.Description = strings.TrimSpace(cell(row, idx))
		}
		if idx, ok := cols["stakeholders"]; ok {
			launch.Stakeholders = SplitStakeholders(cell(row, idx))
		}
		launches = append(launches, launch)
	}
	return launches, nil
}

// SplitStakeholders parses a stakeholder cell: addresses separated by
// semicolons or commas, keeping only email-like entries.
func SplitStakeholders(s string) []string {
	var out []string
	for _, part := range strings.Split(strings.ReplaceAll(s, ";", ","), ",") {
		part = strings.TrimSpace(part)
		if part != "" && strings.Contains(part, "@") {
			out = append(out, part)
		}
	}
	return out
}

// mapColumns maps normalized header names to column positions.
func mapColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		name = strings.ReplaceAll(name, " ", "_")
		if name != "" {
			if _, dup := cols[name]; !dup {
				cols[name] = i
			}
		}
	}
	return cols
}

// cell returns the trimmed cell at idx, empty when the row is short.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// segmentCell returns the segment value with the "All" default applied for
// a missing column or blank cell.
func segmentCell(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok {
		return analytics.SegmentAll
	}
	v := cell(row, idx)
	if v == "" {
		return analytics.SegmentAll
	}
	return v
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseCounterCell coerces a primary counter cell to a non-negative real.
// A blank cell defaults to 0; anything non-numeric or negative is a
// malformed-input error.
func parseCounterCell(s string) (float64, error) {
	if s == "" {
		return 0.0, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric value %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %v", v)
	}
	return v, nil
}

// parseDateCell parses a date cell in any accepted layout, or as an xlsx
// serial number. The time component, if any, is dropped: the data model is
// day-resolution.
func parseDateCell(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date cell")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return analytics.Day(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return analytics.Day(excelEpoch.AddDate(0, 0, int(serial))), nil
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}
