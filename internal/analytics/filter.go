package analytics

import "strings"

// SegmentFilter restricts the daily series to a categorical subset before
// any other computation touches it. An empty value or the "All" sentinel
// (case-insensitive) is a no-op for that dimension; set dimensions compose
// by conjunction.
type SegmentFilter struct {
	BusinessSegment string
	DeviceType      string
	PageType        string
}

// IsZero reports whether no dimension is constrained.
func (f SegmentFilter) IsZero() bool {
	return !isConstraint(f.BusinessSegment) && !isConstraint(f.DeviceType) && !isConstraint(f.PageType)
}

// Apply returns the subset of rows matching every set dimension. Input rows
// are never mutated; an empty result is valid. Business segment and device
// type match case-insensitively; page type is an exact match because page
// identifiers are case-significant in the source data.
func (f SegmentFilter) Apply(rows []DailyObservation) []DailyObservation {
	if f.IsZero() {
		return rows
	}
	out := make([]DailyObservation, 0, len(rows))
	for _, row := range rows {
		if isConstraint(f.BusinessSegment) && !strings.EqualFold(row.BusinessSegment, f.BusinessSegment) {
			continue
		}
		if isConstraint(f.DeviceType) && !strings.EqualFold(row.DeviceType, f.DeviceType) {
			continue
		}
		if isConstraint(f.PageType) && row.PageType != f.PageType {
			continue
		}
		out = append(out, row)
	}
	return out
}

// isConstraint reports whether the value actually constrains a dimension.
func isConstraint(v string) bool {
	return v != "" && !strings.EqualFold(v, SegmentAll)
}
