package dataset

import (
	"sort"
	"strings"
	"time"

	"launchpulse/internal/analytics"
)

// Snapshot is one immutable load of the uploaded workbook: the daily
// observation table and the launch-configuration table. Snapshots are
// replaced wholesale, never mutated in place.
type Snapshot struct {
	Observations []analytics.DailyObservation
	Launches     []analytics.FeatureLaunch
	LoadedAt     time.Time
}

// Records returns the number of daily observation rows.
func (s *Snapshot) Records() int {
	return len(s.Observations)
}

// UseCases returns the configured use cases in sheet order.
func (s *Snapshot) UseCases() []string {
	out := make([]string, 0, len(s.Launches))
	for _, l := range s.Launches {
		out = append(out, l.UseCase)
	}
	return out
}

// LaunchFor returns the launch configuration for a use case. There is at
// most one launch per use case; the first configured row wins.
func (s *Snapshot) LaunchFor(useCase string) (analytics.FeatureLaunch, bool) {
	for _, l := range s.Launches {
		if l.UseCase == useCase {
			return l, true
		}
	}
	return analytics.FeatureLaunch{}, false
}

// ObservationsFor returns the observation rows for one use case, or all
// rows when useCase is empty.
func (s *Snapshot) ObservationsFor(useCase string) []analytics.DailyObservation {
	if useCase == "" {
		return s.Observations
	}
	out := make([]analytics.DailyObservation, 0, len(s.Observations))
	for _, o := range s.Observations {
		if o.UseCase == useCase {
			out = append(out, o)
		}
	}
	return out
}

// PageTypes returns the distinct page types for the filter dropdown: the
// "All" sentinel first, the rest sorted.
func (s *Snapshot) PageTypes() []string {
	seen := make(map[string]bool)
	for _, o := range s.Observations {
		pt := strings.TrimSpace(o.PageType)
		if pt == "" || pt == analytics.SegmentAll {
			continue
		}
		seen[pt] = true
	}
	types := make([]string, 0, len(seen))
	for pt := range seen {
		types = append(types, pt)
	}
	sort.Strings(types)
	return append([]string{analytics.SegmentAll}, types...)
}
