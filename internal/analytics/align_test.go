package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildComparisonAlignment(t *testing.T) {
	launch := day("2024-03-01")
	rows := []DailyObservation{
		// TY post window.
		obs("2024-03-01", "a", 100, 5, 500),
		obs("2024-03-03", "a", 80, 4, 400),
		// LY post window (365 days earlier): offsets 0 and 1.
		obs("2023-03-02", "a", 90, 3, 300),
		obs("2023-03-03", "a", 70, 2, 200),
	}

	points := BuildComparison(rows, launch, Period(10))
	require.Len(t, points, 3, "union of TY offsets {0,2} and LY offsets {0,1}")

	byOffset := map[int]ComparisonPoint{}
	for _, p := range points {
		byOffset[p.DayOffset] = p
	}

	t.Run("offsets sorted ascending and unique", func(t *testing.T) {
		assert.Equal(t, 0, points[0].DayOffset)
		assert.Equal(t, 1, points[1].DayOffset)
		assert.Equal(t, 2, points[2].DayOffset)
	})

	t.Run("both sides present", func(t *testing.T) {
		p := byOffset[0]
		require.NotNil(t, p.TY)
		require.NotNil(t, p.LY)
		assert.InDelta(t, 100.0, p.TY.Visits, 1e-9)
		assert.InDelta(t, 90.0, p.LY.Visits, 1e-9)
	})

	t.Run("LY-only offset has nil TY not zero", func(t *testing.T) {
		p := byOffset[1]
		assert.Nil(t, p.TY)
		require.NotNil(t, p.LY)
		assert.InDelta(t, 70.0, p.LY.Visits, 1e-9)
	})

	t.Run("TY-only offset has nil LY", func(t *testing.T) {
		p := byOffset[2]
		require.NotNil(t, p.TY)
		assert.Nil(t, p.LY)
	})

	t.Run("calendar dates derived from offsets", func(t *testing.T) {
		p := byOffset[2]
		assert.Equal(t, day("2024-03-03"), p.DateTY)
		assert.Equal(t, day("2023-03-04"), p.DateLY)
		assert.Equal(t, 365, DaysBetween(p.DateLY, p.DateTY))
	})
}

func TestBuildComparisonDerivesRatiosPerDay(t *testing.T) {
	launch := day("2024-03-01")
	rows := []DailyObservation{
		// Two segment rows on the same TY day must be summed first.
		{Date: day("2024-03-02"), UseCase: "a", Visits: 100, Orders: 2, Revenue: 200, BusinessSegment: "B2B"},
		{Date: day("2024-03-02"), UseCase: "a", Visits: 300, Orders: 10, Revenue: 1000, BusinessSegment: "B2C"},
	}

	points := BuildComparison(rows, launch, PeriodAll)
	require.Len(t, points, 1)
	p := points[0]
	require.NotNil(t, p.TY)
	assert.InDelta(t, 12.0/400.0, p.TY.CVR, 1e-12, "cvr from summed primaries")
	assert.InDelta(t, 1200.0/12.0, p.TY.AOV, 1e-12)
	assert.InDelta(t, 1200.0/400.0, p.TY.RPV, 1e-12)
}

func TestBuildComparisonEmptyCases(t *testing.T) {
	rows := []DailyObservation{obs("2024-03-05", "a", 10, 1, 100)}

	t.Run("zero launch date yields empty series", func(t *testing.T) {
		assert.Empty(t, BuildComparison(rows, time.Time{}, PeriodAll))
	})

	t.Run("no rows yields empty series", func(t *testing.T) {
		assert.Empty(t, BuildComparison(nil, day("2024-03-01"), PeriodAll))
	})

	t.Run("future launch yields empty series", func(t *testing.T) {
		assert.Empty(t, BuildComparison(rows, day("2024-06-01"), PeriodAll))
	})
}

func TestBuildComparisonHorizonIsMaxDataDate(t *testing.T) {
	// Data ends 2024-03-05; with an uncapped period the post window must
	// stop at the data horizon, not at the wall clock.
	launch := day("2024-03-01")
	rows := []DailyObservation{
		obs("2024-03-02", "a", 10, 1, 100),
		obs("2024-03-05", "a", 20, 2, 200),
	}

	points := BuildComparison(rows, launch, PeriodAll)
	require.NotEmpty(t, points)
	last := points[len(points)-1]
	assert.Equal(t, 4, last.DayOffset, "horizon 2024-03-05 is offset 4 from launch")
}
