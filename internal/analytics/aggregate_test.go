package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumRange(t *testing.T) {
	rows := []DailyObservation{
		obs("2024-01-01", "a", 100, 5, 500),
		obs("2024-01-02", "a", 50, 1, 90),
		obs("2024-01-05", "a", 25, 0, 0),
	}

	t.Run("inclusive endpoints", func(t *testing.T) {
		got := SumRange(rows, DateRange{Start: day("2024-01-01"), End: day("2024-01-05")})
		assert.Equal(t, Totals{Visits: 175, Orders: 6, Revenue: 590}, got)
	})

	t.Run("partial window", func(t *testing.T) {
		got := SumRange(rows, DateRange{Start: day("2024-01-02"), End: day("2024-01-04")})
		assert.Equal(t, Totals{Visits: 50, Orders: 1, Revenue: 90}, got)
	})

	t.Run("empty window yields zeros not error", func(t *testing.T) {
		got := SumRange(rows, DateRange{Start: day("2023-06-01"), End: day("2023-06-30")})
		assert.Equal(t, Totals{}, got)
	})
}

func TestTotalsDerivedRatios(t *testing.T) {
	tests := []struct {
		name    string
		totals  Totals
		wantCVR float64
		wantAOV float64
		wantRPV float64
	}{
		{"normal", Totals{Visits: 200, Orders: 10, Revenue: 1500}, 0.05, 150, 7.5},
		{"zero visits", Totals{Orders: 10, Revenue: 1500}, 0, 150, 0},
		{"zero orders", Totals{Visits: 200, Revenue: 1500}, 0, 0, 7.5},
		{"all zero", Totals{}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.wantCVR, tt.totals.CVR(), 1e-12)
			assert.InDelta(t, tt.wantAOV, tt.totals.AOV(), 1e-12)
			assert.InDelta(t, tt.wantRPV, tt.totals.RPV(), 1e-12)
		})
	}
}

// Whole-window CVR must equal sum(orders)/sum(visits) over any per-day
// partition, and differ from the mean of per-day CVRs whenever visits are
// not uniform across days.
func TestSumThenDivideInvariant(t *testing.T) {
	rows := []DailyObservation{
		obs("2024-01-01", "a", 1000, 10, 0), // CVR 0.01
		obs("2024-01-02", "a", 10, 5, 0),    // CVR 0.5
	}
	window := DateRange{Start: day("2024-01-01"), End: day("2024-01-02")}

	whole := SumRange(rows, window).CVR()
	assert.InDelta(t, 15.0/1010.0, whole, 1e-12)

	days := GroupByDate(rows)
	require.Len(t, days, 2)
	meanOfDaily := (days[0].Totals.CVR() + days[1].Totals.CVR()) / 2
	assert.Greater(t, math.Abs(meanOfDaily-whole), 1e-6,
		"mean of per-day CVRs must not equal the window CVR for skewed traffic")
}

func TestCollectWindowTotals(t *testing.T) {
	w, ok := Windows(day("2024-06-01"), Period(2), day("2024-06-30"))
	require.True(t, ok)

	rows := []DailyObservation{
		obs("2024-06-01", "a", 10, 1, 100), // post TY
		obs("2024-06-03", "a", 20, 2, 200), // post TY (end inclusive)
		obs("2024-05-30", "a", 5, 0, 0),    // pre TY
		obs("2023-06-02", "a", 8, 1, 80),   // post LY
		obs("2023-05-31", "a", 4, 0, 0),    // pre LY
		obs("2024-07-01", "a", 99, 9, 999), // outside every window
	}

	wt := CollectWindowTotals(rows, w)
	assert.Equal(t, Totals{Visits: 30, Orders: 3, Revenue: 300}, wt.PostTY)
	assert.Equal(t, Totals{Visits: 5}, wt.PreTY)
	assert.Equal(t, Totals{Visits: 8, Orders: 1, Revenue: 80}, wt.PostLY)
	assert.Equal(t, Totals{Visits: 4}, wt.PreLY)
}

func TestGroupByDate(t *testing.T) {
	rows := []DailyObservation{
		obs("2024-01-03", "a", 10, 1, 100),
		obs("2024-01-01", "a", 5, 0, 50),
		obs("2024-01-03", "a", 30, 2, 300), // second segment row, same day
	}

	days := GroupByDate(rows)
	require.Len(t, days, 2)
	assert.Equal(t, day("2024-01-01"), days[0].Date)
	assert.Equal(t, day("2024-01-03"), days[1].Date)
	assert.Equal(t, Totals{Visits: 40, Orders: 3, Revenue: 400}, days[1].Totals,
		"same-day segment rows are summed, not averaged")
}
