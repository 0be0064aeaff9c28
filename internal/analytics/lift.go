package analytics

import (
	"fmt"
	"math"
)

// Rounding precision for output values: raw window values carry 6 decimal
// places, lift values 4, so identical inputs always serialize identically.
const (
	rawPrecision  = 6
	liftPrecision = 4
)

// Lift holds the three lift figures for one KPI. Unit is percent, or basis
// points when the KPI's IsBasisPoints policy says so.
type Lift struct {
	Pre  float64
	Post float64
	Comp float64
}

// LiftFor computes pre-period, post-period and composite lift for one KPI
// from the four window totals.
//
// Volume and ratio KPIs use relative percent lift, (ty−ly)/ly×100, with 0
// when the LY base is zero. CVR uses an absolute basis-point delta,
// (ty−ly)×10000. The composite is post lift minus pre lift in the same
// unit, a difference-in-differences signal isolating launch-attributable
// change from the pre-existing trend.
//
// A non-finite intermediate (which malformed input can produce) is returned
// as an error so the caller can skip this KPI without aborting its siblings.
func LiftFor(k KPI, wt WindowTotals) (Lift, error) {
	preTY := wt.PreTY.Value(k)
	preLY := wt.PreLY.Value(k)
	postTY := wt.PostTY.Value(k)
	postLY := wt.PostLY.Value(k)

	var l Lift
	if k.IsBasisPoints() {
		l.Pre = (preTY - preLY) * 10000
		l.Post = (postTY - postLY) * 10000
	} else {
		l.Pre = percentLift(preTY, preLY)
		l.Post = percentLift(postTY, postLY)
	}
	l.Comp = l.Post - l.Pre

	for _, v := range []float64{preTY, preLY, postTY, postLY, l.Pre, l.Post, l.Comp} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Lift{}, fmt.Errorf("non-finite %s value", k)
		}
	}
	return l, nil
}

// percentLift returns the relative change ty vs ly in percent, 0 when the
// base is zero.
func percentLift(ty, ly float64) float64 {
	if ly == 0 {
		return 0.0
	}
	return (ty - ly) / ly * 100
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
