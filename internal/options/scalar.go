package options

import "github.com/shopspring/decimal"

// ComputeScalarMetrics derives the consolidated scalar metrics from an
// already-grouped strike series. Fails with ErrEmptyData when the series is
// empty: absence of data must stay distinguishable from a zero value.
//
// Put/call ratios are 0, not infinity, when the call side is empty — a
// non-finite value would leak into currency/percentage formatting downstream.
func ComputeScalarMetrics(series []StrikeLevel, spotPrice decimal.Decimal) (Scalar, error) {
	if len(series) == 0 {
		return Scalar{}, ErrEmptyData
	}

	var s Scalar
	for _, lvl := range series {
		s.CallOI = s.CallOI.Add(lvl.CallOI)
		s.PutOI = s.PutOI.Add(lvl.PutOI)
		s.CallVolume = s.CallVolume.Add(lvl.CallVolume)
		s.PutVolume = s.PutVolume.Add(lvl.PutVolume)
	}
	s.TotalOI = s.CallOI.Add(s.PutOI)
	s.TotalVolume = s.CallVolume.Add(s.PutVolume)
	s.NotionalAsset = s.TotalOI
	s.NotionalUSD = s.TotalOI.Mul(spotPrice)
	if s.CallOI.IsPositive() {
		s.PCRatioOI = s.PutOI.Div(s.CallOI)
	}
	if s.CallVolume.IsPositive() {
		s.PCRatioVolume = s.PutVolume.Div(s.CallVolume)
	}
	s.MaxPainStrike = maxPainStrike(series, spotPrice)
	return s, nil
}

// maxPainStrike finds the strike minimizing the aggregate payout option
// writers would owe if the underlying settled there. The scan is O(n²) over
// the strike series; strike counts are small (tens to low hundreds) and the
// result must be exact, so no shortcut is taken.
//
// Ties on payout resolve to the strike closest to spot; a residual tie
// resolves to the lower strike. The series is ascending, so keeping the
// first candidate on equal distance yields the lower strike.
func maxPainStrike(series []StrikeLevel, spotPrice decimal.Decimal) decimal.Decimal {
	best := series[0].Strike
	bestPayout := writerPayout(series, best)
	bestDist := best.Sub(spotPrice).Abs()

	for _, lvl := range series[1:] {
		payout := writerPayout(series, lvl.Strike)
		cmp := payout.Cmp(bestPayout)
		if cmp > 0 {
			continue
		}
		dist := lvl.Strike.Sub(spotPrice).Abs()
		if cmp == 0 && dist.Cmp(bestDist) >= 0 {
			continue
		}
		best = lvl.Strike
		bestPayout = payout
		bestDist = dist
	}
	return best
}

// writerPayout is the total intrinsic value owed at settlement price k:
// callOI(s)*max(k-s,0) + putOI(s)*max(s-k,0) summed over every strike s.
func writerPayout(series []StrikeLevel, k decimal.Decimal) decimal.Decimal {
	payout := decimal.Zero
	for _, lvl := range series {
		if diff := k.Sub(lvl.Strike); diff.IsPositive() {
			payout = payout.Add(lvl.CallOI.Mul(diff))
		}
		if diff := lvl.Strike.Sub(k); diff.IsPositive() {
			payout = payout.Add(lvl.PutOI.Mul(diff))
		}
	}
	return payout
}
