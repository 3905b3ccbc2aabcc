package options

// Aggregate orchestrates the full pipeline for one snapshot: strike grouping
// under the given filter, expiration grouping over the whole chain (the
// expiration calendar always shows every date regardless of filter), smile
// computation when the filter names a single expiration, scalar metrics over
// the scoped strike series, and the OI delta when a prior observation is
// supplied.
//
// The result is never partially populated: if any step fails the whole
// aggregation fails and the specific error propagates.
func Aggregate(snap Snapshot, filter ExpirationFilter, prior *OIObservation) (Metrics, error) {
	strikeSeries := GroupByStrike(snap.Contracts, filter)

	scalar, err := ComputeScalarMetrics(strikeSeries, snap.SpotPrice)
	if err != nil {
		return Metrics{}, err
	}

	var smile []SmilePoint
	if !filter.IsAll() {
		scoped := make([]Contract, 0, len(snap.Contracts))
		for _, c := range snap.Contracts {
			if filter.matches(c) {
				scoped = append(scoped, c)
			}
		}
		smile, err = ComputeSmile(scoped, filter.Date())
		if err != nil {
			return Metrics{}, err
		}
	}

	// The OI delta always compares whole-chain totals; prior observations
	// are recorded unscoped, so the filter must not narrow the current side.
	return Metrics{
		StrikeSeries:     strikeSeries,
		ExpirationSeries: GroupByExpiration(snap.Contracts),
		Smile:            smile,
		Scalar:           scalar,
		OIChangePct:      ComputeOIChange(snap.Observation().TotalOI, prior, snap.AsOf, DefaultOIWindow),
	}, nil
}
