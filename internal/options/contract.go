// Package options computes aggregate open-interest, volume and sentiment
// metrics over a raw options-chain snapshot: per-strike and per-expiration
// series for charting, consolidated scalars (put/call ratios, notional value,
// max pain) and the 4h open-interest delta.
//
// All quantities are carried as decimal.Decimal. Strikes are identified by
// their exact decimal representation; no float bucketing is applied anywhere.
// Every function is pure and safe for concurrent use.
package options

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptionType distinguishes calls from puts. The values match the type token
// in Deribit instrument names (BTC-27JUN25-100000-C).
type OptionType string

const (
	Call OptionType = "C"
	Put  OptionType = "P"
)

// Contract is one traded instrument at a point in time. OpenInterest and
// Volume are asset-denominated (e.g. BTC). MarkIV is nil when the contract
// is too illiquid to quote.
type Contract struct {
	Strike       decimal.Decimal
	Expiration   time.Time
	Type         OptionType
	OpenInterest decimal.Decimal
	Volume       decimal.Decimal
	MarkIV       *decimal.Decimal
}

// Snapshot is a currency-homogeneous options chain plus the spot price at
// capture time. It is produced wholesale by the feed adapter and never
// mutated afterwards.
type Snapshot struct {
	Currency  string
	SpotPrice decimal.Decimal
	AsOf      time.Time
	Contracts []Contract
}

// OIObservation is the compact trace a snapshot leaves behind for historical
// deltas: when it was taken and its total open interest.
type OIObservation struct {
	AsOf    time.Time
	TotalOI decimal.Decimal
}

// Observation reduces the snapshot to its OI observation.
func (s *Snapshot) Observation() OIObservation {
	total := decimal.Zero
	for _, c := range s.Contracts {
		total = total.Add(c.OpenInterest)
	}
	return OIObservation{AsOf: s.AsOf, TotalOI: total}
}

// Expirations returns the distinct expiration dates in the snapshot,
// ascending.
func (s *Snapshot) Expirations() []time.Time {
	levels := GroupByExpiration(s.Contracts)
	out := make([]time.Time, 0, len(levels))
	for _, l := range levels {
		out = append(out, l.Expiration)
	}
	return out
}

// DateUTC truncates t to its UTC calendar date. Expirations are always
// compared at date granularity.
func DateUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// StrikeLevel is one row of the per-strike chart series: call/put open
// interest and volume summed over every contract at that strike.
type StrikeLevel struct {
	Strike     decimal.Decimal
	CallOI     decimal.Decimal
	PutOI      decimal.Decimal
	CallVolume decimal.Decimal
	PutVolume  decimal.Decimal
}

// ExpirationLevel is one row of the expiration calendar series: total open
// interest (calls plus puts) expiring on that date.
type ExpirationLevel struct {
	Expiration   time.Time
	OpenInterest decimal.Decimal
}

// SmilePoint is one row of the volatility smile for a single expiration.
// Either IV may be nil when the corresponding side is unquoted.
type SmilePoint struct {
	Strike decimal.Decimal
	CallIV *decimal.Decimal
	PutIV  *decimal.Decimal
}

// Scalar holds the consolidated metrics the dashboard displays as single
// numbers.
type Scalar struct {
	CallOI        decimal.Decimal
	PutOI         decimal.Decimal
	TotalOI       decimal.Decimal
	CallVolume    decimal.Decimal
	PutVolume     decimal.Decimal
	TotalVolume   decimal.Decimal
	NotionalAsset decimal.Decimal
	NotionalUSD   decimal.Decimal
	PCRatioOI     decimal.Decimal
	PCRatioVolume decimal.Decimal
	MaxPainStrike decimal.Decimal
}

// Metrics is the fully aggregated output for one snapshot and expiration
// filter. Smile is nil unless the aggregation was scoped to a single
// expiration; OIChangePct is nil when no usable prior observation exists.
type Metrics struct {
	StrikeSeries     []StrikeLevel
	ExpirationSeries []ExpirationLevel
	Smile            []SmilePoint
	Scalar           Scalar
	OIChangePct      *decimal.Decimal
}
