package options

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ExpirationFilter scopes an aggregation either to every expiration in the
// chain or to a single calendar date. The zero value is not valid; use
// AllExpirations or SingleExpiration.
type ExpirationFilter struct {
	date  time.Time
	all   bool
	valid bool
}

// AllExpirations aggregates across the whole chain. Smile computation is
// suppressed under this filter.
func AllExpirations() ExpirationFilter {
	return ExpirationFilter{all: true, valid: true}
}

// SingleExpiration scopes the aggregation to one expiration date
// (date granularity, UTC).
func SingleExpiration(date time.Time) ExpirationFilter {
	return ExpirationFilter{date: DateUTC(date), valid: true}
}

// IsAll reports whether the filter spans every expiration.
func (f ExpirationFilter) IsAll() bool { return f.all || !f.valid }

// Date returns the scoped expiration date. Only meaningful when !IsAll().
func (f ExpirationFilter) Date() time.Time { return f.date }

func (f ExpirationFilter) matches(c Contract) bool {
	if f.IsAll() {
		return true
	}
	return DateUTC(c.Expiration).Equal(f.date)
}

// strikeKey identifies a strike by coefficient and exponent, so value-equal
// strikes of different precision (90000 vs 90000.0) keep distinct keys.
// String() would trim the trailing zero and merge them.
func strikeKey(d decimal.Decimal) string {
	return d.Coefficient().String() + "e" + strconv.Itoa(int(d.Exponent()))
}

// GroupByStrike filters contracts to the given expiration scope, groups them
// by strike and sums open interest and volume separately for calls and puts.
// Output is ordered ascending by strike. Strikes are keyed by their exact
// decimal representation: values that carry different precision (90000 vs
// 90000.0) form distinct groups and are the feed adapter's job to normalize.
func GroupByStrike(contracts []Contract, filter ExpirationFilter) []StrikeLevel {
	byStrike := make(map[string]*StrikeLevel)
	for _, c := range contracts {
		if !filter.matches(c) {
			continue
		}
		key := strikeKey(c.Strike)
		lvl, ok := byStrike[key]
		if !ok {
			lvl = &StrikeLevel{Strike: c.Strike}
			byStrike[key] = lvl
		}
		switch c.Type {
		case Call:
			lvl.CallOI = lvl.CallOI.Add(c.OpenInterest)
			lvl.CallVolume = lvl.CallVolume.Add(c.Volume)
		case Put:
			lvl.PutOI = lvl.PutOI.Add(c.OpenInterest)
			lvl.PutVolume = lvl.PutVolume.Add(c.Volume)
		}
	}

	out := make([]StrikeLevel, 0, len(byStrike))
	for _, lvl := range byStrike {
		out = append(out, *lvl)
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Strike.Cmp(out[j].Strike); cmp != 0 {
			return cmp < 0
		}
		return strikeKey(out[i].Strike) < strikeKey(out[j].Strike)
	})
	return out
}

// GroupByExpiration sums total open interest (calls plus puts) per
// expiration date across the whole chain, ordered ascending by date.
func GroupByExpiration(contracts []Contract) []ExpirationLevel {
	byDate := make(map[time.Time]*ExpirationLevel)
	for _, c := range contracts {
		date := DateUTC(c.Expiration)
		lvl, ok := byDate[date]
		if !ok {
			lvl = &ExpirationLevel{Expiration: date}
			byDate[date] = lvl
		}
		lvl.OpenInterest = lvl.OpenInterest.Add(c.OpenInterest)
	}

	out := make([]ExpirationLevel, 0, len(byDate))
	for _, lvl := range byDate {
		out = append(out, *lvl)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Expiration.Before(out[j].Expiration)
	})
	return out
}
