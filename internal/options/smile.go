package options

import (
	"sort"
	"time"
)

// ComputeSmile builds the volatility smile for contracts that have already
// been filtered to a single expiration. For each strike present it emits the
// call-side and put-side mark IV, either of which may be nil when unquoted.
// Output is ordered ascending by strike.
//
// A smile across several expirations is not meaningful: if the input spans
// more than one distinct expiration date, or an expiration other than the
// one requested, ComputeSmile fails with ErrInvalidScope.
func ComputeSmile(contracts []Contract, expiration time.Time) ([]SmilePoint, error) {
	want := DateUTC(expiration)
	byStrike := make(map[string]*SmilePoint)
	for _, c := range contracts {
		if !DateUTC(c.Expiration).Equal(want) {
			return nil, ErrInvalidScope
		}
		key := strikeKey(c.Strike)
		pt, ok := byStrike[key]
		if !ok {
			pt = &SmilePoint{Strike: c.Strike}
			byStrike[key] = pt
		}
		if c.MarkIV == nil {
			continue
		}
		iv := *c.MarkIV
		switch c.Type {
		case Call:
			if pt.CallIV == nil {
				pt.CallIV = &iv
			}
		case Put:
			if pt.PutIV == nil {
				pt.PutIV = &iv
			}
		}
	}

	out := make([]SmilePoint, 0, len(byStrike))
	for _, pt := range byStrike {
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Strike.Cmp(out[j].Strike); cmp != 0 {
			return cmp < 0
		}
		return strikeKey(out[i].Strike) < strikeKey(out[j].Strike)
	})
	return out, nil
}
