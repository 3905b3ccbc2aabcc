// Package indicators is the shared technical-indicator library. Every
// function takes a value series and parameters and returns a series of the
// same length, with NaN filling the warm-up prefix where the indicator is
// not yet defined. Callers that need a dense series drop the NaNs.
package indicators

import "math"

// SMA is the simple moving average over the given window.
func SMA(series []float64, window int) []float64 {
	out := nanSeries(len(series))
	if window <= 0 || window > len(series) {
		return out
	}
	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= window {
			sum -= series[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA is the exponential moving average, seeded with the SMA of the first
// window values.
func EMA(series []float64, window int) []float64 {
	out := nanSeries(len(series))
	if window <= 0 || window > len(series) {
		return out
	}
	seed := 0.0
	for _, v := range series[:window] {
		seed += v
	}
	prev := seed / float64(window)
	out[window-1] = prev
	k := 2.0 / float64(window+1)
	for i := window; i < len(series); i++ {
		prev = (series[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// RSI is Wilder's relative strength index over the given period.
func RSI(series []float64, period int) []float64 {
	out := nanSeries(len(series))
	if period <= 0 || len(series) <= period {
		return out
	}
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := series[i] - series[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)
	for i := period + 1; i < len(series); i++ {
		d := series[i] - series[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line (fast EMA minus slow EMA), its signal EMA and
// the histogram (line minus signal).
func MACD(series []float64, fast, slow, signal int) (line, signalLine, histogram []float64) {
	fastEMA := EMA(series, fast)
	slowEMA := EMA(series, slow)
	line = nanSeries(len(series))
	for i := range series {
		line[i] = fastEMA[i] - slowEMA[i]
	}

	// The signal EMA runs over the dense part of the MACD line only.
	start := firstValid(line)
	signalLine = nanSeries(len(series))
	histogram = nanSeries(len(series))
	if start < 0 {
		return line, signalLine, histogram
	}
	denseSignal := EMA(line[start:], signal)
	for i, v := range denseSignal {
		signalLine[start+i] = v
		if !math.IsNaN(v) {
			histogram[start+i] = line[start+i] - v
		}
	}
	return line, signalLine, histogram
}

// Bollinger returns the middle band (SMA), upper and lower bands at mult
// standard deviations.
func Bollinger(series []float64, window int, mult float64) (middle, upper, lower []float64) {
	middle = SMA(series, window)
	upper = nanSeries(len(series))
	lower = nanSeries(len(series))
	if window <= 0 || window > len(series) {
		return middle, upper, lower
	}
	for i := window - 1; i < len(series); i++ {
		mean := middle[i]
		varSum := 0.0
		for _, v := range series[i-window+1 : i+1] {
			d := v - mean
			varSum += d * d
		}
		sd := math.Sqrt(varSum / float64(window))
		upper[i] = mean + mult*sd
		lower[i] = mean - mult*sd
	}
	return middle, upper, lower
}

// DropNaN returns the dense suffix of a warm-up-prefixed series along with
// the index of its first defined value.
func DropNaN(series []float64) ([]float64, int) {
	start := firstValid(series)
	if start < 0 {
		return nil, -1
	}
	return series[start:], start
}

func firstValid(series []float64) int {
	for i, v := range series {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
