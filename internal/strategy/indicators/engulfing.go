package indicators

import "backtester/internal/domain"

// BullishEngulfing detects the two-candle bullish engulfing pattern as a
// boolean series aligned with the input. Index i fires when the prior candle
// is bearish (close < open), the current candle is bullish (close > open) and
// the current body fully contains the prior body:
//
//	open[i] <= close[i-1] && close[i] >= open[i-1]
//
// Index 0 has no prior candle and is always false.
func BullishEngulfing(series *domain.Series) []bool {
	n := series.Len()
	out := make([]bool, n)
	for i := 1; i < n; i++ {
		prev, curr := series.Bar(i-1), series.Bar(i)
		prevBearish := prev.Close < prev.Open
		currBullish := curr.Close > curr.Open
		engulfs := curr.Open <= prev.Close && curr.Close >= prev.Open
		out[i] = prevBearish && currBullish && engulfs
	}
	return out
}

// BearishEngulfing is the price-direction mirror of BullishEngulfing: a
// bullish prior candle followed by a bearish candle whose body contains it.
func BearishEngulfing(series *domain.Series) []bool {
	n := series.Len()
	out := make([]bool, n)
	for i := 1; i < n; i++ {
		prev, curr := series.Bar(i-1), series.Bar(i)
		prevBullish := prev.Close > prev.Open
		currBearish := curr.Close < curr.Open
		engulfs := curr.Open >= prev.Close && curr.Close <= prev.Open
		out[i] = prevBullish && currBearish && engulfs
	}
	return out
}
