package indicators

import (
	"fmt"
	"math"

	"backtester/internal/domain"
)

// RSI computes a relative-strength oscillator of the close prices as a series
// aligned with the input. Per-bar deltas are split into gains and losses,
// each smoothed with the same exponential recurrence as EMA (span = period,
// both averages seeded with 0 at index 0 where no delta exists), then
//
//	RS     = avg_gain / avg_loss
//	rsi[i] = 100 - 100/(1+RS)
//
// Index 0 has no delta and is NaN. The division is left to IEEE float
// semantics on purpose: avg_loss == 0 with gains present yields RS = +Inf and
// the oscillator saturates at 100; a perfectly flat stretch (0/0) propagates
// NaN. Neither case panics.
func RSI(series *domain.Series, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("RSI period must be positive, got %d", period)
	}
	n := series.Len()
	if n == 0 {
		return nil, fmt.Errorf("cannot compute RSI of an empty series")
	}

	alpha := 2.0 / float64(period+1)
	out := make([]float64, n)
	out[0] = math.NaN()

	var avgGain, avgLoss float64
	for i := 1; i < n; i++ {
		delta := series.Bar(i).Close - series.Bar(i-1).Close
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)

		avgGain = alpha*gain + (1-alpha)*avgGain
		avgLoss = alpha*loss + (1-alpha)*avgLoss

		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out, nil
}
