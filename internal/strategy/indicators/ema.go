package indicators

import (
	"fmt"

	"backtester/internal/domain"
)

// EMA computes an exponential moving average of the close prices as a series
// aligned with the input. Smoothing factor is alpha = 2/(period+1) and the
// recurrence is seeded with the first close, so every index is defined:
//
//	ema[0] = close[0]
//	ema[i] = alpha*close[i] + (1-alpha)*ema[i-1]
func EMA(series *domain.Series, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("EMA period must be positive, got %d", period)
	}
	n := series.Len()
	if n == 0 {
		return nil, fmt.Errorf("cannot compute EMA of an empty series")
	}

	alpha := 2.0 / float64(period+1)
	out := make([]float64, n)
	out[0] = series.Bar(0).Close
	for i := 1; i < n; i++ {
		out[i] = alpha*series.Bar(i).Close + (1-alpha)*out[i-1]
	}
	return out, nil
}
