package indicators

import (
	"context"
	"fmt"
	"sync"

	"backtester/internal/domain"
)

// Config selects which derived series to compute.
type Config struct {
	EMAPeriods []int // e.g. [25, 50, 200]
	RSIPeriod  int   // 0 disables the oscillator
	Engulfing  bool  // candle-pattern series
}

// DefaultConfig returns the periods the reference strategy was built around.
func DefaultConfig() Config {
	return Config{
		EMAPeriods: []int{25, 50, 200},
		RSIPeriod:  14,
		Engulfing:  true,
	}
}

// Compute derives the configured indicator series from the price series.
// Each indicator is a pure function of the immutable series with no
// cross-indicator dependency, so they are computed concurrently; the
// returned set is complete and read-only by the time Compute returns.
func Compute(ctx context.Context, series *domain.Series, cfg Config) (*domain.IndicatorSet, error) {
	if series == nil || series.Len() == 0 {
		return nil, fmt.Errorf("cannot compute indicators of an empty series")
	}

	set := domain.NewIndicatorSet(series.Len())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	storeValues := func(key string, vals []float64) {
		mu.Lock()
		if err := set.SetValues(key, vals); err != nil && firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	storePattern := func(key string, vals []bool) {
		mu.Lock()
		if err := set.SetPattern(key, vals); err != nil && firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for _, period := range cfg.EMAPeriods {
		wg.Add(1)
		go func(period int) {
			defer wg.Done()
			vals, err := EMA(series, period)
			if err != nil {
				fail(fmt.Errorf("ema_%d: %w", period, err))
				return
			}
			storeValues(domain.EMAKey(period), vals)
		}(period)
	}

	if cfg.RSIPeriod > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vals, err := RSI(series, cfg.RSIPeriod)
			if err != nil {
				fail(fmt.Errorf("rsi_%d: %w", cfg.RSIPeriod, err))
				return
			}
			storeValues(domain.RSIKey(cfg.RSIPeriod), vals)
		}()
	}

	if cfg.Engulfing {
		wg.Add(1)
		go func() {
			defer wg.Done()
			storePattern(domain.BullishEngulfingKey, BullishEngulfing(series))
			storePattern(domain.BearishEngulfingKey, BearishEngulfing(series))
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return set, nil
}
