package strategies

import (
	"context"
	"fmt"

	"backtester/internal/domain"
	"backtester/internal/ports"
)

// EMACrossoverConfig holds parameters for the EMA crossover strategy.
type EMACrossoverConfig struct {
	FastPeriod      int     // e.g. 25
	SlowPeriod      int     // e.g. 50
	TrendPeriod     int     // e.g. 200, also the trend filter EMA
	CommissionRate  float64 // round-trip half-rate, used by the liquidity filter
	RewardRiskRatio float64 // take-profit distance as a multiple of risk; 0 defaults to 2
}

// EMACrossover is the reference signal predicate: a fast/slow EMA crossover
// gated by a long-term trend filter and a liquidity filter that rejects
// candles too small to overcome round-trip commission.
//
// Long entry at bar i requires:
//   - close > trend EMA (uptrend),
//   - fast EMA below slow EMA at i-1 and above at i (upward cross),
//   - close − low > 2 × commission_rate × close.
//
// Stop goes at the signal bar's low, target at entry + ratio×risk. Short is
// the mirror. The long conditions are checked first; if a degenerate bar
// satisfies both sides, long wins.
type EMACrossover struct {
	cfg    EMACrossoverConfig
	logger ports.Logger
}

// NewEMACrossover validates the configuration and creates the strategy.
func NewEMACrossover(cfg EMACrossoverConfig, logger ports.Logger) (*EMACrossover, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfiguration)
	}
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 || cfg.TrendPeriod <= 0 {
		return nil, fmt.Errorf("%w: EMA periods must be positive", ports.ErrConfiguration)
	}
	if cfg.FastPeriod >= cfg.SlowPeriod || cfg.SlowPeriod >= cfg.TrendPeriod {
		return nil, fmt.Errorf("%w: EMA periods must satisfy fast < slow < trend", ports.ErrConfiguration)
	}
	if cfg.CommissionRate < 0 {
		return nil, fmt.Errorf("%w: commission rate cannot be negative", ports.ErrConfiguration)
	}
	if cfg.RewardRiskRatio == 0 {
		cfg.RewardRiskRatio = 2
	}
	return &EMACrossover{cfg: cfg, logger: logger}, nil
}

// Name returns the strategy identifier.
func (s *EMACrossover) Name() string {
	return "ema_crossover"
}

// WarmupBars returns the longest indicator period the strategy reads.
func (s *EMACrossover) WarmupBars() int {
	return s.cfg.TrendPeriod
}

// Evaluate returns an entry signal at index, or nil.
func (s *EMACrossover) Evaluate(ctx context.Context, series *domain.Series, indicators *domain.IndicatorSet, index int) *domain.Signal {
	if index < 1 {
		// Crossover detection needs one prior bar
		return nil
	}

	fastCurr, okFC := indicators.Value(domain.EMAKey(s.cfg.FastPeriod), index)
	fastPrev, okFP := indicators.Value(domain.EMAKey(s.cfg.FastPeriod), index-1)
	slowCurr, okSC := indicators.Value(domain.EMAKey(s.cfg.SlowPeriod), index)
	slowPrev, okSP := indicators.Value(domain.EMAKey(s.cfg.SlowPeriod), index-1)
	trend, okT := indicators.Value(domain.EMAKey(s.cfg.TrendPeriod), index)
	if !okFC || !okFP || !okSC || !okSP || !okT {
		s.logger.Debug(ctx, "EMA series missing from indicator set, no signal",
			map[string]interface{}{"strategy": s.Name(), "index": index})
		return nil
	}

	bar := series.Bar(index)
	minCandleRange := 2 * s.cfg.CommissionRate * bar.Close

	// Long: uptrend, upward cross, candle large enough to pay the round trip
	if bar.Close > trend &&
		fastPrev < slowPrev && fastCurr > slowCurr &&
		bar.Close-bar.Low > minCandleRange {
		risk := bar.Close - bar.Low
		return &domain.Signal{
			Direction:  domain.Long,
			StopLoss:   bar.Low,
			TakeProfit: bar.Close + s.cfg.RewardRiskRatio*risk,
		}
	}

	// Short mirror: downtrend, downward cross
	if bar.Close < trend &&
		fastPrev > slowPrev && fastCurr < slowCurr &&
		bar.High-bar.Close > minCandleRange {
		risk := bar.High - bar.Close
		return &domain.Signal{
			Direction:  domain.Short,
			StopLoss:   bar.High,
			TakeProfit: bar.Close - s.cfg.RewardRiskRatio*risk,
		}
	}

	return nil
}
