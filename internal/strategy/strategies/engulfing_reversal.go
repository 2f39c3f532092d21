package strategies

import (
	"context"
	"fmt"

	"backtester/internal/domain"
	"backtester/internal/ports"
)

// EngulfingReversalConfig holds parameters for the engulfing reversal strategy.
type EngulfingReversalConfig struct {
	RSIPeriod       int     // e.g. 14
	Oversold        float64 // e.g. 30
	Overbought      float64 // e.g. 70
	CommissionRate  float64
	RewardRiskRatio float64 // 0 defaults to 2
}

// EngulfingReversal trades two-candle engulfing reversals confirmed by the
// relative-strength oscillator: a bullish engulfing candle in oversold
// territory opens a long, a bearish one in overbought territory opens a
// short. Exit geometry and the liquidity filter match the reference
// EMA crossover strategy.
type EngulfingReversal struct {
	cfg    EngulfingReversalConfig
	logger ports.Logger
}

// NewEngulfingReversal validates the configuration and creates the strategy.
func NewEngulfingReversal(cfg EngulfingReversalConfig, logger ports.Logger) (*EngulfingReversal, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfiguration)
	}
	if cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("%w: RSI period must be positive", ports.ErrConfiguration)
	}
	if cfg.Oversold < 0 || cfg.Overbought > 100 || cfg.Oversold >= cfg.Overbought {
		return nil, fmt.Errorf("%w: RSI thresholds must satisfy 0 <= oversold < overbought <= 100", ports.ErrConfiguration)
	}
	if cfg.CommissionRate < 0 {
		return nil, fmt.Errorf("%w: commission rate cannot be negative", ports.ErrConfiguration)
	}
	if cfg.RewardRiskRatio == 0 {
		cfg.RewardRiskRatio = 2
	}
	return &EngulfingReversal{cfg: cfg, logger: logger}, nil
}

// Name returns the strategy identifier.
func (s *EngulfingReversal) Name() string {
	return "engulfing_reversal"
}

// WarmupBars returns the bars needed before the oscillator is settled.
// The recurrence is defined from index 1, but early values are dominated by
// the seed; one full period is a practical floor.
func (s *EngulfingReversal) WarmupBars() int {
	return s.cfg.RSIPeriod + 1
}

// Evaluate returns an entry signal at index, or nil.
func (s *EngulfingReversal) Evaluate(ctx context.Context, series *domain.Series, indicators *domain.IndicatorSet, index int) *domain.Signal {
	if index < 1 {
		return nil
	}

	rsi, ok := indicators.Value(domain.RSIKey(s.cfg.RSIPeriod), index)
	if !ok {
		s.logger.Debug(ctx, "RSI series missing from indicator set, no signal",
			map[string]interface{}{"strategy": s.Name(), "index": index})
		return nil
	}
	// A NaN oscillator value fails both comparisons below, which is the
	// behavior we want during warm-up.

	bar := series.Bar(index)
	minCandleRange := 2 * s.cfg.CommissionRate * bar.Close

	if indicators.Pattern(domain.BullishEngulfingKey, index) &&
		rsi < s.cfg.Oversold &&
		bar.Close-bar.Low > minCandleRange {
		risk := bar.Close - bar.Low
		return &domain.Signal{
			Direction:  domain.Long,
			StopLoss:   bar.Low,
			TakeProfit: bar.Close + s.cfg.RewardRiskRatio*risk,
		}
	}

	if indicators.Pattern(domain.BearishEngulfingKey, index) &&
		rsi > s.cfg.Overbought &&
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
