package app

import (
	"context"
	"fmt"

	"backtester/internal/domain"
	"backtester/internal/ports"
	"backtester/internal/strategy/analytics"
	"backtester/internal/strategy/backtesting"
	"backtester/internal/strategy/indicators"
)

// Config holds the parameters of one backtest pipeline run.
type Config struct {
	Symbol         string
	InitialCapital float64
	CommissionRate float64
	WarmupBars     int
	Indicators     indicators.Config
}

// Summary bundles the full output of a pipeline run.
type Summary struct {
	Result  *backtesting.Result
	Metrics *analytics.PerformanceMetrics
	RunID   int64 // 0 when persistence is disabled
}

// BacktestService wires the stages of the offline pipeline: indicator
// precomputation, the simulation loop, performance analysis and optional run
// persistence.
type BacktestService struct {
	cfg      Config
	logger   ports.Logger
	strategy ports.Strategy
	repo     ports.RunRepository // Optional; nil disables persistence
}

// NewBacktestService validates dependencies and creates the service.
func NewBacktestService(cfg Config, strategy ports.Strategy, logger ports.Logger, repo ports.RunRepository) (*BacktestService, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfiguration)
	}
	if strategy == nil {
		return nil, ports.ErrStrategyRequired
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("%w: initial capital must be positive", ports.ErrConfiguration)
	}
	if cfg.WarmupBars <= 0 {
		cfg.WarmupBars = strategy.WarmupBars()
	}
	if cfg.WarmupBars < strategy.WarmupBars() {
		logger.Warn(context.Background(), "Warm-up shorter than the strategy requires",
			map[string]interface{}{
				"configured": cfg.WarmupBars,
				"strategy":   strategy.WarmupBars(),
			})
	}
	return &BacktestService{cfg: cfg, logger: logger, strategy: strategy, repo: repo}, nil
}

// Run executes the pipeline over the series and returns the summary. The
// series must already be loaded and validated by the caller's data source.
func (s *BacktestService) Run(ctx context.Context, series *domain.Series) (*Summary, error) {
	set, err := indicators.Compute(ctx, series, s.cfg.Indicators)
	if err != nil {
		return nil, fmt.Errorf("indicator precomputation: %w", err)
	}

	engine, err := backtesting.New(backtesting.Config{
		InitialCapital: s.cfg.InitialCapital,
		CommissionRate: s.cfg.CommissionRate,
		WarmupBars:     s.cfg.WarmupBars,
	}, s.strategy, s.logger)
	if err != nil {
		return nil, err
	}

	result, err := engine.Run(ctx, series, set)
	if err != nil {
		return nil, err
	}

	metrics := analytics.Analyze(result.Trades, result.InitialCapital, result.FinalCapital)
	summary := &Summary{Result: result, Metrics: metrics}

	if s.repo != nil {
		run := &domain.Run{
			Symbol:         s.cfg.Symbol,
			Strategy:       s.strategy.Name(),
			StartTime:      series.First().OpenTime,
			EndTime:        series.Last().OpenTime,
			InitialCapital: result.InitialCapital,
			FinalCapital:   result.FinalCapital,
			CommissionRate: s.cfg.CommissionRate,
		}
		runID, err := s.repo.SaveRun(ctx, run, result.Trades)
		if err != nil {
			// The simulation itself succeeded; report it even if persistence fails
			s.logger.Error(ctx, err, "Failed to persist backtest run")
		} else {
			summary.RunID = runID
		}
	}

	s.logger.Info(ctx, "Pipeline finished", map[string]interface{}{
		"strategy":     s.strategy.Name(),
		"symbol":       s.cfg.Symbol,
		"trades":       metrics.TotalTrades,
		"winRate":      metrics.WinRate,
		"finalCapital": result.FinalCapital,
		"maxDrawdown":  metrics.MaxDrawdown,
	})
	return summary, nil
}
