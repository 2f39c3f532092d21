package backtesting

import (
	"context"
	"fmt"
	"time"

	"backtester/internal/domain"
	"backtester/internal/ports"
)

// Config holds the engine parameters for a single run.
type Config struct {
	InitialCapital float64 // Must be positive
	CommissionRate float64 // Fraction per side, charged on entry and exit
	WarmupBars     int     // Leading bars excluded from trading entirely
}

// Result holds the output of a completed run. Trades are ordered by entry
// time; FinalCapital compounds each trade's percentage P&L over
// InitialCapital.
type Result struct {
	Trades         []*domain.Trade
	InitialCapital float64
	FinalCapital   float64
}

// Engine drives the bar-by-bar simulation: it checks exits on the open
// position, asks the strategy for entries while flat, records completed
// trades and advances capital. At most one position is open at any time.
//
// The loop is strictly sequential: every bar's decisions depend on the
// realized outcome of all prior bars, so no parallelism is possible here
// (indicator precomputation is the concurrent stage, see the indicators
// package).
type Engine struct {
	cfg      Config
	strategy ports.Strategy
	logger   ports.Logger

	position *domain.Position
	capital  float64
	trades   []*domain.Trade
}

// New validates the configuration and creates an engine. All configuration
// problems are rejected here, before any run starts.
func New(cfg Config, strategy ports.Strategy, logger ports.Logger) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfiguration)
	}
	if strategy == nil {
		return nil, ports.ErrStrategyRequired
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("%w: initial capital must be positive, got %f", ports.ErrConfiguration, cfg.InitialCapital)
	}
	if cfg.CommissionRate < 0 {
		return nil, fmt.Errorf("%w: commission rate cannot be negative, got %f", ports.ErrConfiguration, cfg.CommissionRate)
	}
	if cfg.WarmupBars <= 0 {
		return nil, fmt.Errorf("%w: warm-up bar count must be positive, got %d", ports.ErrConfiguration, cfg.WarmupBars)
	}
	return &Engine{cfg: cfg, strategy: strategy, logger: logger}, nil
}

// Run simulates the strategy over the series in a single pass. Identical
// inputs produce identical results; there is nothing nondeterministic in
// the loop.
func (e *Engine) Run(ctx context.Context, series *domain.Series, indicators *domain.IndicatorSet) (*Result, error) {
	if series == nil {
		return nil, fmt.Errorf("%w: series is nil", ports.ErrInvalidData)
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidData, err)
	}
	if series.Len() <= e.cfg.WarmupBars {
		return nil, fmt.Errorf("%w: series has %d bars, need more than the %d warm-up bars",
			ports.ErrInvalidData, series.Len(), e.cfg.WarmupBars)
	}
	if indicators == nil || indicators.Len() != series.Len() {
		return nil, fmt.Errorf("%w: indicator set not aligned with series", ports.ErrInvalidData)
	}

	e.position = nil
	e.capital = e.cfg.InitialCapital
	e.trades = nil

	e.logger.Info(ctx, "Backtest started", map[string]interface{}{
		"strategy":       e.strategy.Name(),
		"bars":           series.Len(),
		"warmupBars":     e.cfg.WarmupBars,
		"initialCapital": e.cfg.InitialCapital,
		"commissionRate": e.cfg.CommissionRate,
	})

	for i := 0; i < series.Len(); i++ {
		// Indicators are not fully settled yet; no exits, no entries
		if i < e.cfg.WarmupBars {
			continue
		}

		bar := series.Bar(i)

		if e.position != nil {
			if exitPrice, reason, hit := checkExit(e.position, bar); hit {
				e.closePosition(ctx, bar.OpenTime, exitPrice, reason)
				// A bar that closes a position never also opens one
				continue
			}
		}

		if e.position == nil {
			if signal := e.strategy.Evaluate(ctx, series, indicators, i); signal != nil {
				if err := e.openPosition(ctx, i, bar, signal); err != nil {
					return nil, err
				}
			}
		}
	}

	// Force-close whatever is still open at the last bar's close
	if e.position != nil {
		last := series.Last()
		e.closePosition(ctx, last.OpenTime, last.Close, domain.ExitReasonEndOfData)
	}

	e.logger.Info(ctx, "Backtest finished", map[string]interface{}{
		"strategy":     e.strategy.Name(),
		"trades":       len(e.trades),
		"finalCapital": e.capital,
	})

	return &Result{
		Trades:         e.trades,
		InitialCapital: e.cfg.InitialCapital,
		FinalCapital:   e.capital,
	}, nil
}

// Position returns the currently open position, or nil. Useful for
// diagnostics; after a completed Run it is always nil because end-of-data
// liquidation is forced.
func (e *Engine) Position() *domain.Position {
	return e.position
}

// Capital returns the engine's current capital.
func (e *Engine) Capital() float64 {
	return e.capital
}

// checkExit tests the bar's full range against the position's fixed levels.
// Intrabar touches fill at the exact level, not at the bar close. The stop is
// always tested before the target: a bar wide enough to reach both resolves
// as a stop-out. That ordering is a deliberate conservative modeling choice
// and materially changes results; do not reorder.
func checkExit(pos *domain.Position, bar *domain.Bar) (float64, domain.ExitReason, bool) {
	if pos.Direction == domain.Long {
		if bar.Low <= pos.StopLoss {
			return pos.StopLoss, domain.ExitReasonStopLoss, true
		}
		if bar.High >= pos.TakeProfit {
			return pos.TakeProfit, domain.ExitReasonTakeProfit, true
		}
		return 0, "", false
	}

	if bar.High >= pos.StopLoss {
		return pos.StopLoss, domain.ExitReasonStopLoss, true
	}
	if bar.Low <= pos.TakeProfit {
		return pos.TakeProfit, domain.ExitReasonTakeProfit, true
	}
	return 0, "", false
}

// openPosition enters at the bar's close with the signal's exit levels.
// Requesting an entry while a position exists is a defect in the engine loop
// or the strategy contract and aborts the run.
func (e *Engine) openPosition(ctx context.Context, index int, bar *domain.Bar, signal *domain.Signal) error {
	if e.position != nil {
		return fmt.Errorf("%w: entry requested at index %d with a position open since index %d",
			ports.ErrPositionConflict, index, e.position.EntryIndex)
	}

	e.position = &domain.Position{
		Direction:  signal.Direction,
		EntryIndex: index,
		EntryTime:  bar.OpenTime,
		EntryPrice: bar.Close,
		StopLoss:   signal.StopLoss,
		TakeProfit: signal.TakeProfit,
	}

	e.logger.Debug(ctx, "Position opened", map[string]interface{}{
		"index":      index,
		"direction":  signal.Direction,
		"entryPrice": bar.Close,
		"stopLoss":   signal.StopLoss,
		"takeProfit": signal.TakeProfit,
	})
	return nil
}

// closePosition records the trade, compounds capital and destroys the
// position. Commission is charged on both sides of the round trip, priced
// off the entry:
//
//	commission = entry * rate * 2
//	net        = gross - commission
//	pct        = net / entry * 100
//	capital   *= 1 + pct/100
func (e *Engine) closePosition(ctx context.Context, exitTime time.Time, exitPrice float64, reason domain.ExitReason) {
	pos := e.position

	commission := pos.EntryPrice * e.cfg.CommissionRate * 2

	gross := exitPrice - pos.EntryPrice
	if pos.Direction == domain.Short {
		gross = pos.EntryPrice - exitPrice
	}

	net := gross - commission
	pct := net / pos.EntryPrice * 100

	trade := &domain.Trade{
		EntryTime:      pos.EntryTime,
		ExitTime:       exitTime,
		Direction:      pos.Direction,
		EntryPrice:     pos.EntryPrice,
		ExitPrice:      exitPrice,
		StopLoss:       pos.StopLoss,
		TakeProfit:     pos.TakeProfit,
		ProfitLoss:     net,
		ProfitLossPct:  pct,
		ExitReason:     reason,
		CommissionPaid: commission,
	}

	e.capital *= 1 + pct/100
	e.trades = append(e.trades, trade)
	e.position = nil

	e.logger.Debug(ctx, "Position closed", map[string]interface{}{
		"direction":  trade.Direction,
		"exitPrice":  exitPrice,
		"exitReason": reason,
		"profitLoss": net,
		"capital":    e.capital,
	})
}
