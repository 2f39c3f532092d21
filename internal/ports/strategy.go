package ports

import (
	"context"

	"backtester/internal/domain"
)

// Strategy is the pluggable signal predicate injected into the backtest
// engine. Implementations must be pure with respect to engine state: they
// read the series and indicators and return a signal, nothing else.
type Strategy interface {
	// Name returns the strategy identifier used in logs, reports and
	// persisted runs.
	Name() string

	// WarmupBars returns the number of leading bars the strategy needs
	// before Evaluate produces meaningful results (typically the longest
	// indicator period it reads).
	WarmupBars() int

	// Evaluate inspects the indicator-augmented series at index and returns
	// an entry signal, or nil for no signal. The engine calls it only while
	// no position is open.
	Evaluate(ctx context.Context, series *domain.Series, indicators *domain.IndicatorSet, index int) *domain.Signal
}
