package ports

import (
	"context"

	"backtester/internal/domain"
)

// RunRepository stores completed backtest runs and their trades.
type RunRepository interface {
	// SaveRun persists a run together with its ordered trade list and
	// returns the assigned run ID.
	SaveRun(ctx context.Context, run *domain.Run, trades []*domain.Trade) (int64, error)
	// FindRuns retrieves the most recent runs, newest first, up to limit.
	// An empty symbol matches all symbols.
	FindRuns(ctx context.Context, symbol string, limit int) ([]*domain.Run, error)
	// FindTradesByRun retrieves the trades of a run in entry-time order.
	FindTradesByRun(ctx context.Context, runID int64) ([]*domain.Trade, error)
}
