package app

import (
	"context"
	"testing"
	"time"

	"backtester/internal/domain"
	"backtester/internal/strategy/indicators"
	"backtester/internal/strategy/strategies"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// memoryRepo records the last saved run without touching a database.
type memoryRepo struct {
	run    *domain.Run
	trades []*domain.Trade
}

func (r *memoryRepo) SaveRun(ctx context.Context, run *domain.Run, trades []*domain.Trade) (int64, error) {
	r.run = run
	r.trades = trades
	run.ID = 1
	return 1, nil
}

func (r *memoryRepo) FindRuns(ctx context.Context, symbol string, limit int) ([]*domain.Run, error) {
	if r.run == nil {
		return nil, nil
	}
	return []*domain.Run{r.run}, nil
}

func (r *memoryRepo) FindTradesByRun(ctx context.Context, runID int64) ([]*domain.Trade, error) {
	return r.trades, nil
}

func flatSeries(n int, price float64) *domain.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]*domain.Bar, n)
	for i := range bars {
		bars[i] = &domain.Bar{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Symbol:   "ETHUSDT",
			Interval: "1h",
			Open:     price, High: price, Low: price, Close: price,
		}
	}
	return domain.NewSeries(bars)
}

func testStrategy(t *testing.T) *strategies.EMACrossover {
	t.Helper()
	strategy, err := strategies.NewEMACrossover(strategies.EMACrossoverConfig{
		FastPeriod:     25,
		SlowPeriod:     50,
		TrendPeriod:    200,
		CommissionRate: 0.0008,
	}, &mockLogger{})
	require.NoError(t, err)
	return strategy
}

func TestNewBacktestService(t *testing.T) {
	cfg := Config{
		Symbol:         "ETHUSDT",
		InitialCapital: 10000,
		CommissionRate: 0.0008,
		Indicators:     indicators.DefaultConfig(),
	}

	t.Run("valid", func(t *testing.T) {
		svc, err := NewBacktestService(cfg, testStrategy(t), &mockLogger{}, nil)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("nil strategy", func(t *testing.T) {
		_, err := NewBacktestService(cfg, nil, &mockLogger{}, nil)
		require.Error(t, err)
	})

	t.Run("nil logger", func(t *testing.T) {
		_, err := NewBacktestService(cfg, testStrategy(t), nil, nil)
		require.Error(t, err)
	})

	t.Run("non-positive capital", func(t *testing.T) {
		bad := cfg
		bad.InitialCapital = 0
		_, err := NewBacktestService(bad, testStrategy(t), &mockLogger{}, nil)
		require.Error(t, err)
	})
}

func TestBacktestService_RunFlatSeries(t *testing.T) {
	svc, err := NewBacktestService(Config{
		Symbol:         "ETHUSDT",
		InitialCapital: 10000,
		CommissionRate: 0.0008,
		Indicators:     indicators.DefaultConfig(),
	}, testStrategy(t), &mockLogger{}, nil)
	require.NoError(t, err)

	summary, err := svc.Run(context.Background(), flatSeries(250, 100))
	require.NoError(t, err)

	assert.Empty(t, summary.Result.Trades)
	assert.Equal(t, 10000.0, summary.Result.FinalCapital)
	assert.Equal(t, 0, summary.Metrics.TotalTrades)
	assert.Zero(t, summary.RunID)
}

func TestBacktestService_RunPersists(t *testing.T) {
	repo := &memoryRepo{}
	svc, err := NewBacktestService(Config{
		Symbol:         "ETHUSDT",
		InitialCapital: 10000,
		CommissionRate: 0.0008,
		Indicators:     indicators.DefaultConfig(),
	}, testStrategy(t), &mockLogger{}, repo)
	require.NoError(t, err)

	series := flatSeries(250, 100)
	summary, err := svc.Run(context.Background(), series)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.RunID)
	require.NotNil(t, repo.run)
	assert.Equal(t, "ETHUSDT", repo.run.Symbol)
	assert.Equal(t, "ema_crossover", repo.run.Strategy)
	assert.True(t, repo.run.StartTime.Equal(series.First().OpenTime))
	assert.True(t, repo.run.EndTime.Equal(series.Last().OpenTime))
	assert.Equal(t, 10000.0, repo.run.FinalCapital)
}

func TestBacktestService_RunTooShort(t *testing.T) {
	svc, err := NewBacktestService(Config{
		Symbol:         "ETHUSDT",
		InitialCapital: 10000,
		CommissionRate: 0.0008,
		Indicators:     indicators.DefaultConfig(),
	}, testStrategy(t), &mockLogger{}, nil)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), flatSeries(50, 100))
	require.Error(t, err)
}
