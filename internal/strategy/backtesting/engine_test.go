package backtesting

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"backtester/internal/domain"
	"backtester/internal/ports"
	"backtester/internal/strategy/indicators"
	"backtester/internal/strategy/strategies"
)

// scriptedStrategy returns pre-arranged signals at fixed indices, which lets
// the tests control entry geometry exactly.
type scriptedStrategy struct {
	signals map[int]*domain.Signal
	warmup  int
}

func (s *scriptedStrategy) Name() string    { return "scripted" }
func (s *scriptedStrategy) WarmupBars() int { return s.warmup }
func (s *scriptedStrategy) Evaluate(ctx context.Context, series *domain.Series, ind *domain.IndicatorSet, index int) *domain.Signal {
	return s.signals[index]
}

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func makeSeries(ohlc [][4]float64) *domain.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]*domain.Bar, len(ohlc))
	for i, v := range ohlc {
		bars[i] = &domain.Bar{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     v[0],
			High:     v[1],
			Low:      v[2],
			Close:    v[3],
		}
	}
	return domain.NewSeries(bars)
}

func flatBar(price float64) [4]float64 {
	return [4]float64{price, price, price, price}
}

func emptyIndicators(series *domain.Series) *domain.IndicatorSet {
	return domain.NewIndicatorSet(series.Len())
}

func TestNew(t *testing.T) {
	valid := Config{InitialCapital: 10000, CommissionRate: 0.0008, WarmupBars: 200}
	strategy := &scriptedStrategy{}

	tests := []struct {
		name     string
		cfg      Config
		strategy ports.Strategy
		logger   ports.Logger
		wantErr  error
	}{
		{name: "valid", cfg: valid, strategy: strategy, logger: nopLogger{}},
		{name: "nil strategy", cfg: valid, logger: nopLogger{}, wantErr: ports.ErrStrategyRequired},
		{name: "nil logger", cfg: valid, strategy: strategy, wantErr: ports.ErrConfiguration},
		{
			name:     "non-positive capital",
			cfg:      Config{InitialCapital: 0, CommissionRate: 0.0008, WarmupBars: 200},
			strategy: strategy, logger: nopLogger{},
			wantErr: ports.ErrConfiguration,
		},
		{
			name:     "negative commission",
			cfg:      Config{InitialCapital: 10000, CommissionRate: -0.1, WarmupBars: 200},
			strategy: strategy, logger: nopLogger{},
			wantErr: ports.ErrConfiguration,
		},
		{
			name:     "non-positive warmup",
			cfg:      Config{InitialCapital: 10000, CommissionRate: 0.0008, WarmupBars: 0},
			strategy: strategy, logger: nopLogger{},
			wantErr: ports.ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, tt.strategy, tt.logger)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRun_DataValidation(t *testing.T) {
	engine, err := New(Config{InitialCapital: 1000, CommissionRate: 0, WarmupBars: 5}, &scriptedStrategy{}, nopLogger{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	t.Run("nil series", func(t *testing.T) {
		if _, err := engine.Run(context.Background(), nil, nil); !errors.Is(err, ports.ErrInvalidData) {
			t.Errorf("Expected ErrInvalidData, got %v", err)
		}
	})

	t.Run("series shorter than warm-up", func(t *testing.T) {
		series := makeSeries([][4]float64{flatBar(100), flatBar(100)})
		// duplicate timestamps would also fail, keep them increasing
		if _, err := engine.Run(context.Background(), series, emptyIndicators(series)); !errors.Is(err, ports.ErrInvalidData) {
			t.Errorf("Expected ErrInvalidData, got %v", err)
		}
	})

	t.Run("non-monotonic timestamps", func(t *testing.T) {
		ohlc := make([][4]float64, 10)
		for i := range ohlc {
			ohlc[i] = flatBar(100)
		}
		series := makeSeries(ohlc)
		series.Bar(4).OpenTime = series.Bar(3).OpenTime // break ordering
		if _, err := engine.Run(context.Background(), series, emptyIndicators(series)); !errors.Is(err, ports.ErrInvalidData) {
			t.Errorf("Expected ErrInvalidData, got %v", err)
		}
	})

	t.Run("indicator set misaligned", func(t *testing.T) {
		ohlc := make([][4]float64, 10)
		for i := range ohlc {
			ohlc[i] = flatBar(100)
		}
		series := makeSeries(ohlc)
		if _, err := engine.Run(context.Background(), series, domain.NewIndicatorSet(3)); !errors.Is(err, ports.ErrInvalidData) {
			t.Errorf("Expected ErrInvalidData, got %v", err)
		}
	})
}

// Flat series through the reference strategy: no crossover can fire, so the
// run produces zero trades and capital is conserved.
func TestRun_FlatSeriesNoTrades(t *testing.T) {
	ohlc := make([][4]float64, 201)
	for i := range ohlc {
		ohlc[i] = flatBar(100)
	}
	series := makeSeries(ohlc)

	set, err := indicators.Compute(context.Background(), series, indicators.DefaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	strategy, err := strategies.NewEMACrossover(strategies.EMACrossoverConfig{
		FastPeriod:     25,
		SlowPeriod:     50,
		TrendPeriod:    200,
		CommissionRate: 0.0008,
	}, nopLogger{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	engine, err := New(Config{InitialCapital: 10000, CommissionRate: 0.0008, WarmupBars: 200}, strategy, nopLogger{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	result, err := engine.Run(context.Background(), series, set)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Trades) != 0 {
		t.Errorf("Expected 0 trades, got %d", len(result.Trades))
	}
	if result.FinalCapital != 10000 {
		t.Errorf("Expected capital unchanged at 10000, got %f", result.FinalCapital)
	}
}

func TestRun_StopLossExit(t *testing.T) {
	const rate = 0.0008
	series := makeSeries([][4]float64{
		flatBar(100), flatBar(100), // warm-up
		{104, 111, 100, 110},  // signal bar, entry at close
		{109, 109, 95, 96},    // low breaches the stop
		flatBar(96),           // trailing flat bar
	})
	strategy := &scriptedStrategy{signals: map[int]*domain.Signal{
		2: {Direction: domain.Long, StopLoss: 100, TakeProfit: 130},
	}}

	engine, err := New(Config{InitialCapital: 1000, CommissionRate: rate, WarmupBars: 2}, strategy, nopLogger{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	result, err := engine.Run(context.Background(), series, emptyIndicators(series))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(result.Trades))
	}
	trade := result.Trades[0]

	if trade.ExitReason != domain.ExitReasonStopLoss {
		t.Errorf("Expected exit reason SL, got %s", trade.ExitReason)
	}
	if trade.EntryPrice != 110 {
		t.Errorf("Expected entry at 110, got %f", trade.EntryPrice)
	}
	if trade.ExitPrice != 100 {
		t.Errorf("Expected fill at the exact stop level 100, got %f", trade.ExitPrice)
	}

	wantCommission := 110 * rate * 2
	if math.Abs(trade.CommissionPaid-wantCommission) > 1e-12 {
		t.Errorf("Expected commission %f, got %f", wantCommission, trade.CommissionPaid)
	}
	wantNet := (100.0 - 110.0) - wantCommission
	if math.Abs(trade.ProfitLoss-wantNet) > 1e-12 {
		t.Errorf("Expected net P&L %f, got %f", wantNet, trade.ProfitLoss)
	}
	wantPct := wantNet / 110 * 100
	if math.Abs(trade.ProfitLossPct-wantPct) > 1e-12 {
		t.Errorf("Expected P&L pct %f, got %f", wantPct, trade.ProfitLossPct)
	}
	wantCapital := 1000 * (1 + wantPct/100)
	if math.Abs(result.FinalCapital-wantCapital) > 1e-9 {
		t.Errorf("Expected final capital %f, got %f", wantCapital, result.FinalCapital)
	}
}

func TestRun_TakeProfitExit(t *testing.T) {
	series := makeSeries([][4]float64{
		flatBar(100), flatBar(100),
		{104, 111, 101, 110}, // entry long at 110
		{111, 131, 110, 125}, // high reaches the 130 target, low stays above 100
		flatBar(125),
	})
	strategy := &scriptedStrategy{signals: map[int]*domain.Signal{
		2: {Direction: domain.Long, StopLoss: 100, TakeProfit: 130},
	}}

	engine, _ := New(Config{InitialCapital: 1000, CommissionRate: 0.0008, WarmupBars: 2}, strategy, nopLogger{})
	result, err := engine.Run(context.Background(), series, emptyIndicators(series))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.ExitReason != domain.ExitReasonTakeProfit {
		t.Errorf("Expected exit reason TP, got %s", trade.ExitReason)
	}
	if trade.ExitPrice != 130 {
		t.Errorf("Expected fill at the exact target 130, got %f", trade.ExitPrice)
	}
}

// A bar wide enough to touch both levels must resolve as a stop-out, in both
// directions.
func TestRun_ExitPriorityStopBeforeTarget(t *testing.T) {
	tests := []struct {
		name   string
		signal *domain.Signal
	}{
		{
			name:   "long",
			signal: &domain.Signal{Direction: domain.Long, StopLoss: 100, TakeProfit: 130},
		},
		{
			name:   "short",
			signal: &domain.Signal{Direction: domain.Short, StopLoss: 130, TakeProfit: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := makeSeries([][4]float64{
				flatBar(110), flatBar(110),
				{110, 115, 105, 110}, // entry at 110
				{110, 140, 90, 115},  // touches stop and target in one bar
				flatBar(115),
			})
			strategy := &scriptedStrategy{signals: map[int]*domain.Signal{2: tt.signal}}

			engine, _ := New(Config{InitialCapital: 1000, CommissionRate: 0, WarmupBars: 2}, strategy, nopLogger{})
			result, err := engine.Run(context.Background(), series, emptyIndicators(series))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(result.Trades) != 1 {
				t.Fatalf("Expected 1 trade, got %d", len(result.Trades))
			}
			if result.Trades[0].ExitReason != domain.ExitReasonStopLoss {
				t.Errorf("Expected SL to win the ambiguous bar, got %s", result.Trades[0].ExitReason)
			}
			if result.Trades[0].ExitPrice != tt.signal.StopLoss {
				t.Errorf("Expected exit at stop %f, got %f", tt.signal.StopLoss, result.Trades[0].ExitPrice)
			}
		})
	}
}

func TestRun_ShortProfit(t *testing.T) {
	const rate = 0.001
	series := makeSeries([][4]float64{
		flatBar(100), flatBar(100),
		{101, 102, 89, 90}, // short entry at 90
		{90, 91, 69, 72},   // low reaches the 70 target
		flatBar(72),
	})
	strategy := &scriptedStrategy{signals: map[int]*domain.Signal{
		2: {Direction: domain.Short, StopLoss: 102, TakeProfit: 70},
	}}

	engine, _ := New(Config{InitialCapital: 1000, CommissionRate: rate, WarmupBars: 2}, strategy, nopLogger{})
	result, err := engine.Run(context.Background(), series, emptyIndicators(series))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.ExitReason != domain.ExitReasonTakeProfit {
		t.Errorf("Expected exit reason TP, got %s", trade.ExitReason)
	}
	wantNet := (90.0 - 70.0) - 90*rate*2
	if math.Abs(trade.ProfitLoss-wantNet) > 1e-12 {
		t.Errorf("Expected net P&L %f, got %f", wantNet, trade.ProfitLoss)
	}
}

func TestRun_ForcedEndOfDataClose(t *testing.T) {
	series := makeSeries([][4]float64{
		flatBar(100), flatBar(100),
		{104, 111, 101, 110}, // entry long at 110
		{110, 112, 108, 111}, // neither level touched
		{111, 113, 109, 112}, // last bar
	})
	strategy := &scriptedStrategy{signals: map[int]*domain.Signal{
		2: {Direction: domain.Long, StopLoss: 100, TakeProfit: 130},
	}}

	engine, _ := New(Config{InitialCapital: 1000, CommissionRate: 0, WarmupBars: 2}, strategy, nopLogger{})
	result, err := engine.Run(context.Background(), series, emptyIndicators(series))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.ExitReason != domain.ExitReasonEndOfData {
		t.Errorf("Expected exit reason End, got %s", trade.ExitReason)
	}
	if trade.ExitPrice != 112 {
		t.Errorf("Expected forced close at last close 112, got %f", trade.ExitPrice)
	}
	if engine.Position() != nil {
		t.Error("Expected no open position after the run")
	}
}

// A bar that closes a position must never open a new one; the next signal
// bar may.
func TestRun_NoEntryOnClosingBar(t *testing.T) {
	series := makeSeries([][4]float64{
		flatBar(100), flatBar(100),
		{104, 111, 101, 110}, // entry long at 110
		{109, 109, 95, 96},   // stop-out bar; a signal here must be ignored
		{96, 98, 94, 97},     // next bar, signal honored
		flatBar(97),
	})
	strategy := &scriptedStrategy{signals: map[int]*domain.Signal{
		2: {Direction: domain.Long, StopLoss: 100, TakeProfit: 130},
		3: {Direction: domain.Long, StopLoss: 90, TakeProfit: 120},
		4: {Direction: domain.Long, StopLoss: 90, TakeProfit: 120},
	}}

	engine, _ := New(Config{InitialCapital: 1000, CommissionRate: 0, WarmupBars: 2}, strategy, nopLogger{})
	result, err := engine.Run(context.Background(), series, emptyIndicators(series))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.Trades) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(result.Trades))
	}
	if got := result.Trades[0].ExitTime; !got.Equal(series.Bar(3).OpenTime) {
		t.Errorf("First trade should close on bar 3, got %s", got)
	}
	if got := result.Trades[1].EntryTime; !got.Equal(series.Bar(4).OpenTime) {
		t.Errorf("Second trade should open on bar 4 (not the closing bar), got %s", got)
	}
}

func TestRun_WarmupSkip(t *testing.T) {
	series := makeSeries([][4]float64{
		flatBar(100), flatBar(100), flatBar(100), flatBar(100), flatBar(100),
	})
	// Signals inside the warm-up region must never open positions
	strategy := &scriptedStrategy{signals: map[int]*domain.Signal{
		0: {Direction: domain.Long, StopLoss: 90, TakeProfit: 120},
		1: {Direction: domain.Long, StopLoss: 90, TakeProfit: 120},
		2: {Direction: domain.Long, StopLoss: 90, TakeProfit: 120},
	}}

	engine, _ := New(Config{InitialCapital: 1000, CommissionRate: 0, WarmupBars: 3}, strategy, nopLogger{})
	result, err := engine.Run(context.Background(), series, emptyIndicators(series))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Trades) != 0 {
		t.Errorf("Expected 0 trades from warm-up signals, got %d", len(result.Trades))
	}
}

func TestRun_TradeOrderingAndCapitalConsistency(t *testing.T) {
	// Signal on every bar; the engine serializes them into non-overlapping
	// round trips with strictly increasing entry times.
	ohlc := [][4]float64{flatBar(100), flatBar(100)}
	for i := 0; i < 20; i++ {
		price := 100 + float64(i%5)
		ohlc = append(ohlc, [4]float64{price, price + 3, price - 3, price + 1})
	}
	series := makeSeries(ohlc)

	signals := make(map[int]*domain.Signal)
	for i := 2; i < series.Len(); i++ {
		price := series.Bar(i).Close
		signals[i] = &domain.Signal{Direction: domain.Long, StopLoss: price - 2, TakeProfit: price + 4}
	}
	strategy := &scriptedStrategy{signals: signals}

	engine, _ := New(Config{InitialCapital: 1000, CommissionRate: 0.0008, WarmupBars: 2}, strategy, nopLogger{})
	result, err := engine.Run(context.Background(), series, emptyIndicators(series))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Trades) == 0 {
		t.Fatal("Expected trades from a signal on every bar")
	}

	capital := 1000.0
	for i, trade := range result.Trades {
		if trade.ExitTime.Before(trade.EntryTime) {
			t.Errorf("Trade %d: exit before entry", i)
		}
		if i > 0 {
			if !result.Trades[i-1].EntryTime.Before(trade.EntryTime) {
				t.Errorf("Trade %d: entry times not strictly increasing", i)
			}
			if trade.EntryTime.Before(result.Trades[i-1].ExitTime) {
				t.Errorf("Trade %d: overlaps previous trade", i)
			}
		}
		capital *= 1 + trade.ProfitLossPct/100
	}
	if math.Abs(result.FinalCapital-capital) > 1e-9 {
		t.Errorf("Final capital %f does not compound from trades (%f)", result.FinalCapital, capital)
	}
}

func TestRun_Determinism(t *testing.T) {
	ohlc := [][4]float64{flatBar(100), flatBar(100)}
	for i := 0; i < 30; i++ {
		price := 100 + 3*math.Sin(float64(i)/3)
		ohlc = append(ohlc, [4]float64{price, price + 2, price - 2, price + 1})
	}
	series := makeSeries(ohlc)

	signals := make(map[int]*domain.Signal)
	for i := 2; i < series.Len(); i += 3 {
		price := series.Bar(i).Close
		signals[i] = &domain.Signal{Direction: domain.Long, StopLoss: price - 1.5, TakeProfit: price + 3}
	}

	run := func() *Result {
		engine, err := New(Config{InitialCapital: 1000, CommissionRate: 0.0008, WarmupBars: 2},
			&scriptedStrategy{signals: signals}, nopLogger{})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		result, err := engine.Run(context.Background(), series, emptyIndicators(series))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		return result
	}

	first, second := run(), run()
	if first.FinalCapital != second.FinalCapital {
		t.Errorf("Final capital differs between runs: %f vs %f", first.FinalCapital, second.FinalCapital)
	}
	if len(first.Trades) != len(second.Trades) {
		t.Fatalf("Trade counts differ: %d vs %d", len(first.Trades), len(second.Trades))
	}
	for i := range first.Trades {
		if *first.Trades[i] != *second.Trades[i] {
			t.Errorf("Trade %d differs between runs", i)
		}
	}
}
