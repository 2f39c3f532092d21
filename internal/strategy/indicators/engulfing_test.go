package indicators

import (
	"testing"
	"time"

	"backtester/internal/domain"
)

func seriesFromOHLC(ohlc [][4]float64) *domain.Series {
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

func TestBullishEngulfing(t *testing.T) {
	tests := []struct {
		name     string
		ohlc     [][4]float64 // open, high, low, close
		expected []bool
	}{
		{
			name: "bullish body engulfs prior bearish body",
			ohlc: [][4]float64{
				{105, 106, 99, 100}, // bearish
				{99, 107, 98, 106},  // bullish, body spans 99..106 ⊇ 100..105
			},
			expected: []bool{false, true},
		},
		{
			name: "gap up leaves prior close uncovered",
			ohlc: [][4]float64{
				{105, 106, 99, 100},
				{101, 107, 100, 106}, // open 101 > prev close 100
			},
			expected: []bool{false, false},
		},
		{
			name: "two bullish candles never engulf",
			ohlc: [][4]float64{
				{100, 106, 99, 105},
				{99, 107, 98, 106},
			},
			expected: []bool{false, false},
		},
		{
			name:     "single bar is always false",
			ohlc:     [][4]float64{{105, 106, 99, 100}},
			expected: []bool{false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BullishEngulfing(seriesFromOHLC(tt.ohlc))
			for i, want := range tt.expected {
				if got[i] != want {
					t.Errorf("Index %d: expected %v, got %v", i, want, got[i])
				}
			}
		})
	}
}

func TestBearishEngulfing(t *testing.T) {
	tests := []struct {
		name     string
		ohlc     [][4]float64
		expected []bool
	}{
		{
			name: "bearish body engulfs prior bullish body",
			ohlc: [][4]float64{
				{100, 106, 99, 105}, // bullish
				{106, 107, 98, 99},  // bearish, body spans 99..106 ⊇ 100..105
			},
			expected: []bool{false, true},
		},
		{
			name: "prior candle bearish disqualifies",
			ohlc: [][4]float64{
				{105, 106, 99, 100},
				{106, 107, 98, 99},
			},
			expected: []bool{false, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BearishEngulfing(seriesFromOHLC(tt.ohlc))
			for i, want := range tt.expected {
				if got[i] != want {
					t.Errorf("Index %d: expected %v, got %v", i, want, got[i])
				}
			}
		})
	}
}
