package domain

import (
	"fmt"
	"math"
)

// Indicator series keys. Value series follow the "<name>_<period>"
// convention, e.g. "ema_25" or "rsi_14".
const (
	BullishEngulfingKey = "bullish_engulfing"
	BearishEngulfingKey = "bearish_engulfing"
)

// EMAKey returns the value-series key for an EMA of the given period.
func EMAKey(period int) string {
	return fmt.Sprintf("ema_%d", period)
}

// RSIKey returns the value-series key for an RSI of the given period.
func RSIKey(period int) string {
	return fmt.Sprintf("rsi_%d", period)
}

// IndicatorSet is an explicitly keyed bundle of derived series, each aligned
// with the price series it was computed from. Leading positions may be NaN
// while an indicator is still warming up. A set is built once, before the
// simulation starts, and treated as read-only afterwards.
type IndicatorSet struct {
	length   int
	values   map[string][]float64
	patterns map[string][]bool
}

// NewIndicatorSet creates an empty set for series of the given length.
func NewIndicatorSet(length int) *IndicatorSet {
	return &IndicatorSet{
		length:   length,
		values:   make(map[string][]float64),
		patterns: make(map[string][]bool),
	}
}

// Len returns the series length every stored series must match.
func (s *IndicatorSet) Len() int {
	return s.length
}

// SetValues stores a value series under the given key.
func (s *IndicatorSet) SetValues(key string, series []float64) error {
	if len(series) != s.length {
		return fmt.Errorf("indicator %q has length %d, want %d", key, len(series), s.length)
	}
	s.values[key] = series
	return nil
}

// SetPattern stores a boolean pattern series under the given key.
func (s *IndicatorSet) SetPattern(key string, series []bool) error {
	if len(series) != s.length {
		return fmt.Errorf("pattern %q has length %d, want %d", key, len(series), s.length)
	}
	s.patterns[key] = series
	return nil
}

// Value returns the indicator value at index i. The second return is false
// when no series is stored under the key; a stored-but-warming-up value is
// reported as NaN with ok=true.
func (s *IndicatorSet) Value(key string, i int) (float64, bool) {
	series, ok := s.values[key]
	if !ok || i < 0 || i >= len(series) {
		return math.NaN(), false
	}
	return series[i], true
}

// Values returns the full value series stored under the key.
func (s *IndicatorSet) Values(key string) ([]float64, bool) {
	series, ok := s.values[key]
	return series, ok
}

// Pattern reports whether the boolean pattern fired at index i.
// Missing keys and out-of-range indices read as false.
func (s *IndicatorSet) Pattern(key string, i int) bool {
	series, ok := s.patterns[key]
	if !ok || i < 0 || i >= len(series) {
		return false
	}
	return series[i]
}
