package domain

import "fmt"

// Series is an ordered, time-indexed price series. It is the immutable
// substrate every other component reads from: the engine, the indicator
// computations and the strategies never modify it.
type Series struct {
	bars []*Bar
}

// NewSeries wraps the given bars. Ownership of the slice transfers to the
// series; callers must not mutate the bars afterwards.
func NewSeries(bars []*Bar) *Series {
	return &Series{bars: bars}
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	return len(s.bars)
}

// Bar returns the bar at index i.
func (s *Series) Bar(i int) *Bar {
	return s.bars[i]
}

// First returns the earliest bar, or nil for an empty series.
func (s *Series) First() *Bar {
	if len(s.bars) == 0 {
		return nil
	}
	return s.bars[0]
}

// Last returns the latest bar, or nil for an empty series.
func (s *Series) Last() *Bar {
	if len(s.bars) == 0 {
		return nil
	}
	return s.bars[len(s.bars)-1]
}

// Validate checks the structural invariants the simulation relies on:
// a non-empty series with strictly increasing timestamps and nil-free bars.
// Price sanity (high >= max(open, close) etc.) is the loader's concern.
func (s *Series) Validate() error {
	if len(s.bars) == 0 {
		return fmt.Errorf("series contains no bars")
	}
	for i, b := range s.bars {
		if b == nil {
			return fmt.Errorf("series contains nil bar at index %d", i)
		}
		if i > 0 && !s.bars[i-1].OpenTime.Before(b.OpenTime) {
			return fmt.Errorf("timestamps not strictly increasing at index %d (%s >= %s)",
				i, s.bars[i-1].OpenTime, b.OpenTime)
		}
	}
	return nil
}
