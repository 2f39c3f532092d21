package domain

import "time"

// Run captures one completed backtest for persistence and later comparison.
type Run struct {
	ID             int64 // Assigned by the repository
	Symbol         string
	Strategy       string
	StartTime      time.Time // Open time of the first bar
	EndTime        time.Time // Open time of the last bar
	InitialCapital float64
	FinalCapital   float64
	CommissionRate float64
	TotalTrades    int
	CreatedAt      time.Time
}
