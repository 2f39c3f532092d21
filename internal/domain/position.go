package domain

import "time"

// Position represents the single open position of a backtest run.
// It is owned exclusively by the engine: created on entry, destroyed on
// close, and never exists in any other state. Stop and target are fixed at
// open and never revised (no trailing behavior).
type Position struct {
	Direction  Direction
	EntryIndex int       // Bar index the position was opened on
	EntryTime  time.Time // Timestamp of the entry bar
	EntryPrice float64   // Close of the entry bar
	StopLoss   float64
	TakeProfit float64
}
