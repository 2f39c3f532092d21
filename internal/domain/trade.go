package domain

import "time"

// Trade represents a completed round trip. Trades are append-only records
// created at position close and never mutated afterwards; the ordered trade
// sequence is the authoritative output of a backtest.
type Trade struct {
	EntryTime      time.Time
	ExitTime       time.Time
	Direction      Direction
	EntryPrice     float64
	ExitPrice      float64
	StopLoss       float64
	TakeProfit     float64
	ProfitLoss     float64    // Net P&L in price units, commission deducted
	ProfitLossPct  float64    // Net P&L as percent of entry price
	ExitReason     ExitReason // TP, SL, Signal or End
	CommissionPaid float64    // entry_price * commission_rate * 2
}
