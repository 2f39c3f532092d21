package domain

// Signal describes a strategy entry request: the side to take and the fixed
// exit levels for the resulting position. Entry price is always the close of
// the bar the signal fired on; the engine fills in the rest.
type Signal struct {
	Direction  Direction
	StopLoss   float64 // Absolute price level, fixed at open
	TakeProfit float64 // Absolute price level, fixed at open
}
