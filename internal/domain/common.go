package domain

// Direction represents the side of a simulated position.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// ExitReason indicates why a position was closed.
type ExitReason string

const (
	ExitReasonTakeProfit ExitReason = "TP"
	ExitReasonStopLoss   ExitReason = "SL"
	ExitReasonSignal     ExitReason = "Signal" // Strategy-requested market close
	ExitReasonEndOfData  ExitReason = "End"    // Forced liquidation on the final bar
)
