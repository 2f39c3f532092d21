package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"backtester/internal/domain"
	"backtester/internal/strategy/analytics"
)

// ReportInput bundles everything the text report needs.
type ReportInput struct {
	Strategy       string
	Symbol         string
	InitialCapital float64
	FinalCapital   float64
	Metrics        *analytics.PerformanceMetrics
	Trades         []*domain.Trade
}

// WriteReport writes a human-readable summary of a completed run, followed by
// per-trade detail.
func WriteReport(in ReportInput, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	var b strings.Builder
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)
	m := in.Metrics

	b.WriteString(rule + "\n")
	b.WriteString("BACKTEST RESULTS\n")
	b.WriteString(rule + "\n\n")

	b.WriteString("OVERVIEW:\n")
	b.WriteString(thin + "\n")
	fmt.Fprintf(&b, "Strategy:                 %s\n", in.Strategy)
	fmt.Fprintf(&b, "Symbol:                   %s\n", in.Symbol)
	fmt.Fprintf(&b, "Initial capital:          $%.2f\n", in.InitialCapital)
	fmt.Fprintf(&b, "Final capital:            $%.2f\n", in.FinalCapital)
	fmt.Fprintf(&b, "Profit/loss:              $%.2f (%.2f%%)\n", in.FinalCapital-in.InitialCapital, m.TotalReturnPct)
	fmt.Fprintf(&b, "Total commission:         $%.2f\n", m.TotalCommission)
	fmt.Fprintf(&b, "Max drawdown:             %.2f%%\n\n", m.MaxDrawdown)

	b.WriteString("TRADE STATISTICS:\n")
	b.WriteString(thin + "\n")
	fmt.Fprintf(&b, "Total trades:             %d\n", m.TotalTrades)
	fmt.Fprintf(&b, "Winning trades:           %d (%.2f%%)\n", m.WinningTrades, m.WinRate)
	fmt.Fprintf(&b, "Losing trades:            %d (%.2f%%)\n", m.LosingTrades, 100-safeWinRate(m))
	fmt.Fprintf(&b, "Average win:              $%.2f\n", m.AverageWin)
	fmt.Fprintf(&b, "Average loss:             $%.2f\n", m.AverageLoss)
	fmt.Fprintf(&b, "Profit factor:            %.2f\n", m.ProfitFactor)
	fmt.Fprintf(&b, "Max consecutive wins:     %d\n", m.MaxConsecutiveWins)
	fmt.Fprintf(&b, "Max consecutive losses:   %d\n\n", m.MaxConsecutiveLosses)

	b.WriteString("TRADE DETAILS:\n")
	b.WriteString(rule + "\n\n")
	for i, trade := range in.Trades {
		fmt.Fprintf(&b, "Trade #%d:\n", i+1)
		fmt.Fprintf(&b, "  Direction:        %s\n", strings.ToUpper(string(trade.Direction)))
		fmt.Fprintf(&b, "  Entry:            %s @ $%.2f\n", trade.EntryTime.Format(time.RFC3339), trade.EntryPrice)
		fmt.Fprintf(&b, "  Exit:             %s @ $%.2f\n", trade.ExitTime.Format(time.RFC3339), trade.ExitPrice)
		fmt.Fprintf(&b, "  Stop loss:        $%.2f\n", trade.StopLoss)
		fmt.Fprintf(&b, "  Take profit:      $%.2f\n", trade.TakeProfit)
		fmt.Fprintf(&b, "  Result:           $%.2f (%.2f%%)\n", trade.ProfitLoss, trade.ProfitLossPct)
		fmt.Fprintf(&b, "  Commission:       $%.2f\n", trade.CommissionPaid)
		fmt.Fprintf(&b, "  Exit reason:      %s\n", trade.ExitReason)
		b.WriteString(thin + "\n")
	}

	_, err = file.WriteString(b.String())
	return err
}

// safeWinRate avoids printing a misleading 100% loss rate for empty runs.
func safeWinRate(m *analytics.PerformanceMetrics) float64 {
	if m.TotalTrades == 0 {
		return 100
	}
	return m.WinRate
}
