package analytics

import (
	"time"

	"backtester/internal/domain"
)

// PerformanceMetrics holds aggregate performance metrics for a completed run.
type PerformanceMetrics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // percent

	TotalNetProfit  float64
	TotalCommission float64
	TotalReturnPct  float64 // from capital, reflects compounding
	AverageWin      float64
	AverageLoss     float64 // absolute value
	ProfitFactor    float64
	MaxDrawdown     float64 // percent, 0..100

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageTradeDuration time.Duration

	EquityCurve []EquityPoint
}

// EquityPoint is a point on the capital curve, recorded at each trade exit.
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64 // percent decline from the running peak
}

// Analyze computes metrics from an ordered trade list. Trades with net P&L
// above zero count as wins, everything else as losses. An empty list returns
// zero-valued metrics with TotalReturnPct derived from the capital pair; no
// division by zero occurs anywhere.
func Analyze(trades []*domain.Trade, initialCapital, finalCapital float64) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		EquityCurve: make([]EquityPoint, 0, len(trades)),
	}
	if initialCapital > 0 {
		metrics.TotalReturnPct = (finalCapital - initialCapital) / initialCapital * 100
	}
	if len(trades) == 0 {
		return metrics
	}

	var (
		grossWins, grossLosses           float64
		consecutiveWins, consecutiveLosses int
		totalDuration                    time.Duration
	)

	// Capital curve rebuilt multiplicatively from each trade's percentage
	// P&L, peak tracked as it goes.
	capital := initialCapital
	peak := initialCapital

	for _, trade := range trades {
		metrics.TotalTrades++
		metrics.TotalNetProfit += trade.ProfitLoss
		metrics.TotalCommission += trade.CommissionPaid
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)

		if trade.ProfitLoss > 0 {
			metrics.WinningTrades++
			grossWins += trade.ProfitLoss
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			metrics.LosingTrades++
			grossLosses += -trade.ProfitLoss
			consecutiveLosses++
			consecutiveWins = 0
		}
		if consecutiveWins > metrics.MaxConsecutiveWins {
			metrics.MaxConsecutiveWins = consecutiveWins
		}
		if consecutiveLosses > metrics.MaxConsecutiveLosses {
			metrics.MaxConsecutiveLosses = consecutiveLosses
		}

		capital *= 1 + trade.ProfitLossPct/100
		if capital > peak {
			peak = capital
		}
		drawdown := (peak - capital) / peak * 100
		if drawdown > metrics.MaxDrawdown {
			metrics.MaxDrawdown = drawdown
		}
		metrics.EquityCurve = append(metrics.EquityCurve, EquityPoint{
			Time:     trade.ExitTime,
			Value:    capital,
			Drawdown: drawdown,
		})
	}

	metrics.WinRate = float64(metrics.WinningTrades) / float64(metrics.TotalTrades) * 100
	if metrics.WinningTrades > 0 {
		metrics.AverageWin = grossWins / float64(metrics.WinningTrades)
	}
	if metrics.LosingTrades > 0 {
		metrics.AverageLoss = grossLosses / float64(metrics.LosingTrades)
	}
	if grossLosses > 0 {
		metrics.ProfitFactor = grossWins / grossLosses
	}
	metrics.AverageTradeDuration = totalDuration / time.Duration(len(trades))

	return metrics
}
