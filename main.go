package main

import (
	"context"
	"fmt"
	"log" // Use standard log only for fatal errors before the logger is set up

	"backtester/config"
	"backtester/internal/adapters/logger"
	"backtester/internal/adapters/sqlite"
	"backtester/internal/app"
	"backtester/internal/ports"
	"backtester/internal/strategy/indicators"
	"backtester/internal/strategy/strategies"
	"backtester/internal/utils"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if cfg.DataFile == "" {
		log.Fatalf("FATAL: DATA_FILE must point to a bar CSV (see cmd/fetch_klines)")
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Load the price series
	series, err := utils.ReadBarsFromCSV(cfg.DataFile)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load price series")
		log.Fatalf("FATAL: Failed to load price series: %v", err)
	}
	appLogger.Info(ctx, "Price series loaded", map[string]interface{}{
		"file": cfg.DataFile,
		"bars": series.Len(),
	})

	// 4. Build the strategy
	strat, err := buildStrategy(cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to create strategy")
		log.Fatalf("FATAL: Failed to create strategy: %v", err)
	}

	// 5. Optional run persistence
	var repo ports.RunRepository
	if cfg.DBPath != "" {
		sqliteRepo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
			log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
	}

	// 6. Run the pipeline
	service, err := app.NewBacktestService(app.Config{
		Symbol:         cfg.Symbol,
		InitialCapital: cfg.InitialCapital,
		CommissionRate: cfg.CommissionRate,
		WarmupBars:     cfg.WarmupBars,
		Indicators: indicators.Config{
			EMAPeriods: []int{cfg.FastEMAPeriod, cfg.SlowEMAPeriod, cfg.TrendEMAPeriod},
			RSIPeriod:  cfg.RSIPeriod,
			Engulfing:  true,
		},
	}, strat, appLogger, repo)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to create backtest service")
		log.Fatalf("FATAL: Failed to create backtest service: %v", err)
	}

	summary, err := service.Run(ctx, series)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Backtest failed")
		log.Fatalf("FATAL: Backtest failed: %v", err)
	}

	// 7. Write the report and optional trade CSV
	if err := utils.WriteReport(utils.ReportInput{
		Strategy:       strat.Name(),
		Symbol:         cfg.Symbol,
		InitialCapital: summary.Result.InitialCapital,
		FinalCapital:   summary.Result.FinalCapital,
		Metrics:        summary.Metrics,
		Trades:         summary.Result.Trades,
	}, cfg.ReportFile); err != nil {
		appLogger.Error(ctx, err, "Failed to write report", map[string]interface{}{"file": cfg.ReportFile})
	} else {
		appLogger.Info(ctx, "Report written", map[string]interface{}{"file": cfg.ReportFile})
	}

	if cfg.TradesFile != "" {
		if err := utils.WriteTradesToCSV(summary.Result.Trades, cfg.TradesFile); err != nil {
			appLogger.Error(ctx, err, "Failed to write trades CSV", map[string]interface{}{"file": cfg.TradesFile})
		} else {
			appLogger.Info(ctx, "Trades written", map[string]interface{}{"file": cfg.TradesFile})
		}
	}

	m := summary.Metrics
	fmt.Printf("Trades: %d  WinRate: %.2f%%  Return: %.2f%%  MaxDD: %.2f%%  Final: $%.2f\n",
		m.TotalTrades, m.WinRate, m.TotalReturnPct, m.MaxDrawdown, summary.Result.FinalCapital)
	if summary.RunID != 0 {
		fmt.Printf("Run saved with ID %d\n", summary.RunID)
	}
}

func buildStrategy(cfg *config.Config, appLogger ports.Logger) (ports.Strategy, error) {
	switch cfg.Strategy {
	case "ema_crossover":
		return strategies.NewEMACrossover(strategies.EMACrossoverConfig{
			FastPeriod:      cfg.FastEMAPeriod,
			SlowPeriod:      cfg.SlowEMAPeriod,
			TrendPeriod:     cfg.TrendEMAPeriod,
			CommissionRate:  cfg.CommissionRate,
			RewardRiskRatio: cfg.RewardRiskRatio,
		}, appLogger)
	case "engulfing_reversal":
		return strategies.NewEngulfingReversal(strategies.EngulfingReversalConfig{
			RSIPeriod:       cfg.RSIPeriod,
			Oversold:        cfg.RSIOversold,
			Overbought:      cfg.RSIOverbought,
			CommissionRate:  cfg.CommissionRate,
			RewardRiskRatio: cfg.RewardRiskRatio,
		}, appLogger)
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
}
