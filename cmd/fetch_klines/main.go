package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"backtester/config"
	"backtester/internal/adapters/binanceclient"
	"backtester/internal/adapters/logger"
	"backtester/internal/domain"
	"backtester/internal/utils"
)

func main() {
	months := flag.Int("months", 3, "how many months of history to fetch")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 3. Initialize Exchange Client
	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	end := time.Now()
	start := end.AddDate(0, -*months, 0)

	appLogger.Info(ctx, "Fetching bars", map[string]interface{}{
		"symbol":   cfg.Symbol,
		"interval": cfg.Interval,
		"start":    start.Format(time.RFC3339),
		"end":      end.Format(time.RFC3339),
	})

	bars, err := client.GetKlinesRange(ctx, cfg.Symbol, cfg.Interval, start, end)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching bars")
		log.Fatalf("Error fetching bars: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("No bars returned for %s %s", cfg.Symbol, cfg.Interval)
	}

	series := domain.NewSeries(bars)
	if err := series.Validate(); err != nil {
		appLogger.Error(ctx, err, "Fetched series failed validation")
		log.Fatalf("Fetched series failed validation: %v", err)
	}

	filename := fmt.Sprintf("data/%s_%s_%s_to_%s.csv",
		cfg.Symbol, cfg.Interval, start.Format("20060102"), end.Format("20060102"))
	if err := utils.WriteBarsToCSV(series, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved bars", map[string]interface{}{
		"filename": filename,
		"count":    series.Len(),
	})
}
