package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"backtester/config"
	"backtester/internal/adapters/logger"
	"backtester/internal/adapters/sqlite"
	"backtester/internal/strategy/analytics"
)

func main() {
	symbol := flag.String("symbol", "", "filter runs by symbol (empty for all)")
	limit := flag.Int("limit", 20, "max runs to show")
	runID := flag.Int64("run", 0, "show the trades of a single run")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if cfg.DBPath == "" {
		log.Fatalf("FATAL: DB_PATH must be set to analyze saved runs")
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to open database: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()

	if *runID != 0 {
		showRunTrades(ctx, repo, *runID)
		return
	}

	runs, err := repo.FindRuns(ctx, *symbol, *limit)
	if err != nil {
		log.Fatalf("Error loading runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No saved runs found. Run a backtest with DB_PATH set first.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "ID\tSymbol\tStrategy\tTrades\tWinRate\tReturn%\tMaxDD%\tCreated\t")
	for _, run := range runs {
		trades, err := repo.FindTradesByRun(ctx, run.ID)
		if err != nil {
			log.Printf("Error loading trades of run %d: %v", run.ID, err)
			continue
		}
		metrics := analytics.Analyze(trades, run.InitialCapital, run.FinalCapital)
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%s\t\n",
			run.ID,
			run.Symbol,
			run.Strategy,
			metrics.TotalTrades,
			metrics.WinRate,
			metrics.TotalReturnPct,
			metrics.MaxDrawdown,
			run.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	w.Flush()
}

func showRunTrades(ctx context.Context, repo *sqlite.Repository, runID int64) {
	trades, err := repo.FindTradesByRun(ctx, runID)
	if err != nil {
		log.Fatalf("Error loading trades of run %d: %v", runID, err)
	}
	if len(trades) == 0 {
		fmt.Printf("Run %d has no trades.\n", runID)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Entry\tExit\tDir\tEntryPx\tExitPx\tP&L\tP&L%\tReason\t")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			t.Direction,
			t.EntryPrice,
			t.ExitPrice,
			t.ProfitLoss,
			t.ProfitLossPct,
			t.ExitReason,
		)
	}
	w.Flush()
}
