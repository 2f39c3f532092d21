package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"backtester/internal/domain"
	"backtester/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.RunRepository using SQLite. Each completed
// backtest run is stored with its full trade list so runs can be compared
// later without re-simulating.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository opens (or creates) the database and prepares the schema.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfiguration)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/backtests.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("%w: create data directory '%s': %v", ports.ErrDBConnection, filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency between the runner and the analyzer
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("%w: open database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// The Go driver benefits from a single connection with SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("%w: initialize schema: %v", ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS backtest_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		strategy TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		initial_capital REAL NOT NULL,
		final_capital REAL NOT NULL,
		commission_rate REAL NOT NULL,
		total_trades INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS backtest_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES backtest_runs(id),
		direction TEXT NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		profit_loss REAL NOT NULL,
		profit_loss_pct REAL NOT NULL,
		exit_reason TEXT NOT NULL,
		commission_paid REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_backtest_runs_symbol_created ON backtest_runs (symbol, created_at);
	CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades (run_id, entry_time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SaveRun persists the run and its trades in a single transaction and
// returns the assigned run ID.
func (r *Repository) SaveRun(ctx context.Context, run *domain.Run, trades []*domain.Trade) (int64, error) {
	if run == nil {
		return 0, fmt.Errorf("%w: run is nil", ports.ErrInvalidRequest)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %v", ports.ErrQueryFailed, err)
	}
	defer tx.Rollback()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const runQuery = `
	INSERT INTO backtest_runs (symbol, strategy, start_time, end_time, initial_capital,
	                           final_capital, commission_rate, total_trades, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, runQuery,
		run.Symbol, run.Strategy, run.StartTime, run.EndTime, run.InitialCapital,
		run.FinalCapital, run.CommissionRate, len(trades), createdAt)
	if err != nil {
		return 0, fmt.Errorf("%w: insert run for symbol %s: %v", ports.ErrQueryFailed, run.Symbol, err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: run insert ID: %v", ports.ErrQueryFailed, err)
	}

	const tradeQuery = `
	INSERT INTO backtest_trades (run_id, direction, entry_time, exit_time, entry_price,
	                             exit_price, stop_loss, take_profit, profit_loss,
	                             profit_loss_pct, exit_reason, commission_paid)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for i, trade := range trades {
		if _, err := tx.ExecContext(ctx, tradeQuery,
			runID, trade.Direction, trade.EntryTime, trade.ExitTime, trade.EntryPrice,
			trade.ExitPrice, trade.StopLoss, trade.TakeProfit, trade.ProfitLoss,
			trade.ProfitLossPct, trade.ExitReason, trade.CommissionPaid); err != nil {
			return 0, fmt.Errorf("%w: insert trade %d of run %d: %v", ports.ErrQueryFailed, i, runID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit run %d: %v", ports.ErrQueryFailed, runID, err)
	}

	run.ID = runID
	run.CreatedAt = createdAt
	run.TotalTrades = len(trades)
	r.logger.Debug(ctx, "Backtest run saved", map[string]interface{}{
		"runID":  runID,
		"symbol": run.Symbol,
		"trades": len(trades),
	})
	return runID, nil
}

// FindRuns retrieves the most recent runs, newest first. An empty symbol
// matches all symbols.
func (r *Repository) FindRuns(ctx context.Context, symbol string, limit int) ([]*domain.Run, error) {
	query := `
	SELECT id, symbol, strategy, start_time, end_time, initial_capital,
	       final_capital, commission_rate, total_trades, created_at
	FROM backtest_runs`
	args := make([]interface{}, 0, 2)
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query runs: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0)
	for rows.Next() {
		run := &domain.Run{}
		if err := rows.Scan(
			&run.ID, &run.Symbol, &run.Strategy, &run.StartTime, &run.EndTime,
			&run.InitialCapital, &run.FinalCapital, &run.CommissionRate,
			&run.TotalTrades, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan run: %v", ports.ErrQueryFailed, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate run rows: %v", ports.ErrQueryFailed, err)
	}
	return runs, nil
}

// FindTradesByRun retrieves the trades of a run in entry-time order.
func (r *Repository) FindTradesByRun(ctx context.Context, runID int64) ([]*domain.Trade, error) {
	const query = `
	SELECT direction, entry_time, exit_time, entry_price, exit_price, stop_loss,
	       take_profit, profit_loss, profit_loss_pct, exit_reason, commission_paid
	FROM backtest_trades
	WHERE run_id = ? ORDER BY entry_time ASC`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: query trades of run %d: %v", ports.ErrQueryFailed, runID, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade := &domain.Trade{}
		var direction, reason string
		if err := rows.Scan(
			&direction, &trade.EntryTime, &trade.ExitTime, &trade.EntryPrice,
			&trade.ExitPrice, &trade.StopLoss, &trade.TakeProfit, &trade.ProfitLoss,
			&trade.ProfitLossPct, &reason, &trade.CommissionPaid); err != nil {
			return nil, fmt.Errorf("%w: scan trade of run %d: %v", ports.ErrQueryFailed, runID, err)
		}
		trade.Direction = domain.Direction(direction)
		trade.ExitReason = domain.ExitReason(reason)
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate trade rows of run %d: %v", ports.ErrQueryFailed, runID, err)
	}
	return trades, nil
}
