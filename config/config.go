package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"backtester/internal/adapters/logger"
)

// Config holds all application configuration.
type Config struct {
	// Data source
	DataFile string // CSV file with historical bars
	Symbol   string
	Interval string

	// Simulation Parameters
	InitialCapital float64
	CommissionRate float64 // Fraction per side, e.g. 0.0008 for 0.08%
	WarmupBars     int

	// Strategy selection and parameters
	Strategy        string // "ema_crossover" or "engulfing_reversal"
	FastEMAPeriod   int
	SlowEMAPeriod   int
	TrendEMAPeriod  int
	RSIPeriod       int
	RSIOverbought   float64
	RSIOversold     float64
	RewardRiskRatio float64

	// Output
	ReportFile string
	TradesFile string

	// Database (optional run persistence; empty disables it)
	DBPath string

	// Binance API (only used by the kline fetcher)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	// Data source
	cfg.DataFile = getEnv("DATA_FILE", "")
	cfg.Symbol = getEnv("SYMBOL", "ETHUSDT")
	cfg.Interval = getEnv("INTERVAL", "1h")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	// Simulation parameters
	cfg.InitialCapital, err = getEnvAsFloatRequired("INITIAL_CAPITAL", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_CAPITAL: %v", err))
	} else if cfg.InitialCapital <= 0 {
		errs = append(errs, "INITIAL_CAPITAL must be positive")
	}

	cfg.CommissionRate, err = getEnvAsFloatRequired("COMMISSION_RATE", 0.0008)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid COMMISSION_RATE: %v", err))
	} else if cfg.CommissionRate < 0 {
		errs = append(errs, "COMMISSION_RATE cannot be negative")
	}

	cfg.WarmupBars, err = getEnvAsIntRequired("WARMUP_BARS", 200)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid WARMUP_BARS: %v", err))
	} else if cfg.WarmupBars <= 0 {
		errs = append(errs, "WARMUP_BARS must be positive")
	}

	// Strategy parameters
	cfg.Strategy = strings.ToLower(getEnv("STRATEGY", "ema_crossover"))
	cfg.FastEMAPeriod = getEnvAsInt("FAST_EMA_PERIOD", 25)
	cfg.SlowEMAPeriod = getEnvAsInt("SLOW_EMA_PERIOD", 50)
	cfg.TrendEMAPeriod = getEnvAsInt("TREND_EMA_PERIOD", 200)
	cfg.RSIPeriod = getEnvAsInt("RSI_PERIOD", 14)
	cfg.RSIOverbought = getEnvAsFloat("RSI_OVERBOUGHT", 70.0)
	cfg.RSIOversold = getEnvAsFloat("RSI_OVERSOLD", 30.0)
	cfg.RewardRiskRatio = getEnvAsFloat("REWARD_RISK_RATIO", 2.0)

	if cfg.FastEMAPeriod <= 0 || cfg.SlowEMAPeriod <= 0 || cfg.TrendEMAPeriod <= 0 || cfg.RSIPeriod <= 0 {
		errs = append(errs, "strategy periods (EMA, RSI) must be positive")
	}
	if cfg.FastEMAPeriod >= cfg.SlowEMAPeriod {
		errs = append(errs, "FAST_EMA_PERIOD must be less than SLOW_EMA_PERIOD")
	}
	if cfg.SlowEMAPeriod >= cfg.TrendEMAPeriod {
		errs = append(errs, "SLOW_EMA_PERIOD must be less than TREND_EMA_PERIOD")
	}
	if cfg.RSIOverbought <= cfg.RSIOversold || cfg.RSIOverbought > 100 || cfg.RSIOversold < 0 {
		errs = append(errs, "invalid RSI thresholds (Overbought must be > Oversold, between 0-100)")
	}
	if cfg.RewardRiskRatio <= 0 {
		errs = append(errs, "REWARD_RISK_RATIO must be positive")
	}

	// Output
	cfg.ReportFile = getEnv("REPORT_FILE", "backtest_results.txt")
	cfg.TradesFile = getEnv("TRADES_FILE", "")

	// Database
	cfg.DBPath = getEnv("DB_PATH", "")

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true)

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
