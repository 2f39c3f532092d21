package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"backtester/internal/domain"
	"backtester/internal/ports"
)

var barHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

// ReadBarsFromCSV loads a price series from a CSV file written by
// WriteBarsToCSV (or the kline fetcher). The returned series is validated:
// non-empty, no gaps in required fields, strictly increasing open times.
func ReadBarsFromCSV(filename string) (*domain.Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ports.ErrInvalidData, filename, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s has no data rows", ports.ErrInvalidData, filename)
	}
	if len(records[0]) != len(barHeader) {
		return nil, fmt.Errorf("%w: %s: expected %d columns, got %d",
			ports.ErrInvalidData, filename, len(barHeader), len(records[0]))
	}

	bars := make([]*domain.Bar, 0, len(records)-1)
	for i, record := range records[1:] {
		bar, err := parseBarRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", ports.ErrInvalidData, filename, i+2, err)
		}
		bars = append(bars, bar)
	}

	series := domain.NewSeries(bars)
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ports.ErrInvalidData, filename, err)
	}
	return series, nil
}

func parseBarRecord(record []string) (*domain.Bar, error) {
	if len(record) != len(barHeader) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(barHeader), len(record))
	}

	openTime, err := parseTimestamp(record[0])
	if err != nil {
		return nil, fmt.Errorf("open_time: %v", err)
	}
	closeTime, err := parseTimestamp(record[1])
	if err != nil {
		return nil, fmt.Errorf("close_time: %v", err)
	}

	bar := &domain.Bar{
		OpenTime:  openTime,
		CloseTime: closeTime,
		Symbol:    record[2],
		Interval:  record[3],
	}

	fields := []struct {
		name string
		dst  *float64
		raw  string
	}{
		{"open", &bar.Open, record[4]},
		{"high", &bar.High, record[5]},
		{"low", &bar.Low, record[6]},
		{"close", &bar.Close, record[7]},
		{"volume", &bar.Volume, record[8]},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", f.name, err)
		}
		*f.dst = v
	}
	return bar, nil
}

// parseTimestamp accepts RFC3339 or unix milliseconds, the two formats
// exchange data exports come in.
func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("timestamp %q is neither RFC3339 nor unix milliseconds", raw)
}

// WriteBarsToCSV writes a price series in the fetcher's column layout.
func WriteBarsToCSV(series *domain.Series, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write(barHeader)
	for i := 0; i < series.Len(); i++ {
		b := series.Bar(i)
		writer.Write([]string{
			b.OpenTime.Format(time.RFC3339),
			b.CloseTime.Format(time.RFC3339),
			b.Symbol,
			b.Interval,
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

// WriteTradesToCSV writes the completed trade list for offline inspection.
func WriteTradesToCSV(trades []*domain.Trade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{
		"entry_time", "exit_time", "direction", "entry_price", "exit_price",
		"stop_loss", "take_profit", "profit_loss", "profit_loss_pct",
		"exit_reason", "commission_paid",
	})
	for _, t := range trades {
		writer.Write([]string{
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			string(t.Direction),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(t.StopLoss, 'f', -1, 64),
			strconv.FormatFloat(t.TakeProfit, 'f', -1, 64),
			strconv.FormatFloat(t.ProfitLoss, 'f', -1, 64),
			strconv.FormatFloat(t.ProfitLossPct, 'f', -1, 64),
			string(t.ExitReason),
			strconv.FormatFloat(t.CommissionPaid, 'f', -1, 64),
		})
	}
	return writer.Error()
}
