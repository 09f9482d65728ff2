// Package datafeed loads bar sequences for replays. Bars come from CSV files
// or from the deterministic synthetic generator; the simulation core itself
// never fetches data.
package datafeed

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/types"
)

// LoadCSV reads bars from a CSV file.
// Format: timestamp,open,high,low,close,volume with an optional header row.
func LoadCSV(path string) ([]types.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	bars, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return bars, nil
}

// ParseCSV parses bars from a CSV reader. Malformed rows are skipped, but the
// surviving bars must be strictly ordered in time; a replay over unordered or
// duplicated bars would silently corrupt every downstream number.
func ParseCSV(r io.Reader) ([]types.Bar, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true

	var bars []types.Bar
	lineNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		lineNum++

		if lineNum == 1 && isHeader(record) {
			continue
		}
		if len(record) < 5 {
			continue
		}

		bar, err := parseRecord(record)
		if err != nil {
			continue
		}
		bars = append(bars, bar)
	}

	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return nil, fmt.Errorf("bar %d at %s is not after the previous bar %s",
				i, bars[i].Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}

	return bars, nil
}

func parseRecord(record []string) (types.Bar, error) {
	var bar types.Bar
	var err error

	bar.Time, err = parseTimestamp(record[0])
	if err != nil {
		return bar, fmt.Errorf("parse timestamp: %w", err)
	}

	bar.Open, err = decimal.NewFromString(record[1])
	if err != nil {
		return bar, fmt.Errorf("parse open: %w", err)
	}
	bar.High, err = decimal.NewFromString(record[2])
	if err != nil {
		return bar, fmt.Errorf("parse high: %w", err)
	}
	bar.Low, err = decimal.NewFromString(record[3])
	if err != nil {
		return bar, fmt.Errorf("parse low: %w", err)
	}
	bar.Close, err = decimal.NewFromString(record[4])
	if err != nil {
		return bar, fmt.Errorf("parse close: %w", err)
	}

	if len(record) > 5 {
		if vol, err := decimal.NewFromString(record[5]); err == nil {
			bar.Volume = vol
		}
	}

	return bar, nil
}

// parseTimestamp tries Unix seconds first, then common date layouts.
func parseTimestamp(s string) (time.Time, error) {
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unknown timestamp format: %s", s)
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	headers := []string{"timestamp", "time", "date", "datetime", "open"}
	for _, h := range headers {
		if record[0] == h {
			return true
		}
	}
	return false
}
