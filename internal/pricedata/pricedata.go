// Package pricedata loads per-token bar series from CSV files and
// assembles them onto the shared timestamp grid a backtest runs over.
package pricedata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/domain"
)

var (
	ErrEmptyFile     = errors.New("csv file has no data rows")
	ErrMissingColumn = errors.New("csv header missing required column")
	ErrNoSeries      = errors.New("no token series to assemble")
)

// columnIndex maps the columns we understand to their position in the header.
// Price may appear as "price" or "close"; high and low are optional.
type columnIndex struct {
	timestamp int
	price     int
	high      int
	low       int
}

func parseHeader(header []string) (columnIndex, error) {
	idx := columnIndex{timestamp: -1, price: -1, high: -1, low: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "timestamp_ms", "timestamp", "ts":
			idx.timestamp = i
		case "price", "close":
			idx.price = i
		case "high":
			idx.high = i
		case "low":
			idx.low = i
		}
	}
	if idx.timestamp < 0 {
		return idx, fmt.Errorf("%w: timestamp_ms", ErrMissingColumn)
	}
	if idx.price < 0 {
		return idx, fmt.Errorf("%w: price", ErrMissingColumn)
	}
	return idx, nil
}

// LoadCSV parses a single token's bar series. The first row must be a
// header containing at least a timestamp and a price column. Rows must be
// in strictly ascending timestamp order.
func LoadCSV(r io.Reader) ([]*domain.PriceBar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	idx, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	var bars []*domain.PriceBar
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}
		line++

		bar, err := parseBar(record, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(bars) > 0 && bar.TimestampMs <= bars[len(bars)-1].TimestampMs {
			return nil, fmt.Errorf("line %d: %w", line, domain.ErrTimestampOrdering)
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, ErrEmptyFile
	}
	return bars, nil
}

func parseBar(record []string, idx columnIndex) (*domain.PriceBar, error) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	ts, err := strconv.ParseInt(field(idx.timestamp), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", field(idx.timestamp), err)
	}
	price, err := strconv.ParseFloat(field(idx.price), 64)
	if err != nil {
		return nil, fmt.Errorf("parsing price %q: %w", field(idx.price), err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive, got %f", price)
	}

	bar := &domain.PriceBar{TimestampMs: ts, Price: price}
	if s := field(idx.high); s != "" {
		if bar.High, err = strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("parsing high %q: %w", s, err)
		}
	}
	if s := field(idx.low); s != "" {
		if bar.Low, err = strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("parsing low %q: %w", s, err)
		}
	}
	return bar, nil
}

// LoadFile loads one token's bar series from a CSV file on disk.
func LoadFile(path string) ([]*domain.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	bars, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return bars, nil
}

// LoadDir loads every *.csv file in dir as one token series each, keyed by
// the file name without extension, and assembles them into market data.
func LoadDir(dir string) (*domain.MarketData, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	series := make(map[string][]*domain.PriceBar)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		token := strings.TrimSuffix(entry.Name(), ".csv")
		bars, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		series[token] = bars
	}
	return Assemble(series, nil)
}

// Assemble aligns per-token series onto the union of their timestamps.
// Bars missing from a token at a grid point become nil gap entries.
func Assemble(series map[string][]*domain.PriceBar, symbols map[string]string) (*domain.MarketData, error) {
	if len(series) == 0 {
		return nil, ErrNoSeries
	}

	gridSet := make(map[int64]struct{})
	for _, bars := range series {
		for _, bar := range bars {
			gridSet[bar.TimestampMs] = struct{}{}
		}
	}
	grid := make([]int64, 0, len(gridSet))
	for ts := range gridSet {
		grid = append(grid, ts)
	}
	sort.Slice(grid, func(i, j int) bool { return grid[i] < grid[j] })

	gridIndex := make(map[int64]int, len(grid))
	for i, ts := range grid {
		gridIndex[ts] = i
	}

	aligned := make(map[string][]*domain.PriceBar, len(series))
	for token, bars := range series {
		row := make([]*domain.PriceBar, len(grid))
		for _, bar := range bars {
			row[gridIndex[bar.TimestampMs]] = bar
		}
		aligned[token] = row
	}

	data := &domain.MarketData{
		Timestamps: grid,
		Series:     aligned,
		Symbols:    symbols,
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}
