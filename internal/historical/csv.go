package historical

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Required CSV columns.
const (
	ColumnCenterLat = "center_lat"
	ColumnCenterLon = "center_lon"
	ColumnYear      = "year"
	ColumnMonth     = "month"
	ColumnAvgPM25   = "avg_pm25"
)

var requiredColumns = []string{ColumnCenterLat, ColumnCenterLon, ColumnYear, ColumnMonth, ColumnAvgPM25}

// LoadCSVFile reads historical records from a CSV file on disk.
func LoadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening historical dataset: %w", err)
	}
	defer f.Close()

	return LoadCSV(f)
}

// LoadCSV reads historical records from CSV. The first row is a header naming
// at least the required columns; column order is free and extra columns are
// ignored.
func LoadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	return records, nil
}

func parseRow(row []string, cols map[string]int) (Record, error) {
	field := func(name string) (string, error) {
		i := cols[name]
		if i >= len(row) {
			return "", fmt.Errorf("%w: missing %s", ErrInvalidRecord, name)
		}
		return strings.TrimSpace(row[i]), nil
	}
	parseFloat := func(name string) (float64, error) {
		s, err := field(name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, name, err)
		}
		return v, nil
	}
	parseInt := func(name string) (int, error) {
		s, err := field(name)
		if err != nil {
			return 0, err
		}
		// Exported dataframes often write integer columns as "2023.0".
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, name, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s: %q is not an integer", ErrInvalidRecord, name, s)
		}
		return int(v), nil
	}

	var rec Record
	var err error
	if rec.CenterLat, err = parseFloat(ColumnCenterLat); err != nil {
		return Record{}, err
	}
	if rec.CenterLon, err = parseFloat(ColumnCenterLon); err != nil {
		return Record{}, err
	}
	if rec.Year, err = parseInt(ColumnYear); err != nil {
		return Record{}, err
	}
	if rec.Month, err = parseInt(ColumnMonth); err != nil {
		return Record{}, err
	}
	if rec.AvgPM25, err = parseFloat(ColumnAvgPM25); err != nil {
		return Record{}, err
	}

	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
