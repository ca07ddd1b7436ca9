package historical

import (
	"fmt"
	"sort"

	"github.com/aircast/aircast/internal/geogrid"
)

// Table is the in-memory, read-only historical dataset indexed by grid cell.
// It is built once and never mutated, so it is safe for concurrent readers.
type Table struct {
	gridSize geogrid.GridSize
	cells    map[geogrid.CellIndex]*cellHistory
	records  int
}

type cellHistory struct {
	records    int
	firstYear  int
	latestYear int
	months     [12]monthStats
}

type monthStats struct {
	sum   float64
	count int
}

// NewTable derives the grid size from the records' latitude centers and builds
// the cell index.
func NewTable(records []Record) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	lats := make([]float64, 0, len(records))
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		lats = append(lats, r.CenterLat)
	}

	size, err := geogrid.DeriveGridSize(lats)
	if err != nil {
		return nil, err
	}

	return NewTableWithGridSize(records, size)
}

// NewTableWithGridSize builds the cell index using an explicit grid size.
func NewTableWithGridSize(records []Record, size geogrid.GridSize) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	if err := size.Validate(); err != nil {
		return nil, err
	}

	t := &Table{
		gridSize: size,
		cells:    make(map[geogrid.CellIndex]*cellHistory),
		records:  len(records),
	}

	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		idx := geogrid.IndexOf(geogrid.Coordinate{Lat: r.CenterLat, Lon: r.CenterLon}, size)
		h, ok := t.cells[idx]
		if !ok {
			h = &cellHistory{firstYear: r.Year, latestYear: r.Year}
			t.cells[idx] = h
		}

		h.records++
		if r.Year > h.latestYear {
			h.latestYear = r.Year
		}
		if r.Year < h.firstYear {
			h.firstYear = r.Year
		}
		m := &h.months[r.Month-1]
		m.sum += r.AvgPM25
		m.count++
	}

	return t, nil
}

// GridSize returns the grid size the table was indexed with.
func (t *Table) GridSize() geogrid.GridSize {
	return t.gridSize
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	return t.records
}

// CellCount returns the number of distinct grid cells with data.
func (t *Table) CellCount() int {
	return len(t.cells)
}

// Lookup returns the history of a cell for a calendar month. It returns
// ErrNoCoverage when the cell has no records at all; a cell that exists but has
// no data for the month yields a Coverage with a nil Average.
func (t *Table) Lookup(cell geogrid.Cell, month int) (Coverage, error) {
	if month < 1 || month > 12 {
		return Coverage{}, fmt.Errorf("%w: month %d out of range", ErrInvalidRecord, month)
	}

	h, ok := t.cells[cell.Index]
	if !ok {
		return Coverage{}, ErrNoCoverage
	}

	cov := Coverage{
		LatestYear: h.latestYear,
		Records:    h.records,
	}

	m := h.months[month-1]
	if m.count > 0 {
		avg := m.sum / float64(m.count)
		cov.Average = &avg
		cov.MonthRecords = m.count
	}

	return cov, nil
}

// Summary returns all months with data for a cell.
func (t *Table) Summary(cell geogrid.Cell) (CellSummary, error) {
	h, ok := t.cells[cell.Index]
	if !ok {
		return CellSummary{}, ErrNoCoverage
	}

	summary := CellSummary{
		Records:     h.records,
		FirstYear:   h.firstYear,
		LatestYear:  h.latestYear,
		MonthlyMean: make(map[int]float64),
	}
	for i, m := range h.months {
		if m.count == 0 {
			continue
		}
		summary.Months = append(summary.Months, i+1)
		summary.MonthlyMean[i+1] = m.sum / float64(m.count)
	}
	sort.Ints(summary.Months)

	return summary, nil
}
