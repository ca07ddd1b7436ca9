// Package historical holds the gridded historical PM2.5 dataset used to compute
// seasonal anomalies and forecast years.
package historical

import (
	"errors"
	"fmt"
	"math"
)

// Dataset errors.
var (
	ErrNoCoverage    = errors.New("no historical records for grid cell")
	ErrEmptyDataset  = errors.New("historical dataset is empty")
	ErrInvalidRecord = errors.New("invalid historical record")
)

// Plausible record years.
const (
	MinYear = 1900
	MaxYear = 2200
)

// Record is one row of the historical dataset. AvgPM25 is in the dataset's
// native unit (kg/m³ scale).
type Record struct {
	CenterLat float64
	CenterLon float64
	Year      int
	Month     int
	AvgPM25   float64
}

// Validate checks a record before it is admitted into a Table.
func (r Record) Validate() error {
	if r.Year < MinYear || r.Year > MaxYear {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidRecord, r.Year)
	}
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidRecord, r.Month)
	}
	if math.IsNaN(r.CenterLat) || math.IsNaN(r.CenterLon) {
		return fmt.Errorf("%w: NaN center", ErrInvalidRecord)
	}
	if math.IsNaN(r.AvgPM25) || math.IsInf(r.AvgPM25, 0) {
		return fmt.Errorf("%w: non-finite avg_pm25", ErrInvalidRecord)
	}
	return nil
}

// Coverage summarises the history of one grid cell for one month.
type Coverage struct {
	// Average is the mean AvgPM25 of the cell for the requested month across all
	// years, in the dataset unit. Nil when the cell has no record for that month.
	Average *float64

	// MonthRecords is the number of records that contributed to Average.
	MonthRecords int

	// LatestYear is the most recent year with any record for the cell.
	LatestYear int

	// Records is the total number of records for the cell.
	Records int
}

// CellSummary describes everything the dataset knows about a single cell.
type CellSummary struct {
	Records     int
	FirstYear   int
	LatestYear  int
	Months      []int
	MonthlyMean map[int]float64
}
