package forecast

import (
	"time"

	"github.com/aircast/aircast/internal/geogrid"
	"github.com/aircast/aircast/internal/predictor"
)

// Result is a complete hybrid forecast with every intermediate stage. All
// concentrations are in µg/m³.
type Result struct {
	Requested geogrid.Coordinate
	Cell      geogrid.Cell
	GridSize  geogrid.GridSize

	// Year and Month are the features passed to the trend model.
	Year  int
	Month int

	LivePM25 float64

	// HistoricalAverage is nil when the cell has no record for Month.
	HistoricalAverage *float64
	MonthRecords      int

	Anomaly         float64
	BasePrediction  float64
	FinalPrediction float64

	ObservedAt time.Time
	ComputedAt time.Time
}

// CellReport summarises a grid cell's historical coverage.
type CellReport struct {
	Requested     geogrid.Coordinate
	Cell          geogrid.Cell
	GridSize      geogrid.GridSize
	Records       int
	FirstYear     int
	LatestYear    int
	ForecastYear  int
	Months        []int
	MonthlyMeanUG map[int]float64
}

// Status describes the loaded dataset.
type Status struct {
	Ready    bool
	Source   string
	Records  int
	Cells    int
	GridSize geogrid.GridSize
	Model    predictor.Info
	LoadedAt time.Time
	Error    string
}
