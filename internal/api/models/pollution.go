package models

// CoordinateQuery holds the lat/lon query parameters shared by the pollution
// endpoints. Pointers distinguish a missing parameter from zero.
type CoordinateQuery struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

// GeocodeQuery holds the query parameters of the geocoding endpoint.
type GeocodeQuery struct {
	Q     string `json:"q" validate:"required,max=200"`
	Limit int    `json:"limit" validate:"gte=1,lte=5"`
}

// GridCell is a resolved grid cell.
type GridCell struct {
	CenterLat float64 `json:"centerLat"`
	CenterLon float64 `json:"centerLon"`
	Row       int64   `json:"row"`
	Col       int64   `json:"col"`
	GridSize  float64 `json:"gridSize"`
}

// ForecastFeatures are the trend model inputs used for a forecast.
type ForecastFeatures struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PollutionForecast is the hybrid PM2.5 forecast with every intermediate
// stage. Concentrations are µg/m³. HistoricalAverage is null when the cell
// has no record for the month.
type PollutionForecast struct {
	Requested         Point            `json:"requested"`
	Cell              GridCell         `json:"cell"`
	Features          ForecastFeatures `json:"features"`
	LivePM25          float64          `json:"livePm25"`
	HistoricalAverage *float64         `json:"historicalAverage"`
	Anomaly           float64          `json:"anomaly"`
	BasePrediction    float64          `json:"basePrediction"`
	FinalPrediction   float64          `json:"finalPrediction"`
	Unit              string           `json:"unit"`
	ObservedAt        *Timestamp       `json:"observedAt,omitempty"`
	ComputedAt        Timestamp        `json:"computedAt"`
}

// CellSummary describes the historical coverage of a grid cell.
type CellSummary struct {
	Requested    Point              `json:"requested"`
	Cell         GridCell           `json:"cell"`
	Records      int                `json:"records"`
	FirstYear    int                `json:"firstYear"`
	LatestYear   int                `json:"latestYear"`
	ForecastYear int                `json:"forecastYear"`
	Months       []int              `json:"months"`
	MonthlyMean  map[string]float64 `json:"monthlyMean"`
	Unit         string             `json:"unit"`
}

// Place is a geocoding match.
type Place struct {
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// PlaceList is the geocoding response.
type PlaceList struct {
	Query string  `json:"query"`
	Items []Place `json:"items"`
}

// UnitMicrogramsPerCubicMeter is the unit of every concentration in responses.
const UnitMicrogramsPerCubicMeter = "µg/m³"
