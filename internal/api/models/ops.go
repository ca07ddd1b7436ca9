package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status                 HealthStatus      `json:"status"`
	Time                   Timestamp         `json:"time"`
	Dataset                DatasetStatus     `json:"dataset"`
	Providers              []ProviderStatus  `json:"providers"`
	Subsystems             []SubsystemStatus `json:"subsystems,omitempty"`
	ActiveDegradationFlags []string          `json:"activeDegradationFlags,omitempty"`
}

// DatasetStatus describes the startup-loaded historical data and model.
type DatasetStatus struct {
	Status       HealthStatus `json:"status"`
	Source       string       `json:"source,omitempty"`
	Records      int          `json:"records"`
	Cells        int          `json:"cells"`
	GridSize     float64      `json:"gridSize,omitempty"`
	Model        string       `json:"model,omitempty"`
	ModelVersion string       `json:"modelVersion,omitempty"`
	ModelKind    string       `json:"modelKind,omitempty"`
	LoadedAt     *Timestamp   `json:"loadedAt,omitempty"`
	Error        *string      `json:"error,omitempty"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus represents the status of an external provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
