package handler

import (
	"net/http"
	"time"

	"github.com/aircast/aircast/internal/api/models"
	"github.com/aircast/aircast/internal/api/response"
	"github.com/aircast/aircast/internal/forecast"
	"github.com/aircast/aircast/internal/provider/resilience"
)

// Degradation flags reported by the status endpoint.
const (
	FlagDatasetUnavailable = "DATASET_UNAVAILABLE"
	FlagProviderDegraded   = "PROVIDER_DEGRADED"
)

// StatusReporter reports the state of the loaded dataset.
type StatusReporter interface {
	Status() forecast.Status
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	dataset   StatusReporter
	registry  *resilience.Registry
	now       func() time.Time
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, dataset StatusReporter, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		dataset:   dataset,
		registry:  registry,
		now:       time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. The service is
// ready once the historical dataset and trend model are loaded.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	st := h.dataset.Status()
	if !st.Ready {
		details := map[string]interface{}{"dataset": "not loaded"}
		if st.Error != "" {
			details["error"] = st.Error
		}
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status:  models.HealthStatusDegraded,
			Time:    models.Timestamp(h.now()),
			Details: details,
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]interface{}{
			"records": st.Records,
			"cells":   st.Cells,
		},
	})
}

// SystemStatus handles GET /v1/ops/status - dataset and provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(h.now()),
		Dataset:   toDatasetStatus(h.dataset.Status()),
		Providers: []models.ProviderStatus{},
	}

	if status.Dataset.Status != models.HealthStatusOK {
		status.Status = models.HealthStatusDegraded
		status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, FlagDatasetUnavailable)
	}

	if h.registry != nil {
		degraded := false
		for _, ph := range h.registry.GetAllHealth() {
			ps := toProviderStatus(ph)
			if ps.Status != models.HealthStatusOK {
				degraded = true
			}
			status.Providers = append(status.Providers, ps)
		}
		if degraded {
			status.Status = models.HealthStatusDegraded
			status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, FlagProviderDegraded)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func toDatasetStatus(st forecast.Status) models.DatasetStatus {
	if !st.Ready {
		ds := models.DatasetStatus{Status: models.HealthStatusFail}
		if st.Error != "" {
			msg := st.Error
			ds.Error = &msg
		}
		return ds
	}
	return models.DatasetStatus{
		Status:       models.HealthStatusOK,
		Source:       st.Source,
		Records:      st.Records,
		Cells:        st.Cells,
		GridSize:     float64(st.GridSize),
		Model:        st.Model.Name,
		ModelVersion: st.Model.Version,
		ModelKind:    st.Model.Kind,
		LoadedAt:     models.TimestampPtr(st.LoadedAt),
	}
}

func toProviderStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:     ph.Name,
		Status:       models.HealthStatusOK,
		CircuitState: ph.CircuitState.String(),
	}
	switch {
	case ph.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case ph.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if ph.LastSuccessAt != nil {
		ps.LastSuccessAt = models.TimestampPtr(*ph.LastSuccessAt)
	}
	if ph.LastFailureAt != nil {
		ps.LastFailureAt = models.TimestampPtr(*ph.LastFailureAt)
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}
