package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/aircast/aircast/internal/provider/resilience"
)

// RemoteConfig holds configuration for a model served over HTTP.
type RemoteConfig struct {
	// Endpoint receives POSTed features and answers {"prediction": <float>}.
	Endpoint string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client
}

// RemoteModel calls an external inference service.
type RemoteModel struct {
	endpoint   string
	httpClient *resilience.Client
}

type remoteResponse struct {
	Prediction *float64 `json:"prediction"`
	Model      string   `json:"model,omitempty"`
}

// NewRemoteModel creates a predictor backed by an inference endpoint.
func NewRemoteModel(cfg RemoteConfig) *RemoteModel {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig("predictor"))
	}
	return &RemoteModel{
		endpoint:   cfg.Endpoint,
		httpClient: httpClient,
	}
}

// Predict posts the features and decodes the prediction.
func (m *RemoteModel) Predict(ctx context.Context, f Features) (float64, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return 0, fmt.Errorf("marshaling features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("inference service returned status: %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding inference response: %w", err)
	}
	if out.Prediction == nil {
		return 0, fmt.Errorf("inference response missing prediction")
	}
	if math.IsNaN(*out.Prediction) || math.IsInf(*out.Prediction, 0) {
		return 0, ErrNonFinite
	}

	return *out.Prediction, nil
}

// Describe reports the model identity.
func (m *RemoteModel) Describe() Info {
	return Info{Name: m.endpoint, Kind: "remote"}
}
