package forecast_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aircast/aircast/internal/forecast"
	"github.com/aircast/aircast/internal/geogrid"
	"github.com/aircast/aircast/internal/historical"
	"github.com/aircast/aircast/internal/predictor"
)

func TestLoadDataset_BundledData(t *testing.T) {
	model, err := predictor.LoadLinearModelFile("../../data/pm25_model.json")
	require.NoError(t, err)

	ds, err := forecast.LoadDataset(context.Background(), historical.NewCSVSource("../../data/historical_pm25.csv"), model)
	require.NoError(t, err)

	assert.Equal(t, geogrid.GridSize(0.5), ds.Table().GridSize())
	assert.Equal(t, 3072, ds.Table().Len())
	assert.Equal(t, 128, ds.Table().CellCount())
	assert.Equal(t, "pm25-linear", ds.ModelInfo().Name)

	base, err := model.Predict(context.Background(), predictor.Features{CenterLat: 51.25, CenterLon: -0.25, Year: 2020, Month: 1})
	require.NoError(t, err)
	micrograms := forecast.ToMicrograms(base)
	assert.Greater(t, micrograms, 5.0)
	assert.Less(t, micrograms, 50.0)
}
