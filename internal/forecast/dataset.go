package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aircast/aircast/internal/historical"
	"github.com/aircast/aircast/internal/predictor"
)

// Dataset is the read-only state built once at startup and shared by every
// forecast: the historical table (with its derived grid size) and the trend
// model.
type Dataset struct {
	table     *historical.Table
	predictor predictor.Predictor
	source    string
	loadedAt  time.Time
}

// NewDataset assembles a dataset from already loaded parts.
func NewDataset(table *historical.Table, pred predictor.Predictor) (*Dataset, error) {
	if table == nil {
		return nil, errors.New("historical table is required")
	}
	if pred == nil {
		return nil, errors.New("predictor is required")
	}
	return &Dataset{
		table:     table,
		predictor: pred,
		loadedAt:  time.Now(),
	}, nil
}

// LoadDataset reads every record from src and builds the table.
func LoadDataset(ctx context.Context, src historical.Source, pred predictor.Predictor) (*Dataset, error) {
	records, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading historical data from %s: %w", src.Name(), err)
	}

	table, err := historical.NewTable(records)
	if err != nil {
		return nil, fmt.Errorf("indexing historical data from %s: %w", src.Name(), err)
	}

	ds, err := NewDataset(table, pred)
	if err != nil {
		return nil, err
	}
	ds.source = src.Name()
	return ds, nil
}

// Table returns the historical table.
func (d *Dataset) Table() *historical.Table {
	return d.table
}

// Predictor returns the trend model.
func (d *Dataset) Predictor() predictor.Predictor {
	return d.predictor
}

// Source names where the historical records came from.
func (d *Dataset) Source() string {
	return d.source
}

// LoadedAt returns when the dataset was built.
func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}

// ModelInfo describes the trend model, when it can describe itself.
func (d *Dataset) ModelInfo() predictor.Info {
	if desc, ok := d.predictor.(predictor.Describer); ok {
		return desc.Describe()
	}
	return predictor.Info{Kind: "unknown"}
}
