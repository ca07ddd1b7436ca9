package worker

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aircast/aircast/internal/audit"
)

// Execer is the subset of pgxpool.Pool used by PostgresStore.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore writes forecast events to the forecast_audit table.
type PostgresStore struct {
	db    Execer
	table string
}

// NewPostgresStore creates a store. An empty table name defaults to
// forecast_audit.
func NewPostgresStore(db Execer, table string) *PostgresStore {
	if table == "" {
		table = "forecast_audit"
	}
	return &PostgresStore{db: db, table: table}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			message_id         TEXT PRIMARY KEY,
			request_id         TEXT,
			lat                DOUBLE PRECISION NOT NULL,
			lon                DOUBLE PRECISION NOT NULL,
			cell_lat           DOUBLE PRECISION NOT NULL,
			cell_lon           DOUBLE PRECISION NOT NULL,
			grid_size          DOUBLE PRECISION NOT NULL,
			year               INTEGER NOT NULL,
			month              INTEGER NOT NULL,
			live_pm25          DOUBLE PRECISION NOT NULL,
			historical_average DOUBLE PRECISION,
			anomaly            DOUBLE PRECISION NOT NULL,
			base_prediction    DOUBLE PRECISION NOT NULL,
			final_prediction   DOUBLE PRECISION NOT NULL,
			computed_at        TIMESTAMPTZ NOT NULL,
			stored_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.identifier())

	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("creating %s: %w", s.table, err)
	}
	return nil
}

// SaveForecast inserts the event, ignoring a message already stored.
func (s *PostgresStore) SaveForecast(ctx context.Context, messageID string, e audit.ForecastEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			message_id, request_id, lat, lon, cell_lat, cell_lon, grid_size,
			year, month, live_pm25, historical_average, anomaly,
			base_prediction, final_prediction, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (message_id) DO NOTHING
	`, s.identifier())

	var requestID *string
	if e.RequestID != "" {
		requestID = &e.RequestID
	}

	_, err := s.db.Exec(ctx, query,
		messageID, requestID, e.Lat, e.Lon, e.CellLat, e.CellLon, e.GridSize,
		e.Year, e.Month, e.LivePM25, e.HistoricalAverage, e.Anomaly,
		e.BasePrediction, e.FinalPrediction, e.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting forecast event %s: %w", messageID, err)
	}
	return nil
}

func (s *PostgresStore) identifier() string {
	return pgx.Identifier{s.table}.Sanitize()
}
