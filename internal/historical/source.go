package historical

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Source loads the full historical dataset.
type Source interface {
	// Load returns every record in the dataset.
	Load(ctx context.Context) ([]Record, error)

	// Name identifies the source for logging.
	Name() string
}

// CSVSource reads the dataset from a CSV file.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a CSV file source.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Name returns the source name.
func (s *CSVSource) Name() string {
	return "csv:" + s.Path
}

// Load reads all records from the CSV file.
func (s *CSVSource) Load(_ context.Context) ([]Record, error) {
	return LoadCSVFile(s.Path)
}

// Querier is the subset of pgxpool.Pool used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads the dataset from the historical_pm25 table.
type PostgresSource struct {
	db    Querier
	table string
}

// NewPostgresSource creates a PostgreSQL source. An empty table name defaults
// to historical_pm25.
func NewPostgresSource(db Querier, table string) *PostgresSource {
	if table == "" {
		table = "historical_pm25"
	}
	return &PostgresSource{db: db, table: table}
}

// Name returns the source name.
func (s *PostgresSource) Name() string {
	return "postgres:" + s.table
}

// Load reads all records from the table.
func (s *PostgresSource) Load(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT center_lat, center_lon, year, month, avg_pm25
		FROM %s
		ORDER BY center_lat, center_lon, year, month
	`, pgx.Identifier{s.table}.Sanitize())

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying historical records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.CenterLat, &r.CenterLon, &r.Year, &r.Month, &r.AvgPM25); err != nil {
			return nil, fmt.Errorf("scanning historical record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating historical records: %w", err)
	}

	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	return records, nil
}
