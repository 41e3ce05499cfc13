// Package postgres persists experiment results behind
// ports.ResultStorePort.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gopuf/domain/core"
	"gopuf/models"
	"gopuf/ports"
)

// Schema creates the experiments table. Applied by cmd/migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS experiments (
	id                TEXT PRIMARY KEY,
	params            JSONB NOT NULL,
	accuracy          DOUBLE PRECISION NOT NULL,
	training_accuracy DOUBLE PRECISION NOT NULL,
	flipped           BOOLEAN NOT NULL,
	iterations        INTEGER NOT NULL,
	stops             TEXT NOT NULL,
	detail            JSONB NOT NULL,
	measured_seconds  DOUBLE PRECISION NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_experiments_created_at ON experiments (created_at DESC);
`

// resultStore implements ports.ResultStorePort on PostgreSQL.
type resultStore struct {
	db *sqlx.DB
}

// NewResultStore creates a result store over an open connection.
func NewResultStore(db *sqlx.DB) ports.ResultStorePort {
	return &resultStore{db: db}
}

// Connect opens and pings a PostgreSQL connection.
func Connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// detail bundles the per-chain search metadata into one JSON column.
type detail struct {
	DiscardCount     map[int]int `json:"discard_count"`
	IterationCount   map[int]int `json:"iteration_count"`
	CrossCorrelation [][]float64 `json:"cross_correlation,omitempty"`
	UnreliableCensus []int       `json:"unreliable_census,omitempty"`
}

// SaveResult inserts one experiment result.
func (s *resultStore) SaveResult(ctx context.Context, res *models.ExperimentResult) error {
	paramsJSON, err := json.Marshal(res.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	detailJSON, err := json.Marshal(detail{
		DiscardCount:     res.DiscardCount,
		IterationCount:   res.IterationCount,
		CrossCorrelation: res.CrossCorrelation,
		UnreliableCensus: res.UnreliableCensus,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal detail: %w", err)
	}

	query := `INSERT INTO experiments (
		id, params, accuracy, training_accuracy, flipped, iterations, stops,
		detail, measured_seconds, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	)`
	_, err = s.db.ExecContext(ctx, query,
		res.ID.String(), paramsJSON, res.Accuracy, res.TrainingAccuracy,
		res.Flipped, res.Iterations, res.Stops, detailJSON,
		res.MeasuredSeconds, res.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to save experiment result: %w", err)
	}
	return nil
}

// GetResult retrieves one result by id.
func (s *resultStore) GetResult(ctx context.Context, id core.ExperimentID) (*models.ExperimentResult, error) {
	query := `SELECT
		id, params, accuracy, training_accuracy, flipped, iterations, stops,
		detail, measured_seconds, created_at
	FROM experiments WHERE id = $1`
	row := s.db.QueryRowxContext(ctx, query, id.String())
	res, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, core.NewNotFoundError("experiment", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment result: %w", err)
	}
	return res, nil
}

// ListResults returns the most recent results, newest first.
func (s *resultStore) ListResults(ctx context.Context, limit int) ([]models.ExperimentResult, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT
		id, params, accuracy, training_accuracy, flipped, iterations, stops,
		detail, measured_seconds, created_at
	FROM experiments ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiment results: %w", err)
	}
	defer rows.Close()

	var results []models.ExperimentResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment result: %w", err)
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row rowScanner) (*models.ExperimentResult, error) {
	var (
		res        models.ExperimentResult
		id         string
		paramsJSON []byte
		detailJSON []byte
		createdAt  time.Time
	)
	err := row.Scan(&id, &paramsJSON, &res.Accuracy, &res.TrainingAccuracy,
		&res.Flipped, &res.Iterations, &res.Stops, &detailJSON,
		&res.MeasuredSeconds, &createdAt)
	if err != nil {
		return nil, err
	}
	res.ID = core.ExperimentID(id)
	res.CreatedAt = core.NewTimestamp(createdAt)
	if err := json.Unmarshal(paramsJSON, &res.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	var d detail
	if err := json.Unmarshal(detailJSON, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detail: %w", err)
	}
	res.DiscardCount = d.DiscardCount
	res.IterationCount = d.IterationCount
	res.CrossCorrelation = d.CrossCorrelation
	res.UnreliableCensus = d.UnreliableCensus
	return &res, nil
}
