package reputation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the ReputationStore
// interface.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL reputation store.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_reputation (
			domain VARCHAR(255) PRIMARY KEY,
			score DOUBLE NOT NULL,
			updated_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// Load returns all stored domain scores.
func (s *MySQLStore) Load(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, score FROM domain_reputation
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reputation table: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var domain string
		var score float64
		if err := rows.Scan(&domain, &score); err != nil {
			return nil, fmt.Errorf("failed to scan reputation row: %w", err)
		}
		scores[domain] = clampScore(score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reputation rows: %w", err)
	}

	return scores, nil
}

// Upsert replaces entries for the given domains, clamping scores to
// [0, 1].
func (s *MySQLStore) Upsert(ctx context.Context, scores map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for domain, score := range scores {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO domain_reputation (domain, score, updated_at)
			VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE score = VALUES(score), updated_at = VALUES(updated_at)
		`, normalize(domain), clampScore(score), now)
		if err != nil {
			return fmt.Errorf("failed to upsert reputation entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reputation update: %w", err)
	}

	s.logger.Info("Updated domain reputation scores", zap.Int("domains", len(scores)))
	return nil
}

// Close closes the database connection.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
