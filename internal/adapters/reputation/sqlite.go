package reputation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the ReputationStore
// interface.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite reputation store.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_reputation (
			domain TEXT PRIMARY KEY,
			score REAL NOT NULL,
			updated_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Load returns all stored domain scores.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]float64, error) {
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
func (s *SQLiteStore) Upsert(ctx context.Context, scores map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Format(time.RFC3339)
	for domain, score := range scores {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO domain_reputation (domain, score, updated_at)
			VALUES (?, ?, ?)
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
