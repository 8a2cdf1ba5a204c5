// Package reputation provides persistence adapters for the
// domain-reputation configuration table. Stores hold configuration,
// not derived state: an update is a whole-entry upsert with scores
// clamped to [0, 1], and Load produces the material for a fresh
// immutable tables snapshot.
package reputation

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the ReputationStore
// interface.
type MemoryStore struct {
	scores map[string]float64
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewMemoryStore creates a new in-memory reputation store, optionally
// seeded with initial scores.
func NewMemoryStore(logger *zap.Logger, seed map[string]float64) *MemoryStore {
	store := &MemoryStore{
		scores: make(map[string]float64, len(seed)),
		logger: logger,
	}
	for domain, score := range seed {
		store.scores[normalize(domain)] = clampScore(score)
	}
	return store
}

// Load returns a copy of the stored domain scores.
func (s *MemoryStore) Load(ctx context.Context) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make(map[string]float64, len(s.scores))
	for domain, score := range s.scores {
		scores[domain] = score
	}
	return scores, nil
}

// Upsert replaces entries for the given domains, clamping scores to
// [0, 1].
func (s *MemoryStore) Upsert(ctx context.Context, scores map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for domain, score := range scores {
		s.scores[normalize(domain)] = clampScore(score)
	}

	s.logger.Info("Updated domain reputation scores", zap.Int("domains", len(scores)))
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func normalize(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
