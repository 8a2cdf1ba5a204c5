package core

import (
	"context"
)

// Extractor converts a raw message into its normalized representation.
// A nil result means no normalized email could be produced for the
// message; batch processing continues with the remaining messages.
type Extractor interface {
	Extract(msg RawMessage) *NormalizedEmail
}

// MessageSource supplies already-fetched raw messages. The source owns
// the connection lifecycle; the core only sees fetched bytes.
type MessageSource interface {
	FetchSince(ctx context.Context, days int, limit int) ([]RawMessage, error)
}

// ReputationStore persists the domain-reputation configuration table
// between runs.
type ReputationStore interface {
	// Load returns the stored domain -> score mapping.
	Load(ctx context.Context) (map[string]float64, error)

	// Upsert stores the given scores, clamping each to [0, 1]. Entries
	// are replaced whole, never merged.
	Upsert(ctx context.Context, scores map[string]float64) error

	Close() error
}
