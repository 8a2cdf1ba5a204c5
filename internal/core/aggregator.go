package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Aggregator accumulates run statistics across a batch of decisions.
// Record must be called from a single goroutine, in input order; shard
// workers merge through it, they never update it concurrently.
type Aggregator struct {
	stats AggregateStats
}

// NewAggregator returns an empty aggregator for a new batch.
func NewAggregator() *Aggregator {
	return &Aggregator{
		stats: AggregateStats{
			PatternCounts: make(map[string]int),
		},
	}
}

// Record folds one decision into the run statistics.
func (a *Aggregator) Record(decision ClassificationDecision) {
	a.stats.TotalProcessed++
	a.stats.PatternCounts[decision.PrimaryPattern]++
	if decision.ShouldKeep {
		a.stats.NewslettersDetected++
	} else {
		a.stats.TransactionalDetected++
	}
}

// Snapshot returns a copy of the current statistics. The returned
// value is independent of later Record calls.
func (a *Aggregator) Snapshot() AggregateStats {
	snapshot := a.stats
	snapshot.PatternCounts = make(map[string]int, len(a.stats.PatternCounts))
	for pattern, count := range a.stats.PatternCounts {
		snapshot.PatternCounts[pattern] = count
	}
	return snapshot
}

// BuildDecisionLog assembles the audit document for a set of
// decisions. The stats block is recomputed from the decisions so the
// document round-trips to the same counters it was built from, and the
// decision order matches the order they were recorded in.
func BuildDecisionLog(decisions []ClassificationDecision, now time.Time) DecisionLog {
	agg := NewAggregator()
	for _, d := range decisions {
		agg.Record(d)
	}
	stats := agg.Snapshot()

	return DecisionLog{
		GeneratedAt:         now,
		TotalProcessed:      len(decisions),
		NewslettersDetected: stats.NewslettersDetected,
		Decisions:           decisions,
		Stats:               stats,
	}
}

// ExportLog serializes the decision log for offline audit.
func ExportLog(decisions []ClassificationDecision, now time.Time) ([]byte, error) {
	doc := BuildDecisionLog(decisions, now)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize decision log: %w", err)
	}
	return data, nil
}
