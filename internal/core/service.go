package core

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FilterService runs the extract -> classify -> aggregate pipeline over
// message batches. Classification of each message depends only on its
// own normalized form and the immutable tables snapshot, so batches are
// sharded across workers and merged back in input order before the
// aggregator sees them.
type FilterService struct {
	extractor          Extractor
	tables             PatternTables
	logger             *zap.Logger
	workers            int
	whitelistedDomains []string
}

// NewFilterService creates a new newsletter filter service. The tables
// value is captured as the snapshot used for the whole lifetime of the
// service; build a new service (or call WithTables) to pick up
// configuration updates.
func NewFilterService(
	extractor Extractor,
	tables PatternTables,
	logger *zap.Logger,
	workers int,
	whitelistedDomains []string,
) *FilterService {
	if workers < 1 {
		workers = 1
	}
	normalized := make([]string, len(whitelistedDomains))
	for i, domain := range whitelistedDomains {
		normalized[i] = normalizeDomain(domain)
	}
	return &FilterService{
		extractor:          extractor,
		tables:             tables,
		logger:             logger,
		workers:            workers,
		whitelistedDomains: normalized,
	}
}

// WithTables returns a service using a new tables snapshot. The
// receiver keeps its own snapshot; in-flight batches are unaffected.
func (s *FilterService) WithTables(tables PatternTables) *FilterService {
	clone := *s
	clone.tables = tables
	return &clone
}

// isDomainWhitelisted checks if the sender's domain is always kept.
func (s *FilterService) isDomainWhitelisted(sender string) bool {
	address, _ := parseSender(sender)
	domain := senderDomain(address)
	if domain == "" {
		return false
	}
	for _, whitelisted := range s.whitelistedDomains {
		if strings.EqualFold(domain, whitelisted) {
			return true
		}
	}
	return false
}

// ClassifyEmail scores one normalized email against the service's
// tables snapshot, honoring the whitelist bypass.
func (s *FilterService) ClassifyEmail(email *NormalizedEmail) ClassificationDecision {
	if s.isDomainWhitelisted(email.Sender) {
		s.logger.Debug("Skipping classification for whitelisted domain",
			zap.String("sender", email.Sender),
			zap.String("action", "whitelist_bypass"))
		return ClassificationDecision{
			EmailID:        email.ID,
			Subject:        normalizeText(email.Subject),
			Sender:         normalizeText(email.Sender),
			ShouldKeep:     true,
			PrimaryPattern: "whitelisted_domain",
		}
	}
	return Classify(email, s.tables)
}

// FilterBatch extracts and classifies a batch of raw messages and
// returns the kept emails in input order together with run statistics.
// Messages whose payload cannot be normalized at all are skipped and
// the batch continues.
func (s *FilterService) FilterBatch(ctx context.Context, msgs []RawMessage) (*BatchResult, error) {
	runID := uuid.NewString()
	s.logger.Info("Applying newsletter detection",
		zap.String("run_id", runID),
		zap.Int("messages", len(msgs)),
		zap.Int("workers", s.workers))

	emails := make([]*NormalizedEmail, len(msgs))
	decisions := make([]ClassificationDecision, len(msgs))
	ok := make([]bool, len(msgs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range msgs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			email := s.extractor.Extract(msgs[i])
			if email == nil {
				s.logger.Warn("No normalized email could be produced",
					zap.String("message_id", msgs[i].ID))
				return nil
			}
			emails[i] = email
			decisions[i] = s.ClassifyEmail(email)
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Single-writer merge: counters update deterministically in input
	// order, never from the workers.
	agg := NewAggregator()
	result := &BatchResult{RunID: runID}
	for i := range msgs {
		if !ok[i] {
			continue
		}
		decision := decisions[i]
		agg.Record(decision)
		result.Decisions = append(result.Decisions, decision)
		if decision.ShouldKeep {
			result.Kept = append(result.Kept, emails[i])
			s.logger.Debug("Email kept as newsletter",
				zap.String("email_id", decision.EmailID),
				zap.Float64("score", decision.TotalScore))
		} else {
			s.logger.Debug("Email filtered out as transactional",
				zap.String("email_id", decision.EmailID),
				zap.Float64("score", decision.TotalScore))
		}
	}
	result.Stats = agg.Snapshot()

	s.logSummary(result)
	return result, nil
}

// logSummary reports run totals and the primary-pattern distribution.
func (s *FilterService) logSummary(result *BatchResult) {
	total := result.Stats.TotalProcessed
	if total == 0 {
		s.logger.Info("Filtering complete, no messages processed",
			zap.String("run_id", result.RunID))
		return
	}

	kept := result.Stats.NewslettersDetected
	filtered := result.Stats.TransactionalDetected
	s.logger.Info("Filtering summary",
		zap.String("run_id", result.RunID),
		zap.Int("total_processed", total),
		zap.Int("newsletters_detected", kept),
		zap.Int("transactional_filtered", filtered),
		zap.Float64("kept_pct", float64(kept)/float64(total)*100))

	for pattern, count := range result.Stats.PatternCounts {
		s.logger.Debug("Detection pattern",
			zap.String("pattern", pattern),
			zap.Int("count", count))
	}
}
