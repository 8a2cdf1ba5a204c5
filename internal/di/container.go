package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/newsletter-sieve/internal/config"
	"github.com/mikey/newsletter-sieve/internal/core"
	"github.com/mikey/newsletter-sieve/internal/extractor"
	"github.com/mikey/newsletter-sieve/internal/factory"
	"github.com/mikey/newsletter-sieve/internal/logging"
)

// BuildContainer creates and configures a dependency injection
// container for the digest runner daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewReputationFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailboxFactory); err != nil {
		return nil, err
	}

	// Register reputation store
	if err := container.Provide(func(f *factory.ReputationFactory) (core.ReputationStore, error) {
		return f.CreateReputationStore()
	}); err != nil {
		return nil, err
	}

	// Register pattern tables: built-ins overlaid with the stored
	// domain-reputation snapshot captured at startup
	if err := container.Provide(func(store core.ReputationStore, logger *zap.Logger) core.PatternTables {
		tables := core.DefaultPatternTables()
		stored, err := store.Load(context.Background())
		if err != nil {
			logger.Error("Failed to load stored domain reputation, using built-ins", zap.Error(err))
			return tables
		}
		if len(stored) == 0 {
			return tables
		}
		merged := make(map[string]float64, len(tables.DomainReputation)+len(stored))
		for domain, score := range tables.DomainReputation {
			merged[domain] = score
		}
		for domain, score := range stored {
			merged[domain] = score
		}
		logger.Info("Loaded stored domain reputation", zap.Int("domains", len(stored)))
		return tables.WithDomainReputation(merged)
	}); err != nil {
		return nil, err
	}

	// Register extractor
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.Extractor {
		return extractor.New(logger, cfg.GetFilter().MaxBodySize)
	}); err != nil {
		return nil, err
	}

	// Register filter service
	if err := container.Provide(func(
		ex core.Extractor,
		tables core.PatternTables,
		cfg *config.Config,
		logger *zap.Logger,
	) *core.FilterService {
		filterCfg := cfg.GetFilter()
		return core.NewFilterService(
			ex,
			tables,
			logger,
			filterCfg.Workers,
			filterCfg.WhitelistedDomains,
		)
	}); err != nil {
		return nil, err
	}

	// Register message source
	if err := container.Provide(func(f *factory.MailboxFactory) (core.MessageSource, error) {
		return f.CreateMessageSource()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
