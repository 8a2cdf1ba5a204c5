package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/newsletter-sieve/internal/adapters/reputation"
	"github.com/mikey/newsletter-sieve/internal/config"
	"github.com/mikey/newsletter-sieve/internal/core"
)

// ReputationFactory creates domain-reputation stores based on configuration
type ReputationFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewReputationFactory creates a new reputation store factory
func NewReputationFactory(cfg *config.Config, logger *zap.Logger) *ReputationFactory {
	return &ReputationFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReputationStore creates a reputation store based on the
// configured type
func (f *ReputationFactory) CreateReputationStore() (core.ReputationStore, error) {
	repCfg := f.cfg.GetReputation()

	switch repCfg.Type {
	case "memory":
		return reputation.NewMemoryStore(f.logger, nil), nil
	case "sqlite":
		return reputation.NewSQLiteStore(repCfg.SQLitePath, f.logger)
	case "mysql":
		return reputation.NewMySQLStore(repCfg.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported reputation store type: %s", repCfg.Type)
	}
}
