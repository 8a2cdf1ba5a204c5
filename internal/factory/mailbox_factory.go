package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/newsletter-sieve/internal/adapters/mailbox"
	"github.com/mikey/newsletter-sieve/internal/config"
	"github.com/mikey/newsletter-sieve/internal/core"
)

// MailboxFactory creates message sources based on configuration
type MailboxFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailboxFactory creates a new mailbox source factory
func NewMailboxFactory(cfg *config.Config, logger *zap.Logger) *MailboxFactory {
	return &MailboxFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMessageSource creates the configured IMAP message source
func (f *MailboxFactory) CreateMessageSource() (core.MessageSource, error) {
	imapCfg := f.cfg.GetIMAP()
	if imapCfg.Username == "" || imapCfg.Password == "" {
		return nil, fmt.Errorf("imap.username and imap.password must be configured")
	}

	return mailbox.NewIMAPSource(
		imapCfg.Host,
		imapCfg.Port,
		imapCfg.Username,
		imapCfg.Password,
		imapCfg.TLS,
		imapCfg.Mailbox,
		f.logger,
	), nil
}
