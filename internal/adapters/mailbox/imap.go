// Package mailbox fetches raw messages over IMAP. It is a thin
// external collaborator of the core: each fetch returns already-read
// bytes and closes the connection before the core touches them.
package mailbox

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/mikey/newsletter-sieve/internal/core"
)

// recentWindow bounds the fallback fetch when a SINCE search returns
// nothing usable.
const recentWindow = 100

// IMAPSource implements core.MessageSource against an IMAP server.
type IMAPSource struct {
	host     string
	port     string
	username string
	password string
	tls      bool
	mailbox  string
	logger   *zap.Logger
}

// NewIMAPSource creates a new IMAP message source.
func NewIMAPSource(host, port, username, password string, useTLS bool, mailboxName string, logger *zap.Logger) *IMAPSource {
	if mailboxName == "" {
		mailboxName = "INBOX"
	}
	return &IMAPSource{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      useTLS,
		mailbox:  mailboxName,
		logger:   logger,
	}
}

// connect dials the server, authenticates and selects the mailbox.
// The caller is responsible for Logout on the returned client.
func (s *IMAPSource) connect(_ context.Context) (*imapclient.Client, error) {
	addr := s.host + ":" + s.port

	var client *imapclient.Client
	var err error
	if s.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(s.username, s.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", s.username, err)
	}

	if _, err := client.Select(s.mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", s.mailbox, err)
	}

	return client, nil
}

// FetchSince retrieves the raw bytes of messages received in the last
// N days, newest-first capped at limit. The connection is closed
// before returning; fetched payloads are fully owned by the caller.
func (s *IMAPSource) FetchSince(ctx context.Context, days int, limit int) ([]core.RawMessage, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if days < 1 {
		days = 1
	}
	since := time.Now().AddDate(0, 0, -days)

	searchData, err := client.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		// Some servers mishandle SINCE; fall back to a recent window.
		s.logger.Warn("SINCE search returned no messages, trying recent window")
		allData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
		if err != nil {
			return nil, fmt.Errorf("fallback search: %w", err)
		}
		uids = allData.AllUIDs()
		if len(uids) > recentWindow {
			uids = uids[len(uids)-recentWindow:]
		}
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}
	if len(uids) == 0 {
		return nil, nil
	}

	s.logger.Info("Fetching messages",
		zap.Int("count", len(uids)),
		zap.Int("since_days", days))

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})

	var msgs []core.RawMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			s.logger.Warn("Failed to collect message", zap.Error(err))
			continue
		}

		body := buf.FindBodySection(bodySection)
		if body == nil {
			continue
		}
		msgs = append(msgs, core.RawMessage{
			ID:   strconv.FormatUint(uint64(buf.UID), 10),
			Data: body,
		})
	}

	if err := fetchCmd.Close(); err != nil {
		return msgs, fmt.Errorf("fetching messages: %w", err)
	}

	return msgs, nil
}
