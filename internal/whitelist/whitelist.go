package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether a sender's domain should always be kept,
// bypassing the heuristic scorer entirely.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make([]string, len(domains))
	for i, domain := range domains {
		normalized[i] = strings.ToLower(strings.TrimSpace(domain))
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized whitelist checker", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsWhitelisted checks if the sender's domain is in the whitelist
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	at := strings.LastIndexByte(from, '@')
	if at < 0 || at == len(from)-1 {
		return false
	}
	domain := strings.ToLower(strings.TrimSuffix(from[at+1:], ">"))

	for _, whitelisted := range c.domains {
		if whitelisted == domain {
			if c.logger != nil {
				c.logger.Debug("Domain is whitelisted",
					zap.String("domain", domain),
					zap.String("sender", from))
			}
			return true
		}
	}

	return false
}
