package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIsWhitelisted(t *testing.T) {
	checker := NewChecker([]string{"Work.Example.COM", " partner.org "}, zap.NewNop())

	assert.True(t, checker.IsWhitelisted("billing@work.example.com"))
	assert.True(t, checker.IsWhitelisted("Someone <person@partner.org>"))
	assert.True(t, checker.IsWhitelisted("BILLING@WORK.EXAMPLE.COM"))
	assert.False(t, checker.IsWhitelisted("billing@other.example.com"))
	assert.False(t, checker.IsWhitelisted("not-an-address"))
	assert.False(t, checker.IsWhitelisted("trailing@"))
}

func TestEmptyWhitelist(t *testing.T) {
	checker := NewChecker(nil, zap.NewNop())
	assert.False(t, checker.IsWhitelisted("anyone@anywhere.com"))
}
