package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubExtractor maps message IDs to pre-built normalized emails; unknown
// IDs yield nil, as a real extractor does for unusable payloads.
type stubExtractor struct {
	emails map[string]*NormalizedEmail
}

func (s stubExtractor) Extract(msg RawMessage) *NormalizedEmail {
	return s.emails[msg.ID]
}

func newTestService(t *testing.T, extractor Extractor, whitelisted ...string) *FilterService {
	t.Helper()
	return NewFilterService(extractor, DefaultPatternTables(), zap.NewNop(), 4, whitelisted)
}

func TestFilterBatchOrderAndStats(t *testing.T) {
	extractor := stubExtractor{emails: map[string]*NormalizedEmail{
		"a": newsletterEmail(),
		"b": transactionalEmail(),
		"d": newsletterEmail(),
	}}
	extractor.emails["a"].ID = "a"
	extractor.emails["b"].ID = "b"
	extractor.emails["d"].ID = "d"

	service := newTestService(t, extractor)
	msgs := []RawMessage{
		{ID: "a", Data: []byte("x")},
		{ID: "b", Data: []byte("x")},
		{ID: "c", Data: []byte("x")}, // extraction fails, skipped
		{ID: "d", Data: []byte("x")},
	}

	result, err := service.FilterBatch(context.Background(), msgs)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)

	// The unusable message is skipped; decisions stay in input order.
	require.Len(t, result.Decisions, 3)
	assert.Equal(t, "a", result.Decisions[0].EmailID)
	assert.Equal(t, "b", result.Decisions[1].EmailID)
	assert.Equal(t, "d", result.Decisions[2].EmailID)

	require.Len(t, result.Kept, 2)
	assert.Equal(t, "a", result.Kept[0].ID)
	assert.Equal(t, "d", result.Kept[1].ID)

	assert.Equal(t, 3, result.Stats.TotalProcessed)
	assert.Equal(t, 2, result.Stats.NewslettersDetected)
	assert.Equal(t, 1, result.Stats.TransactionalDetected)
}

func TestFilterBatchDeterministicAcrossWorkerCounts(t *testing.T) {
	emails := map[string]*NormalizedEmail{}
	var msgs []RawMessage
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		var email *NormalizedEmail
		if id < "5" {
			email = newsletterEmail()
		} else {
			email = transactionalEmail()
		}
		email.ID = id
		emails[id] = email
		msgs = append(msgs, RawMessage{ID: id, Data: []byte("x")})
	}
	extractor := stubExtractor{emails: emails}

	single := NewFilterService(extractor, DefaultPatternTables(), zap.NewNop(), 1, nil)
	parallel := NewFilterService(extractor, DefaultPatternTables(), zap.NewNop(), 8, nil)

	a, err := single.FilterBatch(context.Background(), msgs)
	require.NoError(t, err)
	b, err := parallel.FilterBatch(context.Background(), msgs)
	require.NoError(t, err)

	assert.Equal(t, a.Decisions, b.Decisions)
	assert.Equal(t, a.Stats, b.Stats)
}

func TestFilterBatchEmpty(t *testing.T) {
	service := newTestService(t, stubExtractor{})

	result, err := service.FilterBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Decisions)
	assert.Empty(t, result.Kept)
	assert.Equal(t, 0, result.Stats.TotalProcessed)
}

func TestFilterBatchCancelledContext(t *testing.T) {
	service := newTestService(t, stubExtractor{emails: map[string]*NormalizedEmail{
		"a": newsletterEmail(),
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.FilterBatch(ctx, []RawMessage{{ID: "a", Data: []byte("x")}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyEmailWhitelistBypass(t *testing.T) {
	service := newTestService(t, stubExtractor{}, "Work.Example.COM")

	email := transactionalEmail()
	email.Sender = "billing@work.example.com"
	decision := service.ClassifyEmail(email)

	assert.True(t, decision.ShouldKeep)
	assert.Equal(t, "whitelisted_domain", decision.PrimaryPattern)
	assert.Equal(t, SignalScores{}, decision.Analysis)

	// Non-whitelisted senders take the normal scoring path.
	other := service.ClassifyEmail(transactionalEmail())
	assert.False(t, other.ShouldKeep)
}

func TestWithTablesLeavesReceiverUntouched(t *testing.T) {
	service := newTestService(t, stubExtractor{})
	boosted := service.WithTables(DefaultPatternTables().WithDomainReputation(
		map[string]float64{"amazon.com": 1.0},
	))

	email := transactionalEmail()
	original := service.ClassifyEmail(email)
	updated := boosted.ClassifyEmail(email)

	assert.Greater(t, updated.Analysis.DomainReputation, original.Analysis.DomainReputation)
	// Re-running against the original service is unchanged.
	assert.Equal(t, original, service.ClassifyEmail(email))
}
