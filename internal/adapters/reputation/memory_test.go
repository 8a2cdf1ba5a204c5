package reputation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStoreSeedAndLoad(t *testing.T) {
	store := NewMemoryStore(zap.NewNop(), map[string]float64{
		"MorningBrew.com": 0.9,
		"too-high.com":    1.4,
		"too-low.com":     -0.2,
	})

	scores, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0.9, scores["morningbrew.com"])
	assert.Equal(t, 1.0, scores["too-high.com"])
	assert.Equal(t, 0.0, scores["too-low.com"])
}

func TestMemoryStoreUpsert(t *testing.T) {
	store := NewMemoryStore(zap.NewNop(), map[string]float64{"a.com": 0.5})
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, map[string]float64{
		"a.com": 0.8,
		"B.net": 2.0,
	}))

	scores, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.8, scores["a.com"])
	assert.Equal(t, 1.0, scores["b.net"])
}

func TestLoadReturnsIndependentCopy(t *testing.T) {
	store := NewMemoryStore(zap.NewNop(), map[string]float64{"a.com": 0.5})
	ctx := context.Background()

	scores, err := store.Load(ctx)
	require.NoError(t, err)
	scores["a.com"] = 0.1

	reloaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.5, reloaded["a.com"])
	assert.NoError(t, store.Close())
}
