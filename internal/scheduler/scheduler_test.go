package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNextFire(t *testing.T) {
	s := New(20, 0, nil, zap.NewNop())

	morning := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 24, 20, 0, 0, 0, time.UTC), s.nextFire(morning))

	evening := time.Date(2026, 8, 24, 21, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 25, 20, 0, 0, 0, time.UTC), s.nextFire(evening))

	// Exactly at the fire time rolls over to the next day.
	exact := time.Date(2026, 8, 24, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 25, 20, 0, 0, 0, time.UTC), s.nextFire(exact))
}

func TestStartStopsOnContextCancel(t *testing.T) {
	s := New(3, 0, func(ctx context.Context) error { return nil }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

func TestStop(t *testing.T) {
	s := New(3, 0, func(ctx context.Context) error { return nil }, zap.NewNop())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after Stop")
	}
}
