package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/egrangel/facerecon-sub002/internal/registry"
)

func TestSweepReclaimsIdleSessions(t *testing.T) {
	fb := &fakeBackend{}
	m := newTestManager(fb)

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	stale := now.Add(-m.IdleThreshold - time.Minute)
	fresh := now.Add(-time.Minute)

	m.Registry().Set(1, registry.StreamSession{SessionID: "s1", IsPlaying: true, LastAccessed: stale})
	m.Registry().Set(2, registry.StreamSession{SessionID: "s2", IsPlaying: false, LastAccessed: stale})
	m.Registry().Set(3, registry.StreamSession{SessionID: "s3", IsPlaying: false, LastAccessed: fresh})

	m.SweepOnce(context.Background())

	_, ok := m.Registry().Lookup(1)
	assert.True(t, ok, "playing sessions are never swept regardless of age")

	_, ok = m.Registry().Lookup(2)
	assert.False(t, ok, "idle session past the threshold is reclaimed")

	_, ok = m.Registry().Lookup(3)
	assert.True(t, ok, "recently touched session stays")

	assert.Equal(t, []string{"stop:s2"}, fb.callLog())
}

func TestSweepAtThresholdBoundary(t *testing.T) {
	fb := &fakeBackend{}
	m := newTestManager(fb)

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	// Exactly at the threshold counts as expired.
	m.Registry().Set(2, registry.StreamSession{SessionID: "s2", LastAccessed: now.Add(-m.IdleThreshold)})
	m.SweepOnce(context.Background())

	_, ok := m.Registry().Lookup(2)
	assert.False(t, ok)
}

func TestRunSweepStopsOnCancel(t *testing.T) {
	fb := &fakeBackend{}
	m := newTestManager(fb)
	m.SweepInterval = 5 * time.Millisecond

	m.Registry().Set(2, registry.StreamSession{
		SessionID:    "s2",
		LastAccessed: time.Now().Add(-m.IdleThreshold - time.Minute),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunSweep(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, ok := m.Registry().Lookup(2)
		return !ok
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop on cancellation")
	}
}
