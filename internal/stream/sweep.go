package stream

import (
	"context"
	"log"
	"time"
)

// RunSweep reclaims idle sessions until the context is cancelled. A session
// is idle when it is not playing and has sat untouched past the idle
// threshold; playing sessions are never swept regardless of age.
//
// The sweep reads the registry through the manager on every tick, so it
// always observes live state rather than a map captured at startup.
func (m *Manager) RunSweep(ctx context.Context) {
	ticker := time.NewTicker(m.SweepInterval)
	defer ticker.Stop()

	log.Printf("Idle sweep started (interval %v, threshold %v)", m.SweepInterval, m.IdleThreshold)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Idle sweep stopped")
			return
		case <-ticker.C:
			m.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep pass.
func (m *Manager) SweepOnce(ctx context.Context) {
	cutoff := m.now().Add(-m.IdleThreshold)

	for _, s := range m.registry.Entries() {
		if s.IsPlaying || s.LastAccessed.After(cutoff) {
			continue
		}
		log.Printf("Camera %d: reclaiming idle session (last accessed %v)", s.CameraID, s.LastAccessed)
		m.StopStream(ctx, s.CameraID)
	}
}
