package stream

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/egrangel/facerecon-sub002/internal/backend"
	"github.com/egrangel/facerecon-sub002/internal/registry"
)

// Manager orchestrates stream session lifecycle: admission against the
// backend, teardown, refresh, and the idle sweep. All state lives in the
// registry; the manager itself is stateless between calls.
type Manager struct {
	registry *registry.Registry
	backend  backend.SessionAPI

	// Timing fields default to the contract constants. Tests shorten them;
	// production code must not.
	RefreshSettle time.Duration
	SweepInterval time.Duration
	IdleThreshold time.Duration

	now func() time.Time
}

func NewManager(reg *registry.Registry, api backend.SessionAPI) *Manager {
	return &Manager{
		registry:      reg,
		backend:       api,
		RefreshSettle: RefreshSettleDelay,
		SweepInterval: SweepInterval,
		IdleThreshold: IdleThreshold,
		now:           time.Now,
	}
}

// Registry returns the live registry the manager mutates.
func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// StartStream admits a stream session for a camera. It installs a loading
// entry first, then calls the backend; the response is applied only if the
// entry still belongs to this attempt, so a late response can never
// overwrite a session that was stopped or restarted in the meantime.
//
// StartStream does not open the frame channel. Consumers observe the
// registry and attach a channel once a non-empty sessionId appears.
func (m *Manager) StartStream(ctx context.Context, cameraID int) error {
	token := uuid.NewString()
	m.registry.Set(cameraID, registry.StreamSession{
		IsLoading:    true,
		LastAccessed: m.now(),
		Token:        token,
	})

	grant, err := m.backend.GetStreamSession(ctx, cameraID)
	if err != nil {
		msg := admissionErrorMessage(err)
		m.registry.Apply(cameraID, token, func(s *registry.StreamSession) {
			s.IsLoading = false
			s.IsPlaying = false
			s.HasError = true
			s.ErrorMessage = msg
		})
		return err
	}

	applied := m.registry.Apply(cameraID, token, func(s *registry.StreamSession) {
		s.SessionID = grant.SessionID
		s.StreamURL = grant.StreamURL
		s.IsLoading = false
		s.IsPlaying = true
		s.HasError = false
		s.ErrorMessage = ""
	})
	if !applied {
		// Superseded while the request was in flight. The backend allocated
		// a session nobody will use; release it so it doesn't linger.
		log.Printf("Camera %d: start superseded, releasing orphan session %s", cameraID, grant.SessionID)
		if err := m.backend.StopStreamSession(ctx, grant.SessionID); err != nil {
			log.Printf("Camera %d: failed to release orphan session %s: %v", cameraID, grant.SessionID, err)
		}
	}
	return nil
}

// StopStream tears down the session for a camera. The registry entry is
// removed regardless of whether the backend teardown succeeds: local state
// must never retain a dead session because of a remote error.
func (m *Manager) StopStream(ctx context.Context, cameraID int) {
	s, ok := m.registry.Lookup(cameraID)
	if ok && s.SessionID != "" {
		if err := m.backend.StopStreamSession(ctx, s.SessionID); err != nil {
			log.Printf("Camera %d: session %s teardown failed, removing locally anyway: %v", cameraID, s.SessionID, err)
		}
	}
	m.registry.Delete(cameraID)
}

// RefreshStream stops and re-admits a camera's stream. The settle delay
// between the two is a floor that lets the backend finish tearing down the
// old session before the new admission arrives.
func (m *Manager) RefreshStream(ctx context.Context, cameraID int) error {
	m.StopStream(ctx, cameraID)

	select {
	case <-time.After(m.RefreshSettle):
	case <-ctx.Done():
		return ctx.Err()
	}

	return m.StartStream(ctx, cameraID)
}

// DismissError clears an errored session without retrying, returning the
// camera to the idle projection.
func (m *Manager) DismissError(cameraID int) {
	s, ok := m.registry.Lookup(cameraID)
	if ok && s.HasError {
		m.registry.Delete(cameraID)
	}
}
