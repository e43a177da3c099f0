package registry

import (
	"sync"
	"time"
)

// StreamSession is the per-camera stream state tracked by the gateway.
// At most one entry exists per camera; starting a stream for a camera that
// already has an entry replaces it wholesale so a stale sessionId can never
// be reused.
type StreamSession struct {
	CameraID     int       `json:"camera_id"`
	SessionID    string    `json:"session_id"`
	StreamURL    string    `json:"stream_url"`
	IsPlaying    bool      `json:"is_playing"`
	IsLoading    bool      `json:"is_loading"`
	HasError     bool      `json:"has_error"`
	ErrorMessage string    `json:"error_message,omitempty"`
	LastAccessed time.Time `json:"last_accessed"`

	// Token identifies the start attempt that installed this entry. A late
	// admission response is applied only if the token still matches, so a
	// response for a stopped or restarted session is discarded.
	Token string `json:"-"`
}

// Registry is the process-wide camera → stream session map. It is the single
// source of truth for whether a camera's stream is active, loading or errored.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[int]*StreamSession
	observers map[int]func()
	nextObs   int
}

func New() *Registry {
	return &Registry{
		sessions:  make(map[int]*StreamSession),
		observers: make(map[int]func()),
	}
}

// Get returns the session state for a camera. It is total: when no entry
// exists it returns the idle projection (not playing, not loading, no error).
func (r *Registry) Get(cameraID int) StreamSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.sessions[cameraID]; ok {
		return *s
	}
	return StreamSession{CameraID: cameraID}
}

// Lookup returns the session state and whether an entry actually exists.
func (r *Registry) Lookup(cameraID int) (StreamSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.sessions[cameraID]; ok {
		return *s, true
	}
	return StreamSession{CameraID: cameraID}, false
}

// Set installs a session for a camera, replacing any existing entry.
func (r *Registry) Set(cameraID int, session StreamSession) {
	session.CameraID = cameraID

	r.mu.Lock()
	copied := session
	r.sessions[cameraID] = &copied
	r.mu.Unlock()

	r.notify()
}

// Delete removes the entry for a camera. Removing an absent entry is a no-op
// and still counts as a mutation for observers only when something changed.
func (r *Registry) Delete(cameraID int) {
	r.mu.Lock()
	_, existed := r.sessions[cameraID]
	delete(r.sessions, cameraID)
	r.mu.Unlock()

	if existed {
		r.notify()
	}
}

// Apply mutates the entry for a camera in place, but only while the entry
// still carries the given start-attempt token. It reports whether the
// mutation was applied. Callers use this to drop admission responses that
// complete after the session was stopped or restarted.
func (r *Registry) Apply(cameraID int, token string, fn func(*StreamSession)) bool {
	r.mu.Lock()
	s, ok := r.sessions[cameraID]
	if !ok || s.Token != token {
		r.mu.Unlock()
		return false
	}
	fn(s)
	r.mu.Unlock()

	r.notify()
	return true
}

// Touch refreshes LastAccessed for a camera, keeping the idle sweep away
// while the user interacts with the stream.
func (r *Registry) Touch(cameraID int) {
	r.mu.Lock()
	s, ok := r.sessions[cameraID]
	if ok {
		s.LastAccessed = time.Now()
	}
	r.mu.Unlock()

	if ok {
		r.notify()
	}
}

// Entries returns a snapshot of all live sessions.
func (r *Registry) Entries() []StreamSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]StreamSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		entries = append(entries, *s)
	}
	return entries
}

// Subscribe registers a change observer and returns its unsubscribe func.
// Notifications carry no payload; observers re-read current state.
func (r *Registry) Subscribe(fn func()) func() {
	r.mu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

// notify invokes observers outside the lock so a callback can read the
// registry without deadlocking.
func (r *Registry) notify() {
	r.mu.RLock()
	observers := make([]func(), 0, len(r.observers))
	for _, fn := range r.observers {
		observers = append(observers, fn)
	}
	r.mu.RUnlock()

	for _, fn := range observers {
		fn()
	}
}
