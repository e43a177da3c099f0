package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIsTotal(t *testing.T) {
	r := New()

	s := r.Get(42)
	assert.Equal(t, 42, s.CameraID)
	assert.False(t, s.IsPlaying)
	assert.False(t, s.IsLoading)
	assert.False(t, s.HasError)
	assert.Empty(t, s.SessionID)

	_, ok := r.Lookup(42)
	assert.False(t, ok)
}

func TestSetReplacesWholesale(t *testing.T) {
	r := New()

	r.Set(7, StreamSession{SessionID: "s1", IsPlaying: true, ErrorMessage: "old"})
	r.Set(7, StreamSession{SessionID: "s2", IsLoading: true})

	s := r.Get(7)
	assert.Equal(t, "s2", s.SessionID)
	assert.True(t, s.IsLoading)
	assert.False(t, s.IsPlaying)
	assert.Empty(t, s.ErrorMessage, "replacement must not merge old fields")
	assert.Len(t, r.Entries(), 1)
}

func TestDeleteRemovesEntry(t *testing.T) {
	r := New()

	r.Set(7, StreamSession{SessionID: "s1"})
	r.Delete(7)

	_, ok := r.Lookup(7)
	assert.False(t, ok)

	// Deleting an absent entry is a no-op
	r.Delete(7)
}

func TestApplyRequiresMatchingToken(t *testing.T) {
	r := New()
	r.Set(7, StreamSession{IsLoading: true, Token: "attempt-1"})

	applied := r.Apply(7, "attempt-1", func(s *StreamSession) {
		s.SessionID = "s1"
		s.IsLoading = false
		s.IsPlaying = true
	})
	require.True(t, applied)
	assert.Equal(t, "s1", r.Get(7).SessionID)

	// A later start supersedes the token; the stale response must be dropped.
	r.Set(7, StreamSession{IsLoading: true, Token: "attempt-2"})
	applied = r.Apply(7, "attempt-1", func(s *StreamSession) {
		s.SessionID = "stale"
	})
	assert.False(t, applied)
	assert.Empty(t, r.Get(7).SessionID)

	// A stopped session has no entry to apply onto.
	r.Delete(7)
	applied = r.Apply(7, "attempt-2", func(s *StreamSession) {})
	assert.False(t, applied)
}

func TestSubscribeNotifiesOnEveryMutation(t *testing.T) {
	r := New()

	notified := 0
	unsubscribe := r.Subscribe(func() { notified++ })

	r.Set(1, StreamSession{})
	r.Touch(1)
	r.Delete(1)
	assert.Equal(t, 3, notified)

	unsubscribe()
	r.Set(2, StreamSession{})
	assert.Equal(t, 3, notified, "unsubscribed observer must not fire")
}

func TestObserverCanReadRegistry(t *testing.T) {
	r := New()

	var seen StreamSession
	r.Subscribe(func() {
		seen = r.Get(9)
	})

	r.Set(9, StreamSession{SessionID: "s9", IsPlaying: true})
	assert.Equal(t, "s9", seen.SessionID, "observers re-read state, notification carries no payload")
}

func TestTouchUpdatesLastAccessed(t *testing.T) {
	r := New()

	past := time.Now().Add(-time.Hour)
	r.Set(3, StreamSession{LastAccessed: past})
	r.Touch(3)

	assert.True(t, r.Get(3).LastAccessed.After(past))

	// Touching an absent camera is a no-op
	r.Touch(4)
	_, ok := r.Lookup(4)
	assert.False(t, ok)
}
