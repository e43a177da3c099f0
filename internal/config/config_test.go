package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, ":8092", cfg.ServerAddress)
	assert.Equal(t, "http://localhost:3000", cfg.BackendOrigin)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9000")
	t.Setenv("BACKEND_ORIGIN", "https://backend.internal")
	t.Setenv("BACKEND_TIMEOUT", "3s")

	cfg := New()
	assert.Equal(t, ":9000", cfg.ServerAddress)
	assert.Equal(t, "https://backend.internal", cfg.BackendOrigin)
	assert.Equal(t, 3*time.Second, cfg.BackendTimeout)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")
	assert.Equal(t, 10*time.Second, New().BackendTimeout)
}

func TestStreamEndpoint(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:3000", "ws://localhost:3000/ws/stream"},
		{"https://backend.internal", "wss://backend.internal/ws/stream"},
		{"https://backend.internal:8443", "wss://backend.internal:8443/ws/stream"},
		{"", "ws://localhost:3000/ws/stream"},
	}

	for _, tt := range tests {
		cfg := &Config{BackendOrigin: tt.origin}
		assert.Equal(t, tt.want, cfg.StreamEndpoint(), "origin %q", tt.origin)
	}
}
