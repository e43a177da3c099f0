package config

import (
	"net/url"
	"os"
	"strings"
	"time"
)

// StreamEndpointPath is the single well-known stream endpoint every frame
// channel connects to. Sessions carry an informational streamUrl, but the
// connection target is always this path on the backend origin.
const StreamEndpointPath = "/ws/stream"

type Config struct {
	// Server config
	ServerAddress string

	// Backend (session-issuing API) config
	BackendOrigin  string
	BackendTimeout time.Duration
}

func New() *Config {
	return &Config{
		ServerAddress:  getEnv("SERVER_ADDRESS", ":8092"),
		BackendOrigin:  getEnv("BACKEND_ORIGIN", "http://localhost:3000"),
		BackendTimeout: getEnvAsDuration("BACKEND_TIMEOUT", 10*time.Second),
	}
}

// StreamEndpoint derives the websocket URL for the stream endpoint from the
// backend origin: wss when the origin is https, ws otherwise.
func (c *Config) StreamEndpoint() string {
	u, err := url.Parse(c.BackendOrigin)
	if err != nil || u.Host == "" {
		return "ws://localhost:3000" + StreamEndpointPath
	}

	scheme := "ws"
	if u.Scheme == "https" || u.Scheme == "wss" {
		scheme = "wss"
	}
	return scheme + "://" + u.Host + StreamEndpointPath
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
