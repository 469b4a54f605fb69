package sse

import "time"

// Config holds subscription-stream settings.
type Config struct {
	// KeepAliveInterval is how often to send keep-alive comments. 10-15
	// seconds stays inside most proxy idle timeouts.
	KeepAliveInterval time.Duration
}

// DefaultConfig returns the default stream configuration.
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 10 * time.Second,
	}
}
