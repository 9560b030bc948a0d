package channel

import "time"

// Config controls how the client reaches the relay.
type Config struct {
	// URL of the relay websocket endpoint, e.g. ws://localhost:8093/ws.
	URL              string
	HandshakeTimeout time.Duration
	// ReadTimeout bounds a single read; 0 disables it. The relay pings idle
	// connections, so it is normally left at 0.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// EventBuffer is the capacity of the inbound event queue.
	EventBuffer int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:              "ws://localhost:8093/ws",
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		EventBuffer:      64,
	}
}
