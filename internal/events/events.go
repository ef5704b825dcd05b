// Package events carries user change notifications over a WebSocket.
//
// The backend pushes one JSON text frame per change on the events endpoint:
//
//	{"type":"user.created","userId":"6650...","name":"Ada","at":"2026-10-16T09:00:00Z"}
//
// Subscriber reconnects with exponential backoff until its context ends.
// The development server in internal/devserver publishes the same frames.
package events

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Event types
const (
	TypeUserCreated = "user.created"
	TypeUserUpdated = "user.updated"
)

// Path is the events endpoint, relative to the backend origin.
const Path = "/api/v1/events"

const (
	// WriteWait is the time allowed to write a message to the peer
	WriteWait = 10 * time.Second

	// PongWait is the time allowed to read the next pong message from the peer
	PongWait = 60 * time.Second

	// PingPeriod is how often the server pings (must be less than PongWait)
	PingPeriod = (PongWait * 9) / 10

	// MaxMessageSize is the largest frame either side accepts
	MaxMessageSize = 8192
)

// Event is one user change.
type Event struct {
	Type   string    `json:"type"`
	UserID string    `json:"userId"`
	Name   string    `json:"name,omitempty"`
	At     time.Time `json:"at"`
}

func (e Event) String() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %s (%s)", e.Type, e.Name, e.UserID)
	}
	return fmt.Sprintf("%s %s", e.Type, e.UserID)
}

// URL returns the events endpoint for the backend at baseURL, switching
// http to ws and https to wss.
func URL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("invalid backend URL %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid backend URL %q: missing host", baseURL)
	}

	u.Path = strings.TrimRight(u.Path, "/") + Path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
