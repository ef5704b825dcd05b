package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/logging"
	"github.com/muurk/useradmin/internal/version"
)

const (
	// DefaultReconnectDelay is the initial delay before reconnecting
	DefaultReconnectDelay = time.Second

	// DefaultMaxReconnectDelay caps the exponential reconnect backoff
	DefaultMaxReconnectDelay = 30 * time.Second
)

// Subscriber streams events from one backend.
type Subscriber struct {
	// URL is the ws:// or wss:// events endpoint
	URL string

	// Token is sent as a bearer token when non-empty
	Token string

	// Dialer performs the WebSocket handshake
	Dialer *websocket.Dialer

	// ReconnectDelay is the initial delay between reconnect attempts
	ReconnectDelay time.Duration

	// MaxReconnectDelay is the maximum delay between reconnect attempts
	MaxReconnectDelay time.Duration
}

// NewSubscriber creates a subscriber for the backend at baseURL.
func NewSubscriber(baseURL, token string) (*Subscriber, error) {
	u, err := URL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Subscriber{
		URL:               u,
		Token:             token,
		Dialer:            &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		ReconnectDelay:    DefaultReconnectDelay,
		MaxReconnectDelay: DefaultMaxReconnectDelay,
	}, nil
}

// Subscribe connects and streams events until ctx is done, reconnecting
// after a dropped connection. The first connection is made before Subscribe
// returns so that a bad URL or token fails fast. The channel is closed when
// ctx is done.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan Event, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 16)
	go s.run(ctx, conn, out)
	return out, nil
}

func (s *Subscriber) run(ctx context.Context, conn *websocket.Conn, out chan<- Event) {
	defer close(out)

	for {
		err := s.read(ctx, conn, out)
		if ctx.Err() != nil {
			return
		}
		logging.Warn("Event stream disconnected", zap.String("url", s.URL), zap.Error(err))

		if conn = s.reconnect(ctx); conn == nil {
			return
		}
	}
}

// reconnect dials until it succeeds or ctx is done, in which case it
// returns nil.
func (s *Subscriber) reconnect(ctx context.Context) *websocket.Conn {
	delay := s.ReconnectDelay
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		conn, err := s.dial(ctx)
		if err == nil {
			logging.Info("Event stream reconnected", zap.String("url", s.URL))
			return conn
		}
		logging.Debug("Event stream reconnect failed", zap.Duration("delay", delay), zap.Error(err))

		delay *= 2
		if delay > s.MaxReconnectDelay {
			delay = s.MaxReconnectDelay
		}
	}
}

// read delivers events from conn until it fails or ctx is done.
func (s *Subscriber) read(ctx context.Context, conn *websocket.Conn, out chan<- Event) error {
	defer func() { _ = conn.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	conn.SetReadLimit(MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(PongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(WriteWait))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		logging.LogWebSocketMessage(s.URL, "received", mt, data)

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logging.Warn("Ignoring malformed event", zap.Error(err))
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Subscriber) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	if s.Token != "" {
		header.Set("Authorization", "Bearer "+s.Token)
	}

	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, s.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			apiErr := backend.NewAuthError(resp.StatusCode, "")
			apiErr.Endpoint = s.URL
			return nil, apiErr
		}
		if resp != nil {
			apiErr := backend.NewHTTPError(resp.StatusCode, "")
			apiErr.Endpoint = s.URL
			return nil, apiErr
		}
		return nil, backend.ClassifyNetworkError(err, s.URL)
	}

	logging.LogConnection(s.URL, "events_connected")
	return conn, nil
}
