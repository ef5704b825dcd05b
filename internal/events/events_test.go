package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/useradmin/internal/backend"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"http", "http://localhost:8000", "ws://localhost:8000/api/v1/events", false},
		{"https with path", "https://api.example.com/admin/", "wss://api.example.com/admin/api/v1/events", false},
		{"query dropped", "http://h:1?x=1", "ws://h:1/api/v1/events", false},
		{"ws passthrough", "ws://h:1", "ws://h:1/api/v1/events", false},
		{"ftp", "ftp://h", "", true},
		{"no host", "http://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := URL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("URL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("URL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEventString(t *testing.T) {
	e := Event{Type: TypeUserCreated, UserID: "u1", Name: "Ada"}
	if got := e.String(); got != "user.created Ada (u1)" {
		t.Errorf("String() = %q", got)
	}
	e.Name = ""
	if got := e.String(); got != "user.created u1" {
		t.Errorf("String() = %q", got)
	}
}

// eventServer upgrades every request on Path and writes frames to it.
func eventServer(t *testing.T, token string, frames ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != Path {
			http.NotFound(w, r)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestSubscribe_ReceivesEvents(t *testing.T) {
	srv := eventServer(t, "secret",
		`{"type":"user.created","userId":"u1","name":"Ada"}`,
		`not json`,
		`{"type":"user.updated","userId":"u2"}`,
	)

	sub, err := NewSubscriber(srv.URL, "secret")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := sub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	first := receive(t, ch)
	if first.Type != TypeUserCreated || first.UserID != "u1" || first.Name != "Ada" {
		t.Errorf("first = %+v", first)
	}
	// The malformed frame is skipped.
	second := receive(t, ch)
	if second.Type != TypeUserUpdated || second.UserID != "u2" {
		t.Errorf("second = %+v", second)
	}
}

func TestSubscribe_ClosesOnCancel(t *testing.T) {
	srv := eventServer(t, "")
	sub, err := NewSubscriber(srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := sub.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSubscribe_AuthFailure(t *testing.T) {
	srv := eventServer(t, "secret")
	sub, err := NewSubscriber(srv.URL, "wrong")
	if err != nil {
		t.Fatal(err)
	}

	_, err = sub.Subscribe(context.Background())
	if !backend.IsAuthError(err) {
		t.Fatalf("Subscribe() error = %v, want auth error", err)
	}
	if got := backend.StatusCode(err); got != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", got)
	}
}

func TestSubscribe_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	sub, err := NewSubscriber(srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	_, err = sub.Subscribe(context.Background())
	if backend.StatusCode(err) != http.StatusNotFound {
		t.Errorf("Subscribe() error = %v, want 404", err)
	}
}

func TestSubscribe_ReconnectsAfterDrop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if n.Add(1) == 1 {
			// Drop the first connection straight away.
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"user.updated","userId":"after"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	sub, err := NewSubscriber(srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	sub.ReconnectDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := sub.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if ev := receive(t, ch); ev.UserID != "after" {
		t.Errorf("event = %+v", ev)
	}
}
