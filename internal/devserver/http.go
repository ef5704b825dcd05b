package devserver

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/logging"
)

// writeData writes a successful response envelope.
func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, backend.Envelope[any]{
		StatusCode: status,
		Message:    backend.Message{message},
		Data:       data,
	})
}

// writeError writes a failed response envelope. Several messages are sent as
// a list, one message as a string.
func writeError(w http.ResponseWriter, status int, messages ...string) {
	writeJSON(w, status, struct {
		StatusCode int             `json:"statusCode"`
		Message    backend.Message `json:"message"`
		Error      string          `json:"error"`
	}{
		StatusCode: status,
		Message:    backend.Message(messages),
		Error:      http.StatusText(status),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn("Failed to write response", zap.Error(err))
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack hands the connection to the WebSocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// logRequests logs every request and its response status.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.RequestURI(), headerMap(r.Header))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logging.LogHTTPResponse(r.RemoteAddr, rec.status, time.Since(start))
	})
}

// requireToken rejects requests without the bearer token. An empty token
// disables the check.
func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || got != token {
				writeError(w, http.StatusUnauthorized, "Token is invalid or missing")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// headerMap flattens headers for logging, hiding the bearer token.
func headerMap(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for key, values := range h {
		if key == "Authorization" {
			headers[key] = "Bearer ***"
			continue
		}
		headers[key] = strings.Join(values, ", ")
	}
	return headers
}
