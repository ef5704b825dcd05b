package devserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/discovery"
	"github.com/muurk/useradmin/internal/events"
	"github.com/muurk/useradmin/internal/logging"
)

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	Token    string // Bearer token required on API routes (empty = open)
	CertPath string // TLS certificate (optional; plain HTTP when empty)
	KeyPath  string // TLS private key
	LogLevel string

	// Advertise registers the server over mDNS as Instance.
	Advertise bool
	Instance  string

	// CORSOrigins are the browser origins allowed to call the API.
	CORSOrigins []string

	// Seed adds demo companies and roles.
	Seed bool
}

// Server is the in-memory development backend.
type Server struct {
	config     *Config
	store      *Store
	hub        *Hub
	handler    http.Handler
	httpServer *http.Server
	listener   net.Listener
	tlsConfig  *tls.Config
	advert     *discovery.Advertisement
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	store := NewStore()
	if config.Seed {
		store.Seed()
	}

	s := &Server{
		config:    config,
		store:     store,
		hub:       NewHub(),
		tlsConfig: tlsConfig,
	}
	s.handler = s.buildRouter()
	return s, nil
}

// Store returns the server's document store.
func (s *Server) Store() *Store { return s.store }

// Hub returns the server's event hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP handler serving the whole backend.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logRequests)
	if len(s.config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", backend.FolderTypeHeader},
			MaxAge:         300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path))
	})

	// Images are public, like the static folder of the real backend
	r.Get("/images/{category}/{file}", s.handleImage)

	r.Route(backend.APIPrefix, func(r chi.Router) {
		r.Use(requireToken(s.config.Token))
		s.routes(r)
	})
	r.With(requireToken(s.config.Token)).Get(events.Path, s.hub.ServeHTTP)

	return r
}

// Addr returns the listening address once the server is started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Listen binds the listening socket and advertises the server when
// configured. Serve must be called afterwards.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Server listening for connections",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.Bool("auth", s.config.Token != ""),
	)

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		advert, err := discovery.Advertise(s.config.Instance, port, s.tlsConfig != nil)
		if err != nil {
			// Discovery is a convenience; the server works without it
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.advert = advert
		}
	}
	return nil
}

// Serve handles requests until the server is shut down.
func (s *Server) Serve() error {
	if s.httpServer == nil {
		return errors.New("server is not listening")
	}
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	logging.Info("Starting user admin development server",
		zap.String("host", s.config.Host),
		zap.Int("port", s.config.Port),
		zap.String("log_level", s.config.LogLevel),
	)
	if s.tlsConfig != nil {
		logging.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
	}

	if err := s.Listen(); err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if s.advert != nil {
		s.advert.Shutdown()
		s.advert = nil
	}

	// Hijacked event connections are not tracked by http.Server
	s.hub.Close()

	var err error
	if s.httpServer != nil {
		if err = s.httpServer.Shutdown(ctx); err != nil {
			logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
			_ = s.httpServer.Close()
		} else {
			logging.Info("All connections closed gracefully")
		}
	}

	logging.Sync()
	return err
}
