package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/logging"
	"github.com/muurk/useradmin/internal/version"
)

const (
	// ServiceType is the mDNS service type user admin backends advertise
	ServiceType = "_useradmin._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for backend discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort applies when an entry carries no port
	DefaultPort = 8000

	// DefaultInstance is the instance name used when none is given
	DefaultInstance = "useradmin"
)

// ErrNotFound is returned by WaitForBackend when the instance did not
// answer before the timeout.
var ErrNotFound = errors.New("backend not found")

// Scanner handles mDNS backend discovery
type Scanner struct {
	// Timeout is the maximum time to wait for backend discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan browses for backends until the timeout or ctx ends and returns
// everything found, one entry per instance.
func (s *Scanner) Scan(ctx context.Context) ([]*Backend, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		mu       sync.Mutex
		backends []*Backend
		seen     = make(map[string]bool)
	)
	err := s.browse(ctx, func(b *Backend) bool {
		mu.Lock()
		defer mu.Unlock()
		if !seen[b.Instance] {
			seen[b.Instance] = true
			backends = append(backends, b)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return backends, nil
}

// WaitForBackend browses until the named instance answers.
func (s *Scanner) WaitForBackend(ctx context.Context, instance string) (*Backend, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	found := make(chan *Backend, 1)
	err := s.browse(ctx, func(b *Backend) bool {
		if b.Instance != instance {
			return true
		}
		found <- b
		cancel()
		return false
	})
	if err != nil {
		return nil, err
	}

	select {
	case b := <-found:
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %s within %s", ErrNotFound, instance, s.Timeout)
	}
}

// browse feeds every backend entry to visit until ctx ends or visit returns
// false. It returns once all entries have been handled.
func (s *Scanner) browse(ctx context.Context, visit func(*Backend) bool) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	go func() {
		defer close(done)
		active := true
		// Keep draining after visit stops so the resolver never blocks
		for entry := range entries {
			if !active {
				continue
			}
			if b := s.parseServiceEntry(entry); b != nil {
				logging.Debug("Backend discovered", zap.String("backend", b.String()))
				active = visit(b)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// The resolver closes entries once ctx is done
	<-ctx.Done()
	select {
	case <-done:
	case <-time.After(time.Second):
		logging.Debug("mDNS resolver did not close its entry channel")
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Backend
// Returns nil if the entry has no usable address
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Backend {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Backend{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		TLS:          metadata["tls"] == "1",
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Advertisement is a running mDNS registration.
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise registers a backend listening on port until Shutdown is called.
func Advertise(instance string, port int, tls bool) (*Advertisement, error) {
	if instance == "" {
		instance = DefaultInstance
	}
	txt := []string{
		"version=" + version.Version,
		"api=/api/v1",
	}
	if tls {
		txt = append(txt, "tls=1")
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the registration.
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
}

// QuickScan performs a fast scan with a 2-second timeout
func QuickScan(ctx context.Context) ([]*Backend, error) {
	scanner := NewScanner()
	scanner.Timeout = 2 * time.Second
	return scanner.Scan(ctx)
}
