package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Backend represents a user administration backend discovered on the network
type Backend struct {
	// Instance is the advertised instance name (e.g., "useradmin-devserver")
	Instance string

	// Hostname is the mDNS hostname (e.g., "laptop.local.")
	Hostname string

	// IP is the address to connect to, IPv4 when available
	IP string

	// Port is the HTTP port
	Port int

	// TLS reports whether the backend serves HTTPS
	TLS bool

	// Metadata contains the mDNS TXT record data
	// Common fields: "version=0.3.0", "api=/api/v1", "tls=1"
	Metadata map[string]string

	// DiscoveredAt is when the backend was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the backend
func (b *Backend) String() string {
	return fmt.Sprintf("%s (%s) at %s", b.Instance, b.Hostname, b.BaseURL())
}

// BaseURL returns the origin to configure as a profile's base URL
func (b *Backend) BaseURL() string {
	scheme := "http"
	if b.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(b.IP, strconv.Itoa(b.Port)))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Backend) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
