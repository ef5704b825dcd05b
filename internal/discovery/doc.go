// Package discovery finds user administration backends on the local network.
//
// Backends advertise themselves over multicast DNS (mDNS) as "_useradmin._tcp"
// services. The development server registers with Advertise; the console's
// scan command browses with a Scanner.
//
// # TXT Records
//
//   - version: server version
//   - api: REST prefix, "/api/v1"
//   - tls: "1" when the backend serves HTTPS
//
// # Usage Example
//
//	backends, err := discovery.NewScanner().Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, b := range backends {
//	    fmt.Printf("%s -> %s\n", b.Instance, b.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Backends must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
