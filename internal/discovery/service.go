package discovery

import (
	"fmt"
	"strings"
	"time"
)

// FormServer represents an atendimento-dp form server found on the network
type FormServer struct {
	// Instance is the advertised service name (e.g., "Atendimento DP")
	Instance string

	// Hostname is the mDNS hostname (e.g., "rh-kiosk.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when the server has no IPv4
	IP string

	// Port is the HTTP port of the form server
	Port int

	// Metadata contains the TXT record data
	// Common fields: "app=atendimento-dp", "path=/", "version=1.2.0"
	Metadata map[string]string

	// DiscoveredAt is when the server was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the server
func (s *FormServer) String() string {
	return fmt.Sprintf("%s (%s) at %s", s.Instance, s.Hostname, s.URL())
}

// URL returns the address of the form page
func (s *FormServer) URL() string {
	host := s.IP
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	path := s.GetMetadata(TXTPath)
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("http://%s:%d%s", host, s.Port, path)
}

// Version returns the advertised application version, if any
func (s *FormServer) Version() string {
	return s.GetMetadata(TXTVersion)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *FormServer) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}

