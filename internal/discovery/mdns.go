package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/atendimento-dp/feedbackform/internal/logging"
)

const (
	// ServiceType is the mDNS service type form servers advertise
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for server discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is used when an entry carries no port
	DefaultPort = 80

	// AppName is the TXT "app" value identifying form servers among
	// other _http._tcp services
	AppName = "atendimento-dp"
)

// TXT record keys
const (
	TXTApp     = "app"
	TXTPath    = "path"
	TXTVersion = "version"
)

// Scanner handles mDNS form server discovery
type Scanner struct {
	// Timeout is the maximum time to wait for server discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForServers discovers all form servers on the local network until the
// scanner timeout or ctx expires.
func (s *Scanner) ScanForServers(ctx context.Context) ([]*FormServer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		servers []*FormServer
		seen    = make(map[string]bool)
	)

	err := s.browse(ctx, func(server *FormServer) bool {
		mu.Lock()
		defer mu.Unlock()
		key := fmt.Sprintf("%s|%s|%d", server.Instance, server.IP, server.Port)
		if !seen[key] {
			seen[key] = true
			servers = append(servers, server)
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return servers, nil
}

// WaitForServer waits for the form server advertised under instance.
// Returns an error if it is not found within the scanner timeout.
func (s *Scanner) WaitForServer(ctx context.Context, instance string) (*FormServer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	found := make(chan *FormServer, 1)
	err := s.browse(ctx, func(server *FormServer) bool {
		if !strings.EqualFold(server.Instance, instance) {
			return false
		}
		select {
		case found <- server:
		default:
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	select {
	case server := <-found:
		return server, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("form server %q not found within timeout", instance)
	}
}

// browse feeds every form server entry to fn until ctx is done or fn
// returns true.
func (s *Scanner) browse(ctx context.Context, fn func(*FormServer) bool) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				server := s.parseServiceEntry(entry)
				if server == nil {
					continue
				}
				logging.Debug("Form server discovered",
					zap.String("instance", server.Instance),
					zap.String("url", server.URL()),
				)
				if fn(server) {
					return
				}
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a FormServer.
// Returns nil if the entry is not an atendimento-dp form server.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *FormServer {
	if entry == nil {
		return nil
	}

	metadata := parseTXT(entry.Text)
	if metadata[TXTApp] != AppName {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &FormServer{
		Instance:     unescapeInstance(entry.Instance),
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// parseTXT splits "key=value" TXT records. A key without value maps to "".
func parseTXT(text []string) map[string]string {
	metadata := make(map[string]string, len(text))
	for _, txt := range text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

// unescapeInstance removes the DNS escaping zeroconf leaves in instance
// names ("Atendimento\ DP" -> "Atendimento DP").
func unescapeInstance(instance string) string {
	return strings.ReplaceAll(instance, `\ `, " ")
}

// ScanForServers is a convenience function to scan with a custom timeout
func ScanForServers(timeout time.Duration) ([]*FormServer, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForServers(context.Background())
}
