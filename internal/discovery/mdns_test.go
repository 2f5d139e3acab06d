package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func formEntry(instance, host string, port int, ipv4, ipv6 []net.IP, text ...string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	entry.HostName = host
	entry.Port = port
	entry.AddrIPv4 = ipv4
	entry.AddrIPv6 = ipv6
	entry.Text = text
	return entry
}

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()
	app := TXTApp + "=" + AppName

	tests := []struct {
		name         string
		entry        *zeroconf.ServiceEntry
		wantNil      bool
		wantInstance string
		wantIP       string
		wantPort     int
	}{
		{
			name:         "form server with IPv4",
			entry:        formEntry(`Atendimento\ DP`, "kiosk.local.", 8080, []net.IP{net.ParseIP("192.168.4.16")}, nil, app, "path=/"),
			wantInstance: "Atendimento DP",
			wantIP:       "192.168.4.16",
			wantPort:     8080,
		},
		{
			name:         "no port specified (should default to 80)",
			entry:        formEntry("DP", "kiosk.local.", 0, []net.IP{net.ParseIP("172.16.0.1")}, nil, app),
			wantInstance: "DP",
			wantIP:       "172.16.0.1",
			wantPort:     80,
		},
		{
			name:    "other _http._tcp service",
			entry:   formEntry("printer", "printer.local.", 80, []net.IP{net.ParseIP("192.168.1.1")}, nil, "path=/"),
			wantNil: true,
		},
		{
			name:    "different app",
			entry:   formEntry("x", "x.local.", 80, []net.IP{net.ParseIP("192.168.1.1")}, nil, "app=other"),
			wantNil: true,
		},
		{
			name:    "no IP address",
			entry:   formEntry("DP", "kiosk.local.", 8080, nil, nil, app),
			wantNil: true,
		},
		{
			name:         "IPv6 only",
			entry:        formEntry("DP", "kiosk.local.", 8080, nil, []net.IP{net.ParseIP("fe80::1")}, app),
			wantInstance: "DP",
			wantIP:       "fe80::1",
			wantPort:     8080,
		},
		{
			name:         "both IPv4 and IPv6 (should prefer IPv4)",
			entry:        formEntry("DP", "kiosk.local.", 8080, []net.IP{net.ParseIP("192.168.1.50")}, []net.IP{net.ParseIP("fe80::2")}, app),
			wantInstance: "DP",
			wantIP:       "192.168.1.50",
			wantPort:     8080,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if server != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", server)
				}
				return
			}

			if server == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil server")
			}
			if server.Instance != tt.wantInstance {
				t.Errorf("server.Instance = %v, want %v", server.Instance, tt.wantInstance)
			}
			if server.IP != tt.wantIP {
				t.Errorf("server.IP = %v, want %v", server.IP, tt.wantIP)
			}
			if server.Port != tt.wantPort {
				t.Errorf("server.Port = %v, want %v", server.Port, tt.wantPort)
			}
			if time.Since(server.DiscoveredAt) > time.Second {
				t.Errorf("server.DiscoveredAt is not recent: %v", server.DiscoveredAt)
			}
		})
	}
}

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{"app=atendimento-dp", "path=/", "flag", "version=1.0=rc"})

	want := map[string]string{
		"app":     "atendimento-dp",
		"path":    "/",
		"flag":    "",
		"version": "1.0=rc",
	}
	if len(got) != len(want) {
		t.Errorf("parseTXT() has %d entries, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("parseTXT()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestAdvertiseTXT(t *testing.T) {
	txt := AdvertiseTXT("1.2.0")
	meta := parseTXT(txt)

	if meta[TXTApp] != AppName {
		t.Errorf("app = %q, want %q", meta[TXTApp], AppName)
	}
	if meta[TXTVersion] != "1.2.0" {
		t.Errorf("version = %q, want 1.2.0", meta[TXTVersion])
	}

	if _, ok := parseTXT(AdvertiseTXT(""))[TXTVersion]; ok {
		t.Error("empty version should not be advertised")
	}
}

func TestAdvertise_InvalidPort(t *testing.T) {
	if _, err := Advertise("DP", 0, ""); err == nil {
		t.Error("Advertise() should reject port 0")
	}
}

func TestAdvertisement_ShutdownNil(t *testing.T) {
	var a *Advertisement
	a.Shutdown()
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

// Live mDNS discovery needs multicast on the host network and is not
// exercised here.
