package discovery

import "testing"

func TestFormServer_String(t *testing.T) {
	server := &FormServer{
		Instance: "Atendimento DP",
		Hostname: "kiosk.local.",
		IP:       "192.168.4.16",
		Port:     8080,
	}

	expected := "Atendimento DP (kiosk.local.) at http://192.168.4.16:8080/"
	if server.String() != expected {
		t.Errorf("FormServer.String() = %v, want %v", server.String(), expected)
	}
}

func TestFormServer_URL(t *testing.T) {
	tests := []struct {
		name     string
		server   *FormServer
		expected string
	}{
		{
			name:     "IPv4",
			server:   &FormServer{IP: "10.0.0.5", Port: 8080},
			expected: "http://10.0.0.5:8080/",
		},
		{
			name:     "IPv6 is bracketed",
			server:   &FormServer{IP: "fe80::1", Port: 80},
			expected: "http://[fe80::1]:80/",
		},
		{
			name:     "advertised path",
			server:   &FormServer{IP: "10.0.0.5", Port: 80, Metadata: map[string]string{"path": "/dp/"}},
			expected: "http://10.0.0.5:80/dp/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.server.URL(); got != tt.expected {
				t.Errorf("FormServer.URL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFormServer_GetMetadata(t *testing.T) {
	server := &FormServer{Metadata: map[string]string{"version": "1.0.0"}}

	if server.Version() != "1.0.0" {
		t.Errorf("Version() = %q, want 1.0.0", server.Version())
	}
	if server.GetMetadata("missing") != "" {
		t.Error("GetMetadata(missing) should be empty")
	}

	empty := &FormServer{}
	if empty.GetMetadata("version") != "" {
		t.Error("GetMetadata on nil metadata should be empty")
	}
}
