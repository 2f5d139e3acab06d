package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	// CurrentVersion is the configuration file format version.
	CurrentVersion = 1

	// DefaultAuthority is the Microsoft identity platform host.
	DefaultAuthority = "https://login.microsoftonline.com"

	// DefaultScope requests the application permissions granted to the client.
	DefaultScope = "https://graph.microsoft.com/.default"

	// DefaultListName is the SharePoint list receiving the submissions.
	DefaultListName = "Atendimento - DP"

	// DefaultTimeout bounds each HTTP call to the identity platform and SharePoint.
	DefaultTimeout = 30 * time.Second

	// DefaultAddr is the form server listen address.
	DefaultAddr = ":8080"

	// DefaultServiceName is the mDNS instance name announced by the form server.
	DefaultServiceName = "Atendimento DP"
)

// Config represents the entire configuration file.
type Config struct {
	Version    int        `yaml:"version"`
	SharePoint SharePoint `yaml:"sharepoint"`
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
}

// SharePoint holds the credentials and target list for submissions.
type SharePoint struct {
	TenantID     string        `yaml:"tenant_id"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret,omitempty"`
	Authority    string        `yaml:"authority,omitempty"` // identity platform base URL
	Scope        string        `yaml:"scope,omitempty"`
	SiteURL      string        `yaml:"site_url"`  // e.g. https://contoso.sharepoint.com/sites/Atendimentos-DP
	ListName     string        `yaml:"list_name"` // list title used with getbytitle()
	Timeout      time.Duration `yaml:"timeout,omitempty"`
}

// Server holds the form server settings.
type Server struct {
	Addr        string `yaml:"addr"`
	Advertise   bool   `yaml:"advertise"`              // announce the form over mDNS
	ServiceName string `yaml:"service_name,omitempty"` // mDNS instance name
}

// Log holds logging settings.
type Log struct {
	Level string `yaml:"level,omitempty"`
}

// Default returns a configuration with every optional value filled in.
// Credentials and the site URL are left empty.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		SharePoint: SharePoint{
			Authority: DefaultAuthority,
			Scope:     DefaultScope,
			ListName:  DefaultListName,
			Timeout:   DefaultTimeout,
		},
		Server: Server{
			Addr:        DefaultAddr,
			ServiceName: DefaultServiceName,
		},
	}
}

// applyDefaults fills zero values left by a partial file.
func (c *Config) applyDefaults() {
	d := Default()
	if c.SharePoint.Authority == "" {
		c.SharePoint.Authority = d.SharePoint.Authority
	}
	if c.SharePoint.Scope == "" {
		c.SharePoint.Scope = d.SharePoint.Scope
	}
	if c.SharePoint.ListName == "" {
		c.SharePoint.ListName = d.SharePoint.ListName
	}
	if c.SharePoint.Timeout <= 0 {
		c.SharePoint.Timeout = d.SharePoint.Timeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.ServiceName == "" {
		c.Server.ServiceName = d.Server.ServiceName
	}
}

// Validate reports every missing setting needed to submit feedback.
func (s SharePoint) Validate() error {
	var missing []string
	if s.TenantID == "" {
		missing = append(missing, "tenant_id")
	}
	if s.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if s.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if s.SiteURL == "" {
		missing = append(missing, "site_url")
	}
	if s.ListName == "" {
		missing = append(missing, "list_name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("sharepoint configuration incomplete, missing: %s", strings.Join(missing, ", "))
	}
	if !strings.HasPrefix(s.SiteURL, "https://") && !strings.HasPrefix(s.SiteURL, "http://") {
		return fmt.Errorf("sharepoint site_url must be an http(s) URL, got %q", s.SiteURL)
	}
	return nil
}
