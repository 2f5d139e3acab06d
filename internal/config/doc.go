// Package config loads and saves the atendimento-dp configuration file.
//
// The configuration holds the SharePoint connection (tenant, client id and
// secret, site URL, list name) and the form server settings. It is injected
// into the SharePoint client at construction; nothing is hardcoded.
//
// # Configuration File Location
//
// The file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/atendimento-dp/config.yaml or $HOME/.config/atendimento-dp/config.yaml
//   - macOS: $HOME/.config/atendimento-dp/config.yaml
//   - Windows: %LOCALAPPDATA%\atendimento-dp\config.yaml
//
// ATENDIMENTO_CONFIG points to a different file.
//
// # Environment Overrides
//
// Every SharePoint setting can be overridden from the environment, which is
// the recommended way to provide the client secret in containers:
//
//	ATENDIMENTO_TENANT_ID
//	ATENDIMENTO_CLIENT_ID
//	ATENDIMENTO_CLIENT_SECRET
//	ATENDIMENTO_SITE_URL
//	ATENDIMENTO_LIST_NAME
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.SharePoint.Validate(); err != nil {
//	    return err
//	}
//	client := sharepoint.NewClient(cfg.SharePoint)
//
// # Security
//
// Save writes the file with 0600 permissions through an atomic rename. The
// client secret is never printed; use logging.MaskSecret for display.
package config
