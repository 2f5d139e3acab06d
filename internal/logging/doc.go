// Package logging provides structured logging for atendimento-dp.
//
// This package wraps a global zap logger with convenience functions used by
// the form server, the terminal form and the SharePoint client.
//
// # Log Levels
//
//   - Debug: WebSocket payloads, request bodies sizes, token expiry
//   - Info: submissions, server lifecycle, HTTP requests
//   - Warn: recoverable problems (mDNS announcement failed, bad session message)
//   - Error: failed submissions with their diagnostic detail
//
// # Silent by Default
//
// Logging is disabled unless a level is passed to Initialize or set in
// ATENDIMENTO_LOG_LEVEL. The terminal form relies on this so log output does
// not corrupt the bubbletea screen.
//
//	if err := logging.Initialize("info"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Secrets
//
// Client secrets and bearer tokens are never logged in clear. Use MaskSecret
// when a credential has to appear in a diagnostic line.
package logging
