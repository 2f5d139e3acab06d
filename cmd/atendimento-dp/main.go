// Atendimento-dp collects "Atendimento - DP" feedback and stores each entry
// as an item of a SharePoint list.
//
// The same form is offered three ways: a web page served by 'serve', a
// full-screen terminal form (the default command) and the one-shot
// 'submit' command for scripts.
//
// Usage:
//
//	atendimento-dp [command] [flags]
//
// See 'atendimento-dp --help' for available commands.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/atendimento-dp/feedbackform/internal/config"
	"github.com/atendimento-dp/feedbackform/internal/logging"
	"github.com/atendimento-dp/feedbackform/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

// activeLogLevel is the level chosen by initLogging from the flag or the
// config file. Empty defers to ATENDIMENTO_LOG_LEVEL.
var activeLogLevel string

// logFileName receives log lines while a full-screen program owns the terminal
const logFileName = "atendimento-dp.log"

var rootCmd = &cobra.Command{
	Use:   "atendimento-dp",
	Short: "Atendimento - DP feedback form",
	Long: `Collects feedback for the DP service desk and stores every entry in a
SharePoint list, authenticating with application credentials.

If no command is specified, the terminal form will launch automatically.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
	RunE:              runForm,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: $"+config.PathEnvVar+" or the per-user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")

	rootCmd.AddCommand(versionCmd)
}

// initLogging picks the level from --log-level, then the config file, then
// ATENDIMENTO_LOG_LEVEL. Logging stays silent when none is set.
func initLogging(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" {
		if cfg, err := config.Load(configPath); err == nil {
			level = cfg.Log.Level
		}
	}
	activeLogLevel = level
	return logging.Initialize(level)
}

// logToFile moves logging from stderr to a file in dir before a bubbletea
// program takes over the screen. It returns the file path, or "" when
// logging is silent and nothing changes.
func logToFile(dir string) (string, error) {
	level := activeLogLevel
	if level == "" {
		level = os.Getenv(logging.LogLevelEnvVar)
	}
	if level == "" {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, logFileName)
	if err := logging.InitializeToFile(level, path); err != nil {
		return "", err
	}
	return path, nil
}

// logOffScreen is logToFile on the per-user config directory
func logOffScreen() error {
	dir, err := config.GetConfigDir()
	if err != nil {
		return err
	}
	_, err = logToFile(dir)
	return err
}

// loadConfig loads the configuration named by --config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("atendimento-dp %s (commit: %s)\n", version.Version, version.Commit)
	},
}
