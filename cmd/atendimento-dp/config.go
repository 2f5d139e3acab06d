package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/atendimento-dp/feedbackform/internal/config"
	"github.com/atendimento-dp/feedbackform/internal/logging"
	"github.com/atendimento-dp/feedbackform/internal/ui"
	"github.com/atendimento-dp/feedbackform/internal/urls"
)

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetSecretCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the SharePoint configuration",
	Long: `Manage the configuration file holding the SharePoint credentials and list.

Settings may also come from the environment: ` + strings.Join([]string{
		config.EnvTenantID, config.EnvClientID, config.EnvClientSecret,
		config.EnvSiteURL, config.EnvListName,
	}, ", ") + `.
Environment values win over the file and are never written to it.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration (secret masked)",
	RunE:  runConfigShow,
}

// Config init flags
var (
	initTenantID string
	initClientID string
	initSiteURL  string
	initListName string
	initForce    bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a new configuration file",
	Long: `Write a configuration file with the given SharePoint settings.

The client secret is not taken as a flag so it never lands in shell history;
set it afterwards with 'atendimento-dp config set-secret' or through ` + config.EnvClientSecret + `.`,
	Example: `  atendimento-dp config init \
    --tenant-id 00000000-0000-0000-0000-000000000000 \
    --client-id 11111111-1111-1111-1111-111111111111 \
    --site-url https://contoso.sharepoint.com/sites/Atendimentos-DP`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().StringVar(&initTenantID, "tenant-id", "", "Directory (tenant) ID")
	configInitCmd.Flags().StringVar(&initClientID, "client-id", "", "Application (client) ID")
	configInitCmd.Flags().StringVar(&initSiteURL, "site-url", "", "SharePoint site URL")
	configInitCmd.Flags().StringVar(&initListName, "list-name", config.DefaultListName, "SharePoint list title")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file without asking")
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret",
	Short: "Store the client secret in the configuration file",
	Long: `Read the client secret from the terminal without echo and store it in the
configuration file. When stdin is not a terminal the first line is read.`,
	RunE: runConfigSetSecret,
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	return showConfig(ui.NewPrinter(os.Stdout), path, cfg, err)
}

// errConfigNotLoaded is returned once the load failure has been printed
var errConfigNotLoaded = errors.New("configuration could not be loaded")

// showConfig prints the effective configuration, or why it could not be loaded
func showConfig(printer *ui.Printer, path string, cfg *config.Config, loadErr error) error {
	printer.PrintHeader("Configuration", "atendimento-dp config show", []ui.Detail{{Key: "File", Value: path}})

	if loadErr != nil {
		printer.PrintError("Configuration could not be loaded", loadErr.Error(), []string{
			"Recreate it with 'atendimento-dp config init --force'",
			"Or set the ATENDIMENTO_* environment variables",
		})
		return errConfigNotLoaded
	}

	details := configDetails(cfg)
	if err := cfg.SharePoint.Validate(); err != nil {
		printer.PrintWarning(err.Error(), details)
		return nil
	}
	printer.PrintSuccess("Configuration complete", details)
	return nil
}

// configDetails lists the effective settings with the secret masked
func configDetails(cfg *config.Config) []ui.Detail {
	orEmpty := func(v string) string {
		if v == "" {
			return "(not set)"
		}
		return v
	}

	secret := "(not set)"
	if cfg.SharePoint.ClientSecret != "" {
		secret = logging.MaskSecret(cfg.SharePoint.ClientSecret)
	}

	return []ui.Detail{
		{Key: "Tenant ID", Value: orEmpty(cfg.SharePoint.TenantID)},
		{Key: "Client ID", Value: orEmpty(cfg.SharePoint.ClientID)},
		{Key: "Client secret", Value: secret},
		{Key: "Authority", Value: cfg.SharePoint.Authority},
		{Key: "Scope", Value: cfg.SharePoint.Scope},
		{Key: "Site URL", Value: orEmpty(cfg.SharePoint.SiteURL)},
		{Key: "List", Value: orEmpty(cfg.SharePoint.ListName)},
		{Key: "Timeout", Value: cfg.SharePoint.Timeout.String()},
		{Key: "Listen address", Value: cfg.Server.Addr},
		{Key: "mDNS advertise", Value: fmt.Sprintf("%t (%s)", cfg.Server.Advertise, cfg.Server.ServiceName)},
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		if !ui.ConfirmOverwrite(os.Stdin, os.Stdout, path) {
			return nil
		}
	}

	cfg := config.Default()
	cfg.SharePoint.TenantID = initTenantID
	cfg.SharePoint.ClientID = initClientID
	cfg.SharePoint.SiteURL = strings.TrimRight(initSiteURL, "/")
	cfg.SharePoint.ListName = initListName

	if err := cfg.Save(path); err != nil {
		return err
	}

	logging.Info("Configuration written", zap.String("path", path))
	ui.NewPrinter(os.Stdout).PrintSuccess("Configuration written", []ui.Detail{
		{Key: "File", Value: path},
		{Key: "Next", Value: "atendimento-dp config set-secret"},
		{Key: "Setup guide", Value: urls.AppRegistration},
	})
	return nil
}

func runConfigSetSecret(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	// The file alone, so environment overrides are not persisted
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	secret, err := readSecret("Client secret: ")
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == "" {
		return fmt.Errorf("empty secret, configuration unchanged")
	}

	cfg.SharePoint.ClientSecret = secret
	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Printf("Client secret stored in %s (%s)\n", path, logging.MaskSecret(secret))
	return nil
}

// readSecret prompts on a terminal without echo, or reads one line from a pipe
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
