package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/atendimento-dp/feedbackform/internal/config"
	"github.com/atendimento-dp/feedbackform/internal/discovery"
	"github.com/atendimento-dp/feedbackform/internal/feedback"
	"github.com/atendimento-dp/feedbackform/internal/form"
	"github.com/atendimento-dp/feedbackform/internal/metrics"
	"github.com/atendimento-dp/feedbackform/internal/server"
	"github.com/atendimento-dp/feedbackform/internal/sharepoint"
	"github.com/atendimento-dp/feedbackform/internal/tui"
	"github.com/atendimento-dp/feedbackform/internal/ui"
	"github.com/atendimento-dp/feedbackform/internal/urls"
	"github.com/atendimento-dp/feedbackform/internal/version"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(formCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(discoverCmd)
}

// newClient builds a SharePoint client from a complete configuration
func newClient(cfg *config.Config) (*sharepoint.Client, error) {
	if err := cfg.SharePoint.Validate(); err != nil {
		return nil, fmt.Errorf("%w (run 'atendimento-dp config init')", err)
	}
	return sharepoint.NewClient(cfg.SharePoint), nil
}

// Serve command flags
var (
	serveAddr      string
	serveAdvertise bool
	serveName      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the feedback form over HTTP",
	Long: `Serve the feedback form as a web page.

Each browser tab gets its own form over a WebSocket session; browsers without
JavaScript fall back to a plain HTML POST. Prometheus metrics are exposed on
/metrics and a liveness probe on /healthz.

With --advertise the server announces itself over mDNS so kiosks on the LAN
can find it with 'atendimento-dp discover'.`,
	Example: `  # Serve on the configured address (default :8080)
  atendimento-dp serve

  # Serve on port 9000 and announce the form on the LAN
  atendimento-dp serve --addr :9000 --advertise --name "DP Recepção"`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, "+config.DefaultAddr+")")
	serveCmd.Flags().BoolVar(&serveAdvertise, "advertise", false, "Announce the form over mDNS")
	serveCmd.Flags().StringVar(&serveName, "name", "", "mDNS instance name (default from config, \""+config.DefaultServiceName+"\")")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
	if cmd.Flags().Changed("advertise") {
		cfg.Server.Advertise = serveAdvertise
	}
	if cmd.Flags().Changed("name") {
		cfg.Server.ServiceName = serveName
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	client.Metrics = metrics.Default()

	srv, err := server.New(&server.Config{
		Addr:        cfg.Server.Addr,
		Advertise:   cfg.Server.Advertise,
		ServiceName: cfg.Server.ServiceName,
		Version:     version.Version,
	}, client, metrics.Default())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	fmt.Printf("Serving the feedback form on %s\n", cfg.Server.Addr)
	return srv.Start()
}

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Fill in the feedback form in the terminal",
	Long: `Launch the full-screen terminal form.

Move between fields with tab and shift+tab, send with ctrl+s (or enter on the
button) and quit with esc. This is the default command.`,
	RunE: runForm,
}

func runForm(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	if err := logOffScreen(); err != nil {
		return err
	}
	return tui.RunForm(cmd.Context(), client)
}

// Submit command flags
var (
	submitValues  = make(map[string]*string, len(feedback.Fields))
	submitVerbose bool
)

// submitFlagNames maps record fields to their flag names
var submitFlagNames = map[string]string{
	feedback.FieldMatricula:      "matricula",
	feedback.FieldNome:           "nome",
	feedback.FieldFuncao:         "funcao",
	feedback.FieldLider:          "lider",
	feedback.FieldDuvidaProblema: "duvida",
	feedback.FieldData:           "data",
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Send one feedback entry without the interactive form",
	Long: `Validate and send one feedback entry.

Every field is required. The command exits non-zero when the entry could not
be stored; the reason is logged (see --log-level) and, with --verbose,
summarized on screen.`,
	Example: `  atendimento-dp submit --matricula 123 --nome Ana --funcao Analista \
    --lider Bruno --duvida "Dúvida sobre férias" --data 2024-05-01`,
	RunE: runSubmit,
}

func init() {
	for _, f := range feedback.Fields {
		value := new(string)
		submitValues[f.Name] = value
		submitCmd.Flags().StringVar(value, submitFlagNames[f.Name], "", f.Label)
	}
	submitCmd.Flags().BoolVarP(&submitVerbose, "verbose", "v", false, "Show why a submission failed")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	manager := form.NewManager()
	for _, f := range feedback.Fields {
		if err := manager.UpdateField(f.Name, *submitValues[f.Name]); err != nil {
			return err
		}
	}

	stepNames := make([]string, len(sharepoint.Steps))
	for i, step := range sharepoint.Steps {
		stepNames[i] = step.String()
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Enviar Feedback",
		Command: "atendimento-dp submit",
		Params: []ui.Detail{
			{Key: "Lista", Value: cfg.SharePoint.ListName},
			{Key: "Site", Value: cfg.SharePoint.SiteURL},
		},
		StepNames:    stepNames,
		SuccessTitle: tui.ThanksMessage,
		FailureTitle: "Feedback não enviado",
		FailureMessage: func(error) string {
			return manager.Snapshot().Error
		},
		Troubleshooting: func(err error) []string {
			if !submitVerbose {
				return nil
			}
			return troubleshootingFor(err)
		},
	})

	err = runner.Run(func(onStep ui.StepCallback) ([]ui.Detail, error) {
		client.OnStep = stepReporter(onStep, submitVerbose)
		if err := manager.Submit(cmd.Context(), client); err != nil {
			return nil, err
		}
		return []ui.Detail{
			{Key: "Matrícula", Value: *submitValues[feedback.FieldMatricula]},
			{Key: "Nome", Value: *submitValues[feedback.FieldNome]},
		}, nil
	})
	if err != nil {
		// The box above already told the user; keep stderr to the fixed text
		return errors.New(form.GenericErrorMessage)
	}
	return nil
}

// stepReporter adapts submission steps to runner progress lines. HTTP
// statuses are only shown when verbose.
func stepReporter(onStep ui.StepCallback, verbose bool) sharepoint.StepFunc {
	return func(step sharepoint.Step, done bool, err error) {
		n := int(step)
		switch {
		case !done:
			onStep(n, ui.StepRunning, "")
		case err != nil:
			note := ""
			if code := sharepoint.StatusCodeOf(err); verbose && code != 0 {
				note = fmt.Sprintf("HTTP %d", code)
			}
			onStep(n, ui.StepFailed, note)
		default:
			onStep(n, ui.StepComplete, "")
		}
	}
}

// troubleshootingFor returns hints for a failed submission
func troubleshootingFor(err error) []string {
	kind := sharepoint.KindOf(err)
	tips := []string{"Diagnóstico: " + kind.String()}

	switch kind {
	case sharepoint.KindValidation:
		labels := make([]string, 0)
		for _, name := range sharepoint.MissingOf(err) {
			if spec, ok := feedback.LookupField(name); ok {
				labels = append(labels, spec.Label)
			}
		}
		tips = append(tips, "Campos vazios: "+strings.Join(labels, ", "))
	case sharepoint.KindAuth:
		tips = append(tips,
			"Check tenant_id, client_id and the client secret",
			"Try: atendimento-dp config show",
			"See: "+urls.ClientCredentialsFlow,
		)
	case sharepoint.KindSubmission:
		tips = append(tips,
			"Check site_url and list_name",
			"Verify the application has write access to the list",
			"See: "+urls.SharePointListREST,
		)
	default:
		tips = append(tips, "Check network access to SharePoint")
	}

	return append(tips, "Run with --log-level debug for full details")
}

// Discover command flags
var (
	discoverTimeout int
	discoverPick    bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find feedback form servers on the local network",
	Long: `Browse mDNS for form servers started with 'atendimento-dp serve --advertise'
and print their addresses.

With --pick an interactive list opens and the chosen server's URL is printed,
ready to be opened in a kiosk browser.`,
	Example: `  # Scan for 5 seconds (default)
  atendimento-dp discover

  # Longer scan, then choose a server
  atendimento-dp discover --timeout 15 --pick`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
	discoverCmd.Flags().BoolVar(&discoverPick, "pick", false, "Choose a server interactively")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(discoverTimeout) * time.Second

	if discoverPick {
		if err := logOffScreen(); err != nil {
			return err
		}
		selected, err := tui.PickServer(scanner.ScanForServers)
		if err != nil {
			return err
		}
		if selected != nil {
			fmt.Println(selected.URL())
		}
		return nil
	}

	fmt.Printf("Scanning for feedback forms (timeout: %ds)...\n\n", discoverTimeout)

	servers, err := scanner.ScanForServers(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(servers) == 0 {
		printer := ui.NewPrinter(os.Stdout)
		printer.PrintWarning("No feedback forms found", []ui.Detail{
			{Key: "Service", Value: discovery.ServiceType},
			{Key: "Hint", Value: "start one with 'atendimento-dp serve --advertise'"},
		})
		return nil
	}

	fmt.Printf("Found %d form server(s):\n\n", len(servers))
	for i, s := range servers {
		fmt.Printf("%d. %s\n", i+1, s.Instance)
		fmt.Printf("   URL:     %s\n", s.URL())
		fmt.Printf("   Host:    %s\n", s.Hostname)
		if v := s.Version(); v != "" {
			fmt.Printf("   Version: %s\n", v)
		}
		fmt.Println()
	}

	return nil
}
