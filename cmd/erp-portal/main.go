package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/al-bashkir/erp-portal/internal/app"
	"github.com/al-bashkir/erp-portal/internal/cli"
	"github.com/al-bashkir/erp-portal/internal/config"
	"github.com/al-bashkir/erp-portal/internal/settings"
	"github.com/al-bashkir/erp-portal/internal/workspace"
)

// Version information (set via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const defaultConfigFile = "/etc/erp-portal/config.yaml"

// Global flags
var (
	configFile string
	logLevel   string
	logFormat  string
	colorFlag  string
	quiet      bool
)

// Command flags
var (
	loginUsername string
)

// Terminal streams, replaced in tests.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// overrideExitCode is set by check-config so main() can exit with a
// specific code after cobra finishes. -1 means "use default".
var overrideExitCode = -1

var rootCmd = &cobra.Command{
	Use:   "erp-portal",
	Short: "ERP portal sign-in and dashboard shell",
	Long: `Front end for the ERP identity and configuration service.

The binary serves the web dashboard shell and offers the same sign-in
flow from the terminal:
  - serve:    run the web shell (login, dashboard, module pages)
  - login:    sign in, answering the security phrase and image check
  - settings: inspect and change the feature flags that drive the sidebar`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard shell",
	Long: `Start the HTTP server that hosts the login pages and the dashboard.

Each browser gets its own workspace (session, settings cache and login
flow), kept in the configured storage backend.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in from the terminal",
	Long: `Sign in interactively.

After the username is entered the security phrase and candidate images
are shown; pick your registered image, then enter the password. If the
security check is unavailable you may retry it or continue with the
password alone. The password is read from the terminal without echo, or
from stdin when it is piped.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear cached settings",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and the modules they can open",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <username> <email>",
	Short: "Request a password reset",
	Args:  cobra.ExactArgs(2),
	RunE:  runResetPassword,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change feature-flag settings",
	Long: `Feature flags are the literal strings "true" and "false". They are
cached for the session and decide which modules appear in the sidebar.`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <true|false>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Drop cached settings and reload them",
	Args:  cobra.NoArgs,
	RunE:  runSettingsRefresh,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Ask the service to validate the current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display version, commit hash, and build date.`,
	Run:   runVersion,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate configuration file",
	Long: `Load and validate the configuration file and print it with secrets
redacted.

Exit codes:
  0 = Configuration is valid
  3 = Configuration error`,
	RunE: runCheckConfig,
}

func init() {
	// Global flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", defaultConfigFile,
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error) - overrides config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Log format (json, text) - overrides config file")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto",
		"Colour output (auto, always, never)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Only print errors and requested values")

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username or email")

	settingsCmd.AddCommand(settingsListCmd, settingsGetCmd, settingsSetCmd,
		settingsRefreshCmd, settingsValidateCmd)

	rootCmd.AddCommand(serveCmd, loginCmd, logoutCmd, whoamiCmd, resetPasswordCmd,
		settingsCmd, versionCmd, checkConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		newPrinter().FormatError(err)
		os.Exit(cli.ExitCode(err))
	}

	if overrideExitCode >= 0 {
		os.Exit(overrideExitCode)
	}
}

func newPrinter() *cli.Printer {
	mode, err := cli.ParseColorMode(colorFlag)
	if err != nil {
		mode = cli.ColorAuto
	}
	return cli.NewPrinter(cli.PrinterOptions{ColorMode: mode, Quiet: quiet, Out: stdout, Err: stderr})
}

// loadConfig reads the config file. A missing file at the default path
// is not an error: defaults and ERP_PORTAL_* variables are used instead.
// Terminal commands log at warn unless --log-level says otherwise.
func loadConfig(terminal bool) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if _, statErr := os.Stat(configFile); errors.Is(statErr, fs.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
		cfg, err = config.FromEnv()
	} else {
		cfg, err = config.Load(configFile)
	}
	if err != nil {
		return nil, &cli.CLIError{
			Summary:    "failed to load configuration",
			Detail:     err.Error(),
			Suggestion: "run 'erp-portal check-config --config <path>'",
			ExitCode:   cli.ExitConfig,
		}
	}

	if terminal {
		cfg.Log.Level = "warn"
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	config.SetupLogging(&cfg.Log)
	return cfg, nil
}

// withWorkspace runs fn with the terminal user's workspace.
func withWorkspace(ctx context.Context, fn func(*workspace.Workspace, *cli.Printer) error) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	ws, closeStore, err := app.OpenWorkspace(ctx, cfg)
	if err != nil {
		return &cli.CLIError{Summary: "failed to open storage", Detail: err.Error(), ExitCode: cli.ExitConfig}
	}
	defer func() { _ = closeStore() }()

	return fn(ws, newPrinter())
}

// withSession is withWorkspace for commands that need a signed-in user.
func withSession(ctx context.Context, fn func(*workspace.Workspace, *cli.Printer) error) error {
	return withWorkspace(ctx, func(ws *workspace.Workspace, p *cli.Printer) error {
		if !ws.Session.IsAuthenticated() {
			return cli.ErrNotSignedIn
		}
		return fn(ws, p)
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// runServe starts the web shell
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create portal: %w", err)
	}
	return a.Run(commandContext(cmd))
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	return withWorkspace(ctx, func(ws *workspace.Workspace, p *cli.Printer) error {
		in := cli.NewPrompter(stdin, p.Out())
		_, err := cli.Login(ctx, p, in, ws, cli.LoginOptions{Username: loginUsername})
		return err
	})
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	return withWorkspace(ctx, func(ws *workspace.Workspace, p *cli.Printer) error {
		if !ws.Teardown(ctx) {
			p.Info("Not signed in")
			return nil
		}
		p.Success("Signed out")
		return nil
	})
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	return withSession(ctx, func(ws *workspace.Workspace, p *cli.Printer) error {
		pr, _ := ws.Session.Principal()
		if p.IsQuiet() {
			p.Value(pr.Name())
			return nil
		}
		if err := cli.RenderPrincipal(p.Out(), pr); err != nil {
			return err
		}
		p.Header("Modules")
		return cli.RenderNavigation(p.Out(), ws.Navigation(ctx))
	})
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	return withWorkspace(ctx, func(ws *workspace.Workspace, p *cli.Printer) error {
		ok := ws.Auth.ResetPassword(ctx, args[0], args[1])
		v := ws.Auth.View()
		if !ok {
			return &cli.CLIError{Summary: v.Error, ExitCode: cli.ExitUpstream}
		}
		p.Success("%s", v.Notice)
		return nil
	})
}

func settingsError(summary string, err error) error {
	ce := &cli.CLIError{Summary: summary, ExitCode: cli.ExitUpstream}
	if err != nil {
		ce.Detail = err.Error()
	}
	if errors.Is(err, settings.ErrConfigFetch) {
		ce.Suggestion = "check identity.base_url and that your session is still valid"
	}
	return ce
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	return withSession(ctx, func(ws *workspace.Workspace, p *cli.Printer) error {
		s, err := ws.Settings.GetAll(ctx)
		if err != nil {
			return settingsError("could not load settings", err)
		}
		return cli.RenderSettings(p.Out(), s)
	})
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	return withSession(ctx, func(ws *workspace.Workspace, p *cli.Printer) error {
		v, ok, err := ws.Settings.Get(ctx, args[0])
		if err != nil {
			return settingsError("could not load settings", err)
		}
		if !ok {
			return &cli.CLIError{Summary: fmt.Sprintf("setting %q not found", args[0]), ExitCode: cli.ExitError}
		}
		p.Value(v)
		return nil
	})
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	flag, ok := settings.ParseFlag(raw)
	if !ok {
		return &cli.CLIError{
			Summary:  fmt.Sprintf("invalid value %q", raw),
			Detail:   `settings are the literal strings "true" or "false"`,
			ExitCode: cli.ExitError,
		}
	}

	ctx := commandContext(cmd)
	return withSession(ctx, func(ws *workspace.Workspace, p *cli.Printer) error {
		if !ws.Settings.Set(ctx, key, string(flag)) {
			return settingsError(fmt.Sprintf("could not update %q", key), nil)
		}
		p.Success("%s = %s", key, flag)
		return nil
	})
}

func runSettingsRefresh(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	return withSession(ctx, func(ws *workspace.Workspace, p *cli.Printer) error {
		s, err := ws.Settings.Refresh(ctx)
		if err != nil {
			return settingsError("could not reload settings", err)
		}
		p.Success("Reloaded %d settings", len(s))
		return nil
	})
}

func runSettingsValidate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	return withSession(ctx, func(ws *workspace.Workspace, p *cli.Printer) error {
		if !ws.Settings.Validate(ctx) {
			return &cli.CLIError{Summary: "settings are not valid", ExitCode: cli.ExitUpstream}
		}
		p.Success("Settings are valid")
		return nil
	})
}

// runVersion displays version information
func runVersion(cmd *cobra.Command, args []string) {
	fmt.Fprintf(stdout, "erp-portal version %s\n", version)
	fmt.Fprintf(stdout, "  Commit:     %s\n", commit)
	fmt.Fprintf(stdout, "  Build date: %s\n", buildDate)
	fmt.Fprintf(stdout, "  Go version: %s\n", runtime.Version())
}

// runCheckConfig validates the configuration
func runCheckConfig(cmd *cobra.Command, args []string) error {
	p := newPrinter()
	p.Info("Checking configuration: %s", configFile)

	cfg, err := config.Load(configFile)
	if err != nil {
		p.Error("Configuration validation failed: %v", err)
		overrideExitCode = cli.ExitConfig
		return nil // exit code handled via overrideExitCode
	}

	p.Success("Configuration is valid")
	data, err := yaml.Marshal(cfg.Redact())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	p.Header("Effective configuration")
	p.Print("%s", data)
	return nil
}
