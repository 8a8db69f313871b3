package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/shotty/internal/config"
	"github.com/tonimelisma/shotty/internal/dropbox"
	"github.com/tonimelisma/shotty/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagLogFormat  string
	flagTimeout    time.Duration
	flagVerbose    bool
	flagQuiet      bool
)

// defaultHTTPTimeout bounds every metadata request to the provider.
const defaultHTTPTimeout = 30 * time.Second

// Provider endpoints. Tests point these at httptest servers.
var (
	dropboxAPIURL     = dropbox.DefaultAPIURL
	dropboxContentURL = dropbox.DefaultContentURL
)

// annotationSkipConfig marks commands that run without a valid client
// config, either because they help create one or because they never call
// the API.
const annotationSkipConfig = "shotty/skip-config"

// skipConfig marks cmd as runnable without a client config.
func skipConfig(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}

	cmd.Annotations[annotationSkipConfig] = "true"

	return cmd
}

// needsConfig reports whether cmd loads the client config. Cobra's own
// help and completion commands never do.
func needsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationSkipConfig] == "true" {
			return false
		}

		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}

	return true
}

// CLIFlags holds the parsed global flags.
type CLIFlags struct {
	ConfigPath string
	LogFormat  string
	Timeout    time.Duration
	Verbose    bool
	Quiet      bool
}

// CLIContext is built once per invocation by the root pre-run hook and
// carried on the command context.
type CLIContext struct {
	Flags   CLIFlags
	Env     config.EnvOverrides
	CfgPath string
	// Cfg is nil for commands marked with skipConfig.
	Cfg    *config.Client
	Logger *slog.Logger
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext stored by the root pre-run hook.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "shotty",
		Short:   "Dropbox shared links and screenshot uploads",
		Long:    "Create public Dropbox links for local files and file screenshots into Dropbox.",
		Version: version,
		// Errors are printed once, by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc := &CLIContext{
				Flags: CLIFlags{
					ConfigPath: flagConfigPath,
					LogFormat:  flagLogFormat,
					Timeout:    flagTimeout,
					Verbose:    flagVerbose,
					Quiet:      flagQuiet,
				},
				Env: config.ReadEnvOverrides(),
			}

			if _, err := logging.ParseFormat(cc.Flags.LogFormat); err != nil {
				return err
			}

			cc.CfgPath = cc.Env.ClientPath(cc.Flags.ConfigPath)
			cc.Logger = buildLogger(cc.Flags)

			if needsConfig(cmd) {
				if err := cc.loadConfig(); err != nil {
					return err
				}
			}

			ctx := shutdownContext(cmd.Context(), cc.Logger)
			cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", logging.FormatAuto, "log format: auto, text, or json")
	cmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", defaultHTTPTimeout, "HTTP timeout for API requests")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(skipConfig(newAuthorizeCmd()))
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(skipConfig(newConfigFileCmd()))
	cmd.AddCommand(newURLCmd())
	cmd.AddCommand(newGetURLCmd())
	cmd.AddCommand(newCreateURLCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(skipConfig(newDropboxStatusCmd()))
	cmd.AddCommand(newUsageCmd())
	cmd.AddCommand(newMvLastScreenshotCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(skipConfig(newPlistCmd()))
	cmd.AddCommand(skipConfig(newPlistFileCmd()))
	cmd.AddCommand(skipConfig(newHistoryCmd()))
	cmd.AddCommand(skipConfig(newVersionCmd()))

	return cmd
}

// loadConfig reads and validates the client config.
func (cc *CLIContext) loadConfig() error {
	cfg, err := config.LoadClient(cc.CfgPath, cc.Env)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cc.Cfg = cfg

	cc.Logger.Debug("config loaded",
		slog.String("path", cc.CfgPath),
		slog.String("dropbox_root", cfg.DropboxRoot),
		slog.String("screenshot_directory", cfg.ScreenshotDirectory),
	)

	return nil
}

// httpClient returns the client for metadata requests.
func (cc *CLIContext) httpClient() *http.Client {
	timeout := cc.Flags.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &http.Client{Timeout: timeout}
}

// buildLogger creates the CLI logger. Warn is the baseline so normal runs
// print only results; --verbose and --quiet override it.
func buildLogger(flags CLIFlags) *slog.Logger {
	level := slog.LevelWarn

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	return logging.New(os.Stderr, level, flags.LogFormat)
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the shotty version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "shotty %s\n", version)
			return nil
		},
	}
}
