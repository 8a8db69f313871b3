// Command shotty-auth serves the Dropbox OAuth2 authorization-code flow
// and shows the resulting access token to the user.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/shotty/internal/authserver"
	"github.com/tonimelisma/shotty/internal/authsession"
	"github.com/tonimelisma/shotty/internal/config"
	"github.com/tonimelisma/shotty/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		noBanner   bool
	)

	cmd := &cobra.Command{
		Use:           "shotty-auth",
		Short:         "Dropbox authorization server for shotty",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := config.ReadEnvOverrides()
			if listen != "" {
				env.ServerListen = listen
			}

			cfg, err := config.LoadServer(env.ServerPath(configPath), env)
			if err != nil {
				return err
			}

			if !noBanner {
				printBanner(cmd.OutOrStdout())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "server config file path")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "do not print the startup banner")

	return cmd
}

// run wires the session store, flow manager, and HTTP server from cfg and
// serves until ctx is canceled.
func run(ctx context.Context, cfg *config.Server) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, level, cfg.LogFormat)

	store := authsession.NewStore(cfg.SessionTTL, logger)
	manager := authsession.NewManager(authsession.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		AuthorizeURL: cfg.AuthorizeURL,
		TokenURL:     cfg.TokenURL,
	}, store, &http.Client{Timeout: cfg.ExchangeTimeout}, logger)

	srv := authserver.New(manager, store, authserver.Options{
		CallbackPath:    cfg.CallbackPath(),
		CookieSecure:    cfg.CookieSecure,
		ExchangeTimeout: cfg.ExchangeTimeout,
	}, logger)

	logger.Info("starting auth server",
		slog.String("version", version),
		slog.String("redirect_url", cfg.RedirectURL),
		slog.Duration("session_ttl", cfg.SessionTTL),
	)

	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w, figure.NewFigure("shotty", "cybermedium", true).String())
}
