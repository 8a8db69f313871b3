package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/shotty/internal/desktop"
)

// defaultAuthServer is where shotty-auth listens by default.
const defaultAuthServer = "http://localhost:8080"

func newAuthorizeCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Open the authorization page to obtain a Dropbox token",
		Long: `Open the shotty-auth server in a browser. After you approve access in
Dropbox the page shows an access token; save it with:

  shotty config set token <token>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)

			authURL, err := authorizeURL(server)
			if err != nil {
				return err
			}

			cc.Logger.Info("opening browser for authorization", slog.String("url", authURL))

			if err := desktop.New(cc.Logger).OpenURL(ctx, authURL); err != nil {
				cc.Logger.Warn("failed to open browser, printing URL", slog.String("error", err.Error()))
				fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
			}

			cc.Statusf("Then run: shotty config set token <token>\n")

			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", defaultAuthServer, "base URL of the shotty-auth server")

	return cmd
}

// authorizeURL is the /authorize endpoint under the server base URL.
func authorizeURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid --server URL %q", base)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/authorize"
	u.RawQuery = ""

	return u.String(), nil
}
