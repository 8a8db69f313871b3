package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/shotty/internal/desktop"
	"github.com/tonimelisma/shotty/internal/dropbox"
)

// errSilentExit signals a failing exit status whose outcome the command
// has already printed.
var errSilentExit = errors.New("silent exit")

func newDropboxStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dropbox-status",
		Short: "Report whether the Dropbox desktop client is running",
		Long: `Report whether the Dropbox desktop client is running.

Exits 0 when it is running and 1 when it is not, so scripts can test it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)

			running, err := desktop.New(cc.Logger).ProcessRunning(ctx, desktop.AgentProcess)
			if err != nil {
				return err
			}

			if !running {
				cc.Statusf("Dropbox is not running\n")
				return errSilentExit
			}

			cc.Statusf("Dropbox is running\n")

			return nil
		},
	}
}

// usageJSON is the --json shape of the usage command.
type usageJSON struct {
	Used      int64   `json:"used"`
	Allocated int64   `json:"allocated"`
	Percent   float64 `json:"percent"`
}

func newUsageCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show Dropbox space usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)

			usage, err := NewSession(ctx, cc).Client.SpaceUsage(ctx)
			if err != nil {
				return err
			}

			return printUsage(cmd.OutOrStdout(), usage, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")

	return cmd
}

func printUsage(w io.Writer, u *dropbox.SpaceUsage, asJSON bool) error {
	var pct float64
	if u.Allocated > 0 {
		pct = float64(u.Used) / float64(u.Allocated) * 100
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(usageJSON{Used: u.Used, Allocated: u.Allocated, Percent: pct})
	}

	fmt.Fprintf(w, "%s of %s used (%.1f%%)\n",
		formatSize(u.Used), formatSize(u.Allocated), pct)

	return nil
}
