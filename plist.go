package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/shotty/internal/capture"
	"github.com/tonimelisma/shotty/internal/config"
)

// agentLogName is the agent's stderr log inside the data directory.
const agentLogName = "agent.log"

func newPlistCmd() *cobra.Command {
	var (
		source  string
		install bool
	)

	cmd := &cobra.Command{
		Use:   "plist",
		Short: "Print the launchd agent that runs mv-last-screenshot",
		Long: `Print a launchd agent definition that runs "shotty mv-last-screenshot"
whenever the screenshot source directory changes. With --install it is
written to the path printed by "shotty plist-file" instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locating shotty executable: %w", err)
			}

			doc, err := capture.Agent{
				Executable: exe,
				SourceDir:  config.ExpandHome(source),
				LogPath:    filepath.Join(config.DefaultDataDir(), agentLogName),
			}.Plist()
			if err != nil {
				return err
			}

			if !install {
				fmt.Fprint(cmd.OutOrStdout(), doc)
				return nil
			}

			path, err := capture.PlistPath()
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
			}

			if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			cc.Statusf("Wrote %s\nLoad it with: launchctl load %s\n", path, path)

			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", defaultSourceDir, "directory the OS saves screenshots to")
	cmd.Flags().BoolVar(&install, "install", false, "write the agent file instead of printing it")

	return cmd
}

func newPlistFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plist-file",
		Short: "Print where the launchd agent file belongs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := capture.PlistPath()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)

			return nil
		},
	}
}
