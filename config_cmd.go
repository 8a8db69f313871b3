package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/shotty/internal/config"
)

func newConfigCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Display effective configuration after all overrides",
		Long: `Display the effective client configuration: the config file with
defaults and environment overrides applied. The token is masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())
			return renderConfig(cmd.OutOrStdout(), cc.Cfg, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	cmd.AddCommand(skipConfig(newConfigSetCmd()))

	return cmd
}

func renderConfig(w io.Writer, cfg *config.Client, asJSON bool) error {
	if cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	red := cfg.Redacted()

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(red)
	}

	printTable(w, []string{"KEY", "VALUE"}, [][]string{
		{"token", red.Token},
		{"dropbox_root", red.DropboxRoot},
		{"screenshot_directory", red.ScreenshotDirectory},
	})

	return nil
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key in the config file",
		Long: `Set a key in the client config file, creating the file if needed.
Keys: token, dropbox_root, screenshot_directory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			cfg, err := config.ReadClientFile(cc.CfgPath)
			if err != nil {
				return err
			}

			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}

			if err := config.SaveClient(cc.CfgPath, cfg); err != nil {
				return err
			}

			cc.Statusf("Updated %s in %s\n", args[0], cc.CfgPath)

			return nil
		},
	}
}

func newConfigFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config-file",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), mustCLIContext(cmd.Context()).CfgPath)
			return nil
		},
	}
}
