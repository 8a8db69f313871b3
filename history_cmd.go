package main

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/shotty/internal/config"
	"github.com/tonimelisma/shotty/internal/history"
)

const defaultHistoryLimit = 20

// historyPath is the ledger location. Tests point it at a temp dir.
var historyPath = func() string {
	return filepath.Join(config.DefaultDataDir(), history.DBFileName)
}

func openHistory(ctx context.Context, cc *CLIContext) (*history.Store, error) {
	return history.Open(ctx, historyPath(), cc.Logger)
}

// historyJSON is the --json shape of one history entry.
type historyJSON struct {
	Action     string `json:"action"`
	LocalPath  string `json:"local_path"`
	RemotePath string `json:"remote_path"`
	URL        string `json:"url"`
	CreatedAt  string `json:"created_at"`
}

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently shared links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)

			store, err := openHistory(ctx, cc)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()

			if asJSON {
				out := make([]historyJSON, 0, len(entries))
				for _, e := range entries {
					out = append(out, historyJSON{
						Action:     e.Action,
						LocalPath:  e.LocalPath,
						RemotePath: e.RemotePath,
						URL:        e.URL,
						CreatedAt:  e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
					})
				}

				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")

				return enc.Encode(out)
			}

			if len(entries) == 0 {
				cc.Statusf("No links recorded yet\n")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{formatTime(e.CreatedAt), e.Action, e.RemotePath, e.URL})
			}

			printTable(w, []string{"WHEN", "ACTION", "PATH", "URL"}, rows)

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "number of entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")

	return cmd
}
