package main

import (
	"github.com/spf13/cobra"

	"github.com/tonimelisma/shotty/internal/config"
	"github.com/tonimelisma/shotty/internal/history"
)

func newUploadCmd() *cobra.Command {
	var noCopy bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file to the screenshot directory and print its link",
		Long: `Upload a local file into this month's folder under the screenshot
directory in Dropbox and create a public shared link for it. Existing files
are never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)
			session := NewSession(ctx, cc)

			ref, err := session.Resolver.Upload(ctx, config.ExpandHome(args[0]))
			if err != nil {
				return err
			}

			deliverLink(ctx, cmd, cc, session, ref, history.ActionUpload, noCopy)

			return nil
		},
	}

	cmd.Flags().BoolVar(&noCopy, "no-copy", false, "do not copy the link to the clipboard")

	return cmd
}
