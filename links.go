package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/shotty/internal/config"
	"github.com/tonimelisma/shotty/internal/history"
	"github.com/tonimelisma/shotty/internal/links"
)

// defaultLinkRetries is how many times a not-yet-synced file is retried.
const defaultLinkRetries = 10

// linkFlags are shared by the link-producing commands.
type linkFlags struct {
	noCopy  bool
	retries int
}

func (f *linkFlags) bind(cmd *cobra.Command, defaultRetries int) {
	cmd.Flags().BoolVar(&f.noCopy, "no-copy", false, "do not copy the link to the clipboard")
	cmd.Flags().IntVar(&f.retries, "retries", defaultRetries, "retries while waiting for the file to sync")
}

func newURLCmd() *cobra.Command {
	return newLinkCmd("url <file>",
		"Print a shared link for a file, creating one if needed", links.FindThenCreate)
}

func newGetURLCmd() *cobra.Command {
	return newLinkCmd("get-url <file>", "Print the existing shared link for a file", links.FindOnly)
}

func newCreateURLCmd() *cobra.Command {
	return newLinkCmd("create-url <file>", "Create a shared link for a file", links.CreateOnly)
}

func newLinkCmd(use, short string, mode links.Mode) *cobra.Command {
	var flags linkFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)
			session := NewSession(ctx, cc)

			ref, err := session.Resolver.SharedLink(ctx, config.ExpandHome(args[0]), mode, flags.retries)
			if err != nil {
				return err
			}

			deliverLink(ctx, cmd, cc, session, ref, history.ActionLink, flags.noCopy)

			return nil
		},
	}

	flags.bind(cmd, defaultLinkRetries)

	return cmd
}

// deliverLink prints the link, copies it unless disabled, and records it.
// Clipboard and history failures are reported but never fail the command:
// the link itself was obtained.
func deliverLink(ctx context.Context, cmd *cobra.Command, cc *CLIContext, session *Session,
	ref *links.Reference, action string, noCopy bool,
) {
	fmt.Fprintln(cmd.OutOrStdout(), ref.URL)

	if !noCopy {
		if err := session.Desktop.CopyToClipboard(ref.URL); err != nil {
			cc.Logger.Warn("link not copied", slog.String("error", err.Error()))
		} else {
			cc.Statusf("Copied to clipboard\n")
		}
	}

	cc.recordHistory(ctx, action, ref)
}

// recordHistory appends ref to the local ledger, best effort.
func (cc *CLIContext) recordHistory(ctx context.Context, action string, ref *links.Reference) {
	store, err := openHistory(ctx, cc)
	if err != nil {
		cc.Logger.Warn("history unavailable", slog.String("error", err.Error()))
		return
	}
	defer store.Close()

	err = store.Record(ctx, history.Entry{
		Action:     action,
		LocalPath:  ref.LocalPath,
		RemotePath: ref.RemotePath,
		URL:        ref.URL,
	})
	if err != nil {
		cc.Logger.Warn("history not recorded", slog.String("error", err.Error()))
	}
}
