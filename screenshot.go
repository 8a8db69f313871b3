package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/shotty/internal/capture"
	"github.com/tonimelisma/shotty/internal/config"
	"github.com/tonimelisma/shotty/internal/history"
	"github.com/tonimelisma/shotty/internal/links"
)

// defaultSourceDir is where the OS screenshot tool saves files.
const defaultSourceDir = "~/Desktop"

// watchLockName is the lock file guarding against two watchers.
const watchLockName = "watch.pid"

func newMvLastScreenshotCmd() *cobra.Command {
	var (
		flags  linkFlags
		source string
	)

	cmd := &cobra.Command{
		Use:   "mv-last-screenshot",
		Short: "File the newest screenshot into Dropbox and copy its link",
		Long: `Move the most recent screenshot from the source directory into this
month's folder under the screenshot directory, wait for Dropbox to sync it,
and copy a public link to the clipboard.

This is the command the launchd agent from "shotty plist" runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)
			session := NewSession(ctx, cc)

			latest, err := capture.FindLatest(config.ExpandHome(source))
			if err != nil {
				return err
			}

			ref, err := fileScreenshot(ctx, cc, session, latest, flags.retries)
			if err != nil {
				session.Desktop.Notify(ctx, "shotty", "Could not share "+filepath.Base(latest))
				return err
			}

			deliverLink(ctx, cmd, cc, session, ref, history.ActionLink, flags.noCopy)
			session.Desktop.Notify(ctx, "shotty", "Link to "+filepath.Base(ref.LocalPath)+" copied")

			return nil
		},
	}

	flags.bind(cmd, defaultLinkRetries)
	cmd.Flags().StringVar(&source, "source", defaultSourceDir, "directory the OS saves screenshots to")

	return cmd
}

// fileScreenshot moves a screenshot into the capture directory and waits
// for a shared link to it.
func fileScreenshot(ctx context.Context, cc *CLIContext, session *Session, src string, retries int,
) (*links.Reference, error) {
	dst, err := capture.MoveToCapture(src, cc.Cfg.ScreenshotDirectory, time.Now())
	if err != nil {
		return nil, err
	}

	cc.Logger.Info("screenshot filed",
		slog.String("from", src),
		slog.String("to", dst),
	)

	return session.Resolver.SharedLink(ctx, dst, links.FindThenCreate, retries)
}

func newWatchCmd() *cobra.Command {
	var (
		flags  linkFlags
		source string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch for new screenshots and share each one",
		Long: `Run in the foreground, filing every new screenshot that appears in the
source directory exactly like mv-last-screenshot. Stop with Ctrl-C.

Only one watcher may run at a time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cc := mustCLIContext(ctx)
			session := NewSession(ctx, cc)

			release, err := acquireLock(filepath.Join(config.DefaultDataDir(), watchLockName))
			if err != nil {
				return err
			}
			defer release()

			w := capture.NewWatcher(config.ExpandHome(source), capture.DefaultSettle, cc.Logger)

			return w.Run(ctx, func(ctx context.Context, path string) {
				ref, err := fileScreenshot(ctx, cc, session, path, flags.retries)
				if err != nil {
					cc.Logger.Error("sharing screenshot failed",
						slog.String("path", path),
						slog.String("error", err.Error()),
					)
					session.Desktop.Notify(ctx, "shotty", "Could not share "+filepath.Base(path))

					return
				}

				deliverLink(ctx, cmd, cc, session, ref, history.ActionLink, flags.noCopy)
				session.Desktop.Notify(ctx, "shotty", fmt.Sprintf("Link to %s copied", filepath.Base(ref.LocalPath)))
			})
		},
	}

	flags.bind(cmd, defaultLinkRetries)
	cmd.Flags().StringVar(&source, "source", defaultSourceDir, "directory the OS saves screenshots to")

	return cmd
}
