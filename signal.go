package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// shutdownContext derives the context every command runs under. The first
// SIGINT or SIGTERM cancels it, which wakes links.Resolver out of its
// wait between not-yet-synced retries and makes capture.Watcher.Run
// return so `shotty watch` releases its lock. A second signal exits at
// once, for a retry loop stuck in a provider call.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		var sig os.Signal

		select {
		case sig = <-sigCh:
		case <-ctx.Done():
			return
		}

		logger.Info("interrupted, stopping", slog.String("signal", sig.String()))
		cancel()

		select {
		case sig = <-sigCh:
			logger.Warn("interrupted again, exiting", slog.String("signal", sig.String()))
			os.Exit(1)
		case <-parent.Done():
		}
	}()

	return ctx
}
