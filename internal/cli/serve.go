package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/huddle/internal/config"
	"github.com/roach88/huddle/internal/remote"
)

// shutdownTimeout bounds graceful shutdown of the acceptor server.
const shutdownTimeout = 5 * time.Second

// DefaultAcceptorDB is the acceptor database used by serve when none is given.
const DefaultAcceptorDB = "huddle-remote.db"

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen     string
	AcceptorDB string

	// ready, if set, receives the bound address once the server listens (for testing).
	ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions, env config.Env) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference remote acceptor",
		Long: `Run an HTTP remote that accepts play submissions, retractions, and game
updates, deduplicating by idempotency key.

Example:
  huddle serve --listen :8080 --acceptor-db ./league.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", env.Listen, "listen address (env "+config.EnvListen+")")
	cmd.Flags().StringVar(&opts.AcceptorDB, "acceptor-db", DefaultAcceptorDB, "path to the acceptor database")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	slog.Info("opening acceptor database", "path", opts.AcceptorDB)
	acc, err := remote.OpenSQLite(opts.AcceptorDB, remote.WithAcceptorLogger(slog.Default()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open acceptor database", err)
	}
	defer func() {
		if closeErr := acc.Close(); closeErr != nil {
			slog.Error("error closing acceptor database", "error", closeErr)
		}
	}()

	ln, err := net.Listen("tcp", opts.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           remote.NewServer(acc, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
	}()

	addr := ln.Addr().String()
	slog.Info("acceptor listening", "addr", addr, "db", opts.AcceptorDB)
	fmt.Fprintf(cmd.OutOrStdout(), "Remote acceptor listening on %s\n", addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.ready != nil {
		opts.ready(addr)
	}

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("acceptor stopped gracefully")
	return nil
}
