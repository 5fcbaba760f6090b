package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ramp/ramp-mcp-server/internal/app"
	"github.com/ramp/ramp-mcp-server/internal/logging"
	"github.com/ramp/ramp-mcp-server/internal/mcp"
	"github.com/ramp/ramp-mcp-server/internal/version"
)

func newServeCommand(f *serveFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (the default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, *f)
		},
	}
	cmd.Flags().StringVar(&f.transport, "transport", "stdio", "transport: stdio or http")
	cmd.Flags().StringVar(&f.httpAddr, "http", ":3333", "HTTP listen address when --transport=http")
	return cmd
}

func runServe(cmd *cobra.Command, f serveFlags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	// stdout belongs to the stdio transport; stderr logging is validated to http only.
	lg, cleanup, err := logging.New("ramp-mcp", logging.Options{Dir: cfg.Log.Dir, Level: cfg.Log.Level, Stderr: cfg.Log.Stderr})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer cleanup()
	lg.WithField("version", version.Get().Version).Info("starting")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := app.NewSession(ctx, cfg, lg)
	if err != nil {
		lg.WithError(err).Error("session setup failed")
		return err
	}
	defer sess.Close()

	srv := app.NewMCPServer(sess, lg)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if cfg.Transport == "http" {
			return srv.ServeHTTP(ctx, mcp.HTTPOptions{
				Addr:      cfg.HTTP.Addr,
				Token:     cfg.HTTP.Token,
				Allowlist: cfg.HTTP.Allowlist,
			})
		}
		return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	})
	if err := g.Wait(); err != nil {
		lg.WithError(err).Error("server stopped")
		return err
	}
	lg.Info("server stopped")
	return nil
}
