package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/ui"
)

func newServeCmd(stdio IO) *cobra.Command {
	var host, port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the to-do list over HTTP (/api/todos, /healthz, /metrics)",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := start(startOptions{stderr: stdio.ErrOut})
			if err != nil {
				return err
			}
			defer rt.close()

			if host == "" {
				host = rt.cfg.HTTP.Host
			}
			if port == "" {
				port = rt.cfg.HTTP.Port
			}
			rt.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			router := api.NewRouter(rt.cfg.Env, api.NewHandler(rt.log, rt.backend), rt.registry)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := rt.hub.Watch(gctx); err != nil {
					rt.log.Warn().Err(err).Msg("credentials watch stopped")
				}
				return nil
			})
			g.Go(func() error {
				return api.Serve(gctx, rt.log, host, port, router, rt.cfg.HTTP.ShutdownTimeout)
			})
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return failErr("serve: %v", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default $TADA_HTTP_HOST)")
	cmd.Flags().StringVar(&port, "port", "", "listen port (default $TADA_HTTP_PORT)")
	return cmd
}

func newAboutCmd(stdio IO) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "about",
		Short: "What tada is",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(stdio.Out, ui.RenderMarkdown(ui.About, width, ui.Colorful(stdio.Out)))
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "wrap width")
	return cmd
}
