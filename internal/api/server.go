package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Serve listens on host:port until ctx is done, then shuts down within
// shutdownTimeout.
func Serve(ctx context.Context, logger zerolog.Logger, host, port string, handler http.Handler, shutdownTimeout time.Duration) error {
	server := &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}
	return serveOn(ctx, logger, server, ln, shutdownTimeout)
}

func serveOn(ctx context.Context, logger zerolog.Logger, server *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", ln.Addr().String()).
			Msg("setting up http server")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down http server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			logger.Error().
				Err(err).
				Msg("failed to shutdown http server")
			return err
		}
		logger.Info().Msg("shut down http server")
		return nil
	})
	return g.Wait()
}
