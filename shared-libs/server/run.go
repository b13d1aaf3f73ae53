package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownTimeout bounds how long in-flight requests may take once shutdown starts.
const ShutdownTimeout = 10 * time.Second

// Run serves srv until ctx is cancelled or the process gets SIGINT or SIGTERM, then drains
// it. Hooks run after the listener has stopped, in order, sharing the shutdown deadline.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger, onShutdown ...func(context.Context)) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down", slog.Any("cause", context.Cause(ctx)))
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(drainCtx)
	for _, hook := range onShutdown {
		hook(drainCtx)
	}
	if err != nil {
		logger.Warn("graceful shutdown incomplete", slog.Any("error", err))
	}
	return err
}
