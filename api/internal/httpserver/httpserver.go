package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gwa-helper/api/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// New собирает сервер с таймаутами; WriteTimeout не ставим, извлечение бывает долгим.
func New(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Run слушает addr до отмены ctx, затем мягко гасит сервер.
func Run(ctx context.Context, srv *http.Server, log *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("http server shutting down")
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	return <-errCh
}
