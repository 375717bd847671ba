package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pluribus-ai/pluribus/internal/config"
	"github.com/pluribus-ai/pluribus/internal/pkg/logger"
	"github.com/pluribus-ai/pluribus/internal/provider"
	"github.com/pluribus-ai/pluribus/internal/provider/claudecode"
)

const shutdownGrace = 30 * time.Second

// Run starts the gateway and blocks until a shutdown signal. In-flight
// requests are allowed to finish.
func Run(cfg *config.Config) error {
	// The upstream version must be pinned before the first request.
	claudecode.InitVersion(context.Background())

	if err := os.MkdirAll(cfg.ProvidersDir, 0o755); err != nil {
		return err
	}
	providers, err := claudecode.LoadProviders(cfg.ProvidersDir)
	if err != nil {
		return err
	}
	registry := provider.NewRegistry(providers)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: NewRouter(cfg, registry),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.L().Info("server shutdown complete")
	return nil
}
