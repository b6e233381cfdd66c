// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpin "sneakhead/internal/adapters/in/http"
	"sneakhead/internal/infra/config"
	"sneakhead/internal/platform/di"
	"sneakhead/internal/platform/logger"
)

func main() {
	configFile := flag.String("config", "config.yaml", "path to the yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[boot] %v", err)
	}

	zl, syncLog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("[boot] %v", err)
	}
	defer syncLog()
	zap.ReplaceGlobals(zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cont, err := di.NewContainer(ctx, cfg, zl)
	if err != nil {
		zl.Error("[boot] di init failed", zap.Error(err))
		syncLog()
		os.Exit(1)
	}
	defer func() {
		if err := cont.Close(); err != nil {
			zl.Warn("[boot] container close", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpin.NewRouter(cont.RouterDeps()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: /products/stream and /me/cart/stream stay open.
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("[boot] listening", zap.String("addr", cfg.HTTP.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("[boot] server error", zap.Error(err))
		}
	case <-ctx.Done():
		zl.Info("[boot] shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("[boot] server shutdown error", zap.Error(err))
	}
	zl.Info("[boot] server stopped")
}
