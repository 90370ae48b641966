// Command reelpodd serves the lofi music generation API. It queues
// requests for an ACE-Step music service and renders cover images
// through an SDXL inference sidecar.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nvst/internal/reelpod/acestep"
	"nvst/internal/reelpod/api"
	"nvst/internal/reelpod/imagegen"
	"nvst/internal/reelpod/queue"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := api.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	q := queue.New(acestep.NewClient(cfg.AceStepURL), logger)
	q.Start(ctx)
	defer q.Stop()

	images := imagegen.NewPipeline(cfg.ImageAPIURL)
	if cfg.ImageAPIURL == "" {
		logger.Warn("IMAGE_API_URL not set; image generation disabled")
	}

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewServer(q, images, cfg.WaitTimeout, logger).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "acestep", cfg.AceStepURL)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
