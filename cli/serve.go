package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/mosaicme/mosaicme/config"
	"github.com/mosaicme/mosaicme/export"
	"github.com/mosaicme/mosaicme/mosaic"
	"github.com/mosaicme/mosaicme/palette"
	"github.com/mosaicme/mosaicme/server"
	"github.com/mosaicme/mosaicme/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mosaic HTTP API",
	Long: `Start the HTTP API server. Configuration is read from the
environment (and a .env file when present); see config.FromEnv for
the recognized variables.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := newLogger("mosaicme")

	registry, err := palette.NewRegistryFromDir(cfg.PalettesDir)
	if err != nil {
		return fmt.Errorf("failed to load palettes: %w", err)
	}

	sessions := session.NewStore(cfg.SessionTTL)
	srv := server.New(cfg, log, registry, mosaic.NewGenerator(), export.NewRenderer(cfg.FontPath), sessions)

	// Expired sessions are evicted on read; the scheduled sweep keeps
	// the store from accumulating entries nobody asks for again.
	sched := cron.New()
	_, err = sched.AddFunc(cfg.CleanupSchedule, func() {
		if removed := sessions.Cleanup(); removed > 0 {
			log.Info("expired sessions removed", "count", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session cleanup: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	httpSrv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr(), "palettes", registry.Types())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return nil
}
