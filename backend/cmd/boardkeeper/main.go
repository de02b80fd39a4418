package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/itchan-dev/boardkeeper/backend/internal/router"
	"github.com/itchan-dev/boardkeeper/backend/internal/setup"
	"github.com/itchan-dev/boardkeeper/shared/config"
	"github.com/itchan-dev/boardkeeper/shared/logger"
)

func main() {
	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "backend/config", "path to folder with configs")
	flag.Parse()

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)
	log := logger.Component("main")

	if err := run(cfg); err != nil {
		log.Error("boardkeeper stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	boards, err := config.Bootstrap(cfg.Public.DataDir)
	if err != nil {
		return err
	}

	deps, err := setup.SetupDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.Persister.Restore(ctx, boards); err != nil {
		return err
	}
	warnOrphans(ctx, deps)

	saveCtx, stopSaving := context.WithCancel(context.Background())
	defer stopSaving()
	deps.Persister.StartBackgroundSave(saveCtx, cfg.Public.SnapshotInterval)

	srv := &http.Server{
		Addr:              cfg.Public.OpsAddr,
		Handler:           router.New(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("ops server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Error("ops server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("ops server forced to shutdown", "error", err)
	}

	stopSaving()
	// final save so nothing since the last tick is lost
	if err := deps.Persister.RunSave(shutdownCtx); err != nil {
		return err
	}
	stats := deps.Persister.GetLastSaveStats()
	log.Info("final snapshot saved", "boards_saved", stats.BoardsSaved, "errors", stats.Errors)
	return nil
}

// warnOrphans logs snapshots whose board was removed from config.txt. They
// are left on disk untouched.
func warnOrphans(ctx context.Context, deps *setup.Dependencies) {
	log := logger.Component("main")
	stored, err := deps.Storage.Boards(ctx)
	if err != nil {
		log.Warn("can't list stored snapshots", "error", err)
		return
	}
	configured := deps.Site.Boards()
	for _, name := range stored {
		if !slices.Contains(configured, name) {
			log.Warn("snapshot has no configured board", "board", name)
		}
	}
}
