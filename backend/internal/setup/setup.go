package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/itchan-dev/boardkeeper/backend/internal/handler"
	"github.com/itchan-dev/boardkeeper/backend/internal/metrics"
	"github.com/itchan-dev/boardkeeper/backend/internal/service"
	"github.com/itchan-dev/boardkeeper/backend/internal/service/utils"
	"github.com/itchan-dev/boardkeeper/backend/internal/storage/fs"
	"github.com/itchan-dev/boardkeeper/backend/internal/storage/pg"
	"github.com/itchan-dev/boardkeeper/shared/config"
	"github.com/itchan-dev/boardkeeper/shared/domain"
	httpmetrics "github.com/itchan-dev/boardkeeper/shared/middleware/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Storage is what both snapshot backends provide.
type Storage interface {
	service.SnapshotStorage
	Boards(ctx context.Context) ([]domain.BoardName, error)
}

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config      *config.Config
	Registry    *prometheus.Registry
	HTTPMetrics *httpmetrics.HTTP
	Site        *service.Site
	Storage     Storage
	Persister   *service.Persister
	Handler     *handler.Handler

	closers []func() error
}

// SetupDependencies initializes all dependencies required for the application.
// Boards are not restored here; see Persister.Restore.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg}

	deps.Registry = prometheus.NewRegistry()
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.HTTPMetrics = httpmetrics.NewHTTP(metrics.Namespace, deps.Registry)
	boardMetrics := metrics.NewBoard(deps.Registry)

	storage, err := newStorage(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	deps.Storage = storage

	deps.Site = service.NewSite(service.SiteOptions{
		Limits: utils.Limits{
			MaxNameLength:     cfg.Public.MaxNameLength,
			MaxOwnerLength:    cfg.Public.MaxOwnerLength,
			MaxTextLength:     cfg.Public.MaxTextLength,
			MaxAttachmentSize: cfg.Public.MaxAttachmentSize,
		},
		ReplyToDeleted: cfg.Public.AllowReplyToDeleted,
		Metrics:        boardMetrics,
	})
	deps.Persister = service.NewPersister(deps.Site, storage, boardMetrics)
	deps.Handler = handler.New(deps.Site, storage)

	return deps, nil
}

func newStorage(ctx context.Context, cfg *config.Config, deps *Dependencies) (Storage, error) {
	if cfg.UsesPg() {
		storage, err := pg.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("pg snapshot storage: %w", err)
		}
		deps.closers = append(deps.closers, storage.Cleanup)
		return storage, nil
	}
	storage, err := fs.New(cfg.Public.DataDir)
	if err != nil {
		return nil, fmt.Errorf("fs snapshot storage: %w", err)
	}
	return storage, nil
}

// Close releases storage connections.
func (d *Dependencies) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
