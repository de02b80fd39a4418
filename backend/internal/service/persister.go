package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
	"github.com/itchan-dev/boardkeeper/shared/logger"
)

// SnapshotStorage persists whole board snapshots.
type SnapshotStorage interface {
	SaveSnapshot(ctx context.Context, snap domain.BoardSnapshot) error
	// LoadSnapshot fails with ErrSnapshotNotFound for a board never saved.
	LoadSnapshot(ctx context.Context, name domain.BoardName) (domain.BoardSnapshot, error)
	Ping(ctx context.Context) error
}

// BoardRegistry is the part of Site the persister works with.
type BoardRegistry interface {
	Boards() []domain.BoardName
	Snapshot(name domain.BoardName) (domain.BoardSnapshot, error)
	OpenBoard(cfg domain.BoardConfig) error
	RestoreBoard(snap domain.BoardSnapshot) error
	SetDescription(name domain.BoardName, description domain.Description) error
}

type SaveRecorder interface {
	SaveFinished(took time.Duration, failed int)
}

// Persister saves every board periodically and restores them at startup.
type Persister struct {
	boards   BoardRegistry
	storage  SnapshotStorage
	recorder SaveRecorder

	mu            sync.Mutex // one save pass at a time
	statsMu       sync.RWMutex
	lastSaveStats SaveStats
}

// SaveStats tracks metrics from the last save pass.
type SaveStats struct {
	RunAt         time.Time
	BoardsScanned int
	BoardsSaved   int
	DurationMs    int64
	Errors        []string
}

func NewPersister(boards BoardRegistry, storage SnapshotStorage, recorder SaveRecorder) *Persister {
	return &Persister{
		boards:   boards,
		storage:  storage,
		recorder: recorder,
	}
}

// Restore registers one board per config, from its saved snapshot when there
// is one. Saved capacities win over configured ones; the description always
// comes from the config.
func (p *Persister) Restore(ctx context.Context, configs []domain.BoardConfig) error {
	for _, cfg := range configs {
		snap, err := p.storage.LoadSnapshot(ctx, cfg.Name)
		switch {
		case errors.Is(err, internal_errors.ErrSnapshotNotFound):
			if err := p.boards.OpenBoard(cfg); err != nil {
				return fmt.Errorf("failed to open board %s: %w", cfg.Name, err)
			}
			logger.Log.Info("opened empty board",
				"component", "persister",
				"board", cfg.Name,
				"active_capacity", cfg.ActiveCapacity,
				"archive_capacity", cfg.ArchiveCapacity)
			continue
		case err != nil:
			return fmt.Errorf("failed to load snapshot of board %s: %w", cfg.Name, err)
		}

		if snap.ActiveCapacity != cfg.ActiveCapacity || snap.ArchiveCapacity != cfg.ArchiveCapacity {
			logger.Log.Warn("configured capacities differ from snapshot, keeping snapshot",
				"component", "persister",
				"board", cfg.Name,
				"snapshot_active", snap.ActiveCapacity,
				"snapshot_archive", snap.ArchiveCapacity,
				"config_active", cfg.ActiveCapacity,
				"config_archive", cfg.ArchiveCapacity)
		}
		if err := p.boards.RestoreBoard(snap); err != nil {
			return fmt.Errorf("failed to restore board %s: %w", cfg.Name, err)
		}
		if snap.Description != cfg.Description {
			if err := p.boards.SetDescription(cfg.Name, cfg.Description); err != nil {
				return err
			}
		}
		logger.Log.Info("restored board",
			"component", "persister",
			"board", cfg.Name,
			"threads", len(snap.Threads),
			"count", snap.Count)
	}
	return nil
}

// StartBackgroundSave runs a save pass every interval until ctx is done.
func (p *Persister) StartBackgroundSave(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started snapshot persister",
		"component", "persister",
		"interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := p.RunSave(ctx); err != nil {
					logger.Log.Error("snapshot save failed",
						"component", "persister",
						"error", err)
				} else {
					stats := p.GetLastSaveStats()
					logger.Log.Info("snapshot save completed",
						"component", "persister",
						"boards_scanned", stats.BoardsScanned,
						"boards_saved", stats.BoardsSaved,
						"duration_ms", stats.DurationMs,
						"errors", len(stats.Errors))
				}
			case <-ctx.Done():
				logger.Log.Info("snapshot persister shutting down",
					"component", "persister")
				return
			}
		}
	}()
}

// RunSave snapshots and stores every board once. A board that fails is
// recorded in the stats and does not stop the pass; only a cancelled context
// aborts it.
func (p *Persister) RunSave(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	startTime := time.Now()
	stats := SaveStats{
		RunAt:  startTime,
		Errors: []string{},
	}

	names := p.boards.Boards()
	stats.BoardsScanned = len(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("save pass interrupted after %d boards: %w", stats.BoardsSaved, err)
		}
		snap, err := p.boards.Snapshot(name)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("board '%s': failed to snapshot: %v", name, err))
			continue
		}
		if err := p.storage.SaveSnapshot(ctx, snap); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("board '%s': failed to save: %v", name, err))
			continue
		}
		stats.BoardsSaved++
	}

	took := time.Since(startTime)
	stats.DurationMs = took.Milliseconds()
	if p.recorder != nil {
		p.recorder.SaveFinished(took, len(stats.Errors))
	}

	p.statsMu.Lock()
	p.lastSaveStats = stats
	p.statsMu.Unlock()
	return nil
}

// GetLastSaveStats returns statistics from the last save pass.
func (p *Persister) GetLastSaveStats() SaveStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.lastSaveStats
}
