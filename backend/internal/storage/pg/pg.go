package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/itchan-dev/boardkeeper/backend/internal/service"
	"github.com/itchan-dev/boardkeeper/shared/config"
	"github.com/itchan-dev/boardkeeper/shared/logger"
	sharedpg "github.com/itchan-dev/boardkeeper/shared/storage/pg"
)

type Storage struct {
	db *sql.DB
}

// Ensure Storage struct implements the interface at compile time.
var _ service.SnapshotStorage = (*Storage)(nil)

// New connects to postgres and creates the schema if needed.
func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	logger.Log.Info("connecting to db", "component", "pg", "host", cfg.Public.Pg.Host, "dbname", cfg.Public.Pg.Dbname)
	db, err := sharedpg.Connect(ctx, cfg, sharedpg.LightweightConnectionConfig())
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Log.Info("successfully connected to db", "component", "pg")
	return &Storage{db: db}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS boards (
		name             TEXT PRIMARY KEY,
		description      TEXT NOT NULL,
		active_capacity  INTEGER NOT NULL CHECK (active_capacity > 0),
		archive_capacity INTEGER NOT NULL CHECK (archive_capacity > 0),
		count            NUMERIC(20,0) NOT NULL,
		active           NUMERIC(20,0)[] NOT NULL,
		archive          NUMERIC(20,0)[] NOT NULL,
		sticky           NUMERIC(20,0)[] NOT NULL,
		live_posts       NUMERIC(20,0)[] NOT NULL,
		saved_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS threads (
		board    TEXT NOT NULL REFERENCES boards(name) ON DELETE CASCADE,
		id       NUMERIC(20,0) NOT NULL,
		name     TEXT NOT NULL,
		children NUMERIC(20,0)[] NOT NULL,
		locked   BOOLEAN NOT NULL,
		deleted  BOOLEAN NOT NULL,
		PRIMARY KEY (board, id)
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		board      TEXT NOT NULL REFERENCES boards(name) ON DELETE CASCADE,
		id         NUMERIC(20,0) NOT NULL,
		thread_id  NUMERIC(20,0) NOT NULL,
		owner      TEXT NOT NULL,
		text       TEXT NOT NULL,
		attachment BYTEA,
		created    TIMESTAMPTZ NOT NULL,
		modified   TIMESTAMPTZ NOT NULL,
		deleted    BOOLEAN NOT NULL,
		PRIMARY KEY (board, id)
	)`,
}

// Migrate creates the snapshot tables. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	return sharedpg.WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to migrate snapshot schema: %w", err)
			}
		}
		return nil
	})
}
