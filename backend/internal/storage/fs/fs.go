package fs

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/itchan-dev/boardkeeper/backend/internal/service"
	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
	"github.com/klauspost/compress/zstd"
)

const (
	snapshotDir = "snapshots"
	snapshotExt = ".json.zst"
)

// Storage keeps one zstd compressed JSON snapshot per board under
// <root>/snapshots.
type Storage struct {
	rootPath string
}

// Ensure Storage struct implements the interface at compile time.
var _ service.SnapshotStorage = (*Storage)(nil)

func New(rootPath string) (*Storage, error) {
	p := filepath.Clean(rootPath)
	if err := os.MkdirAll(filepath.Join(p, snapshotDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory in %s: %w", p, err)
	}
	return &Storage{rootPath: p}, nil
}

// Board names may hold any unicode, so file names are hex encoded.
func (s *Storage) snapshotPath(name domain.BoardName) string {
	return filepath.Join(s.rootPath, snapshotDir, hex.EncodeToString([]byte(name))+snapshotExt)
}

// SaveSnapshot writes to a temp file in the same directory and renames it over
// the previous snapshot, so a crash leaves either the old or the new one.
func (s *Storage) SaveSnapshot(ctx context.Context, snap domain.BoardSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	finalPath := s.snapshotPath(snap.Name)
	tmpPath := filepath.Join(filepath.Dir(finalPath), ".tmp-"+uuid.NewString())

	if err := writeSnapshot(tmpPath, snap); err != nil {
		os.Remove(tmpPath) // Best effort
		return fmt.Errorf("failed to write snapshot of board %s: %w", snap.Name, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move snapshot of board %s into place: %w", snap.Name, err)
	}
	return nil
}

func writeSnapshot(path string, snap domain.BoardSnapshot) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	if err := json.NewEncoder(bw).Encode(snap); err != nil {
		enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return f.Close()
}

func (s *Storage) LoadSnapshot(ctx context.Context, name domain.BoardName) (domain.BoardSnapshot, error) {
	var snap domain.BoardSnapshot
	if err := ctx.Err(); err != nil {
		return snap, err
	}

	f, err := os.Open(s.snapshotPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return snap, fmt.Errorf("%s: %w", name, internal_errors.ErrSnapshotNotFound)
	}
	if err != nil {
		return snap, fmt.Errorf("failed to open snapshot of board %s: %w", name, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, fmt.Errorf("failed to open snapshot of board %s: %w", name, err)
	}
	defer dec.Close()

	if err := json.NewDecoder(bufio.NewReaderSize(dec, 256*1024)).Decode(&snap); err != nil {
		return snap, fmt.Errorf("%s: %w: json decode: %w", name, internal_errors.ErrInvalidSnapshot, err)
	}
	if snap.Name != name {
		return snap, fmt.Errorf("%s: %w: file holds board %q", name, internal_errors.ErrInvalidSnapshot, snap.Name)
	}
	return snap, nil
}

// Ping checks that the snapshot directory is still writable.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(s.rootPath, snapshotDir)
	f, err := os.CreateTemp(dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("snapshot directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Boards lists every board that has a snapshot on disk.
func (s *Storage) Boards(ctx context.Context) ([]domain.BoardName, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.rootPath, snapshotDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	var names []domain.BoardName
	for _, e := range entries {
		encoded, ok := strings.CutSuffix(e.Name(), snapshotExt)
		if !ok || e.IsDir() {
			continue
		}
		raw, err := hex.DecodeString(encoded)
		if err != nil {
			continue
		}
		names = append(names, string(raw))
	}
	return names, nil
}
