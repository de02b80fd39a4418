package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
	sharedpg "github.com/itchan-dev/boardkeeper/shared/storage/pg"
	"github.com/lib/pq"
)

// SaveSnapshot replaces everything stored for the board in one transaction.
// Threads and posts are bulk loaded with COPY.
func (s *Storage) SaveSnapshot(ctx context.Context, snap domain.BoardSnapshot) error {
	return sharedpg.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE name = $1`, snap.Name); err != nil {
			return fmt.Errorf("failed to clear board %s: %w", snap.Name, err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO boards (name, description, active_capacity, archive_capacity, count, active, archive, sticky, live_posts)
			VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric[], $7::numeric[], $8::numeric[], $9::numeric[])`,
			snap.Name, snap.Description, snap.ActiveCapacity, snap.ArchiveCapacity,
			sharedpg.Numeric(snap.Count),
			sharedpg.NumericArray(snap.Active),
			sharedpg.NumericArray(snap.Archive),
			sharedpg.NumericArray(snap.Sticky),
			sharedpg.NumericArray(snap.Posts),
		)
		if err != nil {
			return fmt.Errorf("failed to insert board %s: %w", snap.Name, err)
		}

		if err := copyThreads(ctx, tx, snap.Name, snap.Threads); err != nil {
			return err
		}
		return copyPosts(ctx, tx, snap.Name, snap.PostRecords)
	})
}

func copyThreads(ctx context.Context, tx *sql.Tx, board domain.BoardName, threads []domain.Thread) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("threads", "board", "id", "name", "children", "locked", "deleted"))
	if err != nil {
		return fmt.Errorf("failed to prepare thread copy: %w", err)
	}
	defer stmt.Close()

	for _, t := range threads {
		children, err := sharedpg.NumericArray(t.Children).Value()
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, board, sharedpg.Numeric(t.Id), t.Name, children, t.Locked, t.Deleted); err != nil {
			return fmt.Errorf("failed to copy thread %d: %w", t.Id, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush thread copy: %w", err)
	}
	return nil
}

func copyPosts(ctx context.Context, tx *sql.Tx, board domain.BoardName, posts []domain.Post) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("posts",
		"board", "id", "thread_id", "owner", "text", "attachment", "created", "modified", "deleted"))
	if err != nil {
		return fmt.Errorf("failed to prepare post copy: %w", err)
	}
	defer stmt.Close()

	for _, p := range posts {
		var attachment interface{}
		if p.Attachment != nil {
			attachment = p.Attachment
		}
		_, err := stmt.ExecContext(ctx, board, sharedpg.Numeric(p.Id), sharedpg.Numeric(p.ThreadId),
			p.Owner, p.Text, attachment, p.Created, p.Modified, p.Deleted)
		if err != nil {
			return fmt.Errorf("failed to copy post %d: %w", p.Id, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush post copy: %w", err)
	}
	return nil
}

func (s *Storage) LoadSnapshot(ctx context.Context, name domain.BoardName) (domain.BoardSnapshot, error) {
	snap := domain.BoardSnapshot{Name: name}
	var (
		count                         string
		active, archive, sticky, live pq.StringArray
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT description, active_capacity, archive_capacity, count::text,
		       active::text[], archive::text[], sticky::text[], live_posts::text[]
		FROM boards WHERE name = $1`, name).
		Scan(&snap.Description, &snap.ActiveCapacity, &snap.ArchiveCapacity, &count, &active, &archive, &sticky, &live)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, fmt.Errorf("%s: %w", name, internal_errors.ErrSnapshotNotFound)
	}
	if err != nil {
		return snap, fmt.Errorf("failed to load board %s: %w", name, err)
	}

	if snap.Count, err = sharedpg.ParseNumeric(count); err != nil {
		return snap, invalid(name, err)
	}
	for _, field := range []struct {
		dst *[]uint64
		src pq.StringArray
	}{{&snap.Active, active}, {&snap.Archive, archive}, {&snap.Sticky, sticky}, {&snap.Posts, live}} {
		if *field.dst, err = sharedpg.ParseNumericArray(field.src); err != nil {
			return snap, invalid(name, err)
		}
	}

	if snap.Threads, err = loadThreads(ctx, s.db, name); err != nil {
		return snap, err
	}
	if snap.PostRecords, err = loadPosts(ctx, s.db, name); err != nil {
		return snap, err
	}
	return snap, nil
}

func loadThreads(ctx context.Context, q sharedpg.Querier, board domain.BoardName) ([]domain.Thread, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id::text, name, children::text[], locked, deleted
		FROM threads WHERE board = $1 ORDER BY id`, board)
	if err != nil {
		return nil, fmt.Errorf("failed to load threads of board %s: %w", board, err)
	}
	defer rows.Close()

	threads := []domain.Thread{}
	for rows.Next() {
		var (
			t        domain.Thread
			id       string
			children pq.StringArray
		)
		if err := rows.Scan(&id, &t.Name, &children, &t.Locked, &t.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan thread of board %s: %w", board, err)
		}
		if t.Id, err = sharedpg.ParseNumeric(id); err != nil {
			return nil, invalid(board, err)
		}
		if t.Children, err = sharedpg.ParseNumericArray(children); err != nil {
			return nil, invalid(board, err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate threads of board %s: %w", board, err)
	}
	return threads, nil
}

func loadPosts(ctx context.Context, q sharedpg.Querier, board domain.BoardName) ([]domain.Post, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id::text, thread_id::text, owner, text, attachment, created, modified, deleted
		FROM posts WHERE board = $1 ORDER BY id`, board)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts of board %s: %w", board, err)
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		var (
			p            domain.Post
			id, threadId string
		)
		if err := rows.Scan(&id, &threadId, &p.Owner, &p.Text, &p.Attachment, &p.Created, &p.Modified, &p.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan post of board %s: %w", board, err)
		}
		if p.Id, err = sharedpg.ParseNumeric(id); err != nil {
			return nil, invalid(board, err)
		}
		if p.ThreadId, err = sharedpg.ParseNumeric(threadId); err != nil {
			return nil, invalid(board, err)
		}
		p.Created, p.Modified = p.Created.UTC(), p.Modified.UTC()
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts of board %s: %w", board, err)
	}
	return posts, nil
}

// Boards lists every board that has a stored snapshot.
func (s *Storage) Boards(ctx context.Context) ([]domain.BoardName, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM boards ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	var names []domain.BoardName
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func invalid(board domain.BoardName, err error) error {
	return fmt.Errorf("%s: %w: %w", board, internal_errors.ErrInvalidSnapshot, err)
}
