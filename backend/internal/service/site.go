package service

import (
	"fmt"
	"sync"

	"github.com/itchan-dev/boardkeeper/backend/internal/board"
	"github.com/itchan-dev/boardkeeper/backend/internal/service/utils"
	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
	"github.com/itchan-dev/boardkeeper/shared/logger"
)

// Metrics receives board events and outcomes. *metrics.Board implements it.
type Metrics interface {
	board.Observer
	ThreadCreated(board domain.BoardName)
	Replied(board domain.BoardName)
	OpFailed(board domain.BoardName, op string, err error)
	SetOccupancy(stats domain.BoardStats)
}

type noopMetrics struct{}

func (noopMetrics) ThreadEvicted(domain.BoardName, domain.ThreadId)  {}
func (noopMetrics) ThreadPromoted(domain.BoardName, domain.ThreadId) {}
func (noopMetrics) ThreadDropped(domain.BoardName, domain.ThreadId)  {}
func (noopMetrics) ThreadCreated(domain.BoardName)                   {}
func (noopMetrics) Replied(domain.BoardName)                         {}
func (noopMetrics) OpFailed(domain.BoardName, string, error)         {}
func (noopMetrics) SetOccupancy(domain.BoardStats)                   {}

// guardedBoard serializes every call into one board.
type guardedBoard struct {
	mu sync.Mutex
	b  *board.Board
}

// Site holds every board of the process. Calls into different boards run
// concurrently, calls into the same board are serialized.
type Site struct {
	mu     sync.RWMutex
	boards map[domain.BoardName]*guardedBoard
	order  []domain.BoardName

	input     *utils.Sanitizer
	metrics   Metrics
	boardOpts []board.Option
}

type SiteOptions struct {
	Limits         utils.Limits
	ReplyToDeleted bool
	Metrics        Metrics
	BoardOptions   []board.Option // appended after the site's own options
}

func NewSite(opts SiteOptions) *Site {
	m := opts.Metrics
	if m == nil {
		m = noopMetrics{}
	}
	boardOpts := []board.Option{
		board.WithObserver(m),
		board.WithReplyToDeleted(opts.ReplyToDeleted),
	}
	return &Site{
		boards:    make(map[domain.BoardName]*guardedBoard),
		input:     utils.NewSanitizer(opts.Limits),
		metrics:   m,
		boardOpts: append(boardOpts, opts.BoardOptions...),
	}
}

// AddBoard registers an already built board.
func (s *Site) AddBoard(b *board.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := b.Name()
	if _, ok := s.boards[name]; ok {
		return fmt.Errorf("%s: %w", name, internal_errors.ErrBoardExists)
	}
	s.boards[name] = &guardedBoard{b: b}
	s.order = append(s.order, name)
	s.metrics.SetOccupancy(b.Stats())
	return nil
}

// OpenBoard builds an empty board with the site's options and registers it.
func (s *Site) OpenBoard(cfg domain.BoardConfig) error {
	b, err := board.New(cfg, s.boardOpts...)
	if err != nil {
		return err
	}
	return s.AddBoard(b)
}

// RestoreBoard rebuilds a board from a snapshot and registers it.
func (s *Site) RestoreBoard(snap domain.BoardSnapshot) error {
	b, err := board.FromSnapshot(snap, s.boardOpts...)
	if err != nil {
		return err
	}
	return s.AddBoard(b)
}

// Boards lists board names in registration order.
func (s *Site) Boards() []domain.BoardName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.BoardName(nil), s.order...)
}

func (s *Site) board(name domain.BoardName) (*guardedBoard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.boards[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, internal_errors.ErrBoardNotFound)
	}
	return g, nil
}

// mutate runs fn under the board lock and records the outcome.
func (s *Site) mutate(name domain.BoardName, op string, fn func(b *board.Board) error) error {
	g, err := s.board(name)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := fn(g.b); err != nil {
		s.failed(name, op, err)
		return err
	}
	s.metrics.SetOccupancy(g.b.Stats())
	return nil
}

// query runs fn under the board lock.
func (s *Site) query(name domain.BoardName, fn func(b *board.Board) error) error {
	g, err := s.board(name)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.b)
}

func (s *Site) failed(name domain.BoardName, op string, err error) {
	s.metrics.OpFailed(name, op, err)
	if internal_errors.IsFatal(err) {
		logger.Log.Error("board can't accept new posts",
			"component", "site",
			"board", name,
			"op", op,
			"error", err)
		return
	}
	logger.Log.Debug("board operation failed",
		"component", "site",
		"board", name,
		"op", op,
		"error", err)
}

func (s *Site) CreateThread(boardName domain.BoardName, name domain.ThreadName, owner domain.Owner, text domain.PostText, attachment domain.Attachment) (domain.ThreadId, error) {
	name, err := s.input.ThreadName(name)
	if err != nil {
		return 0, err
	}
	owner, text, err = s.input.Post(owner, text, attachment)
	if err != nil {
		return 0, err
	}

	var id domain.ThreadId
	err = s.mutate(boardName, "create_thread", func(b *board.Board) error {
		id, err = b.CreateThread(name, owner, text, attachment)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.metrics.ThreadCreated(boardName)
	return id, nil
}

func (s *Site) Reply(boardName domain.BoardName, thread domain.ThreadId, owner domain.Owner, text domain.PostText, attachment domain.Attachment) (domain.PostId, error) {
	owner, text, err := s.input.Post(owner, text, attachment)
	if err != nil {
		return 0, err
	}

	var id domain.PostId
	err = s.mutate(boardName, "reply", func(b *board.Board) error {
		id, err = b.Reply(thread, owner, text, attachment)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.metrics.Replied(boardName)
	return id, nil
}

func (s *Site) Pin(boardName domain.BoardName, id domain.ThreadId) error {
	return s.mutate(boardName, "pin", func(b *board.Board) error { return b.Pin(id) })
}

func (s *Site) Unpin(boardName domain.BoardName, id domain.ThreadId) error {
	return s.mutate(boardName, "unpin", func(b *board.Board) error { return b.Unpin(id) })
}

func (s *Site) Lock(boardName domain.BoardName, id domain.ThreadId) error {
	return s.mutate(boardName, "lock", func(b *board.Board) error { return b.Lock(id) })
}

func (s *Site) Unlock(boardName domain.BoardName, id domain.ThreadId) error {
	return s.mutate(boardName, "unlock", func(b *board.Board) error { return b.Unlock(id) })
}

func (s *Site) SoftDeleteThread(boardName domain.BoardName, id domain.ThreadId) error {
	return s.mutate(boardName, "delete_thread", func(b *board.Board) error { return b.SoftDeleteThread(id) })
}

func (s *Site) UndeleteThread(boardName domain.BoardName, id domain.ThreadId) error {
	return s.mutate(boardName, "undelete_thread", func(b *board.Board) error { return b.UndeleteThread(id) })
}

func (s *Site) RenameThread(boardName domain.BoardName, id domain.ThreadId, name domain.ThreadName) error {
	name, err := s.input.ThreadName(name)
	if err != nil {
		return err
	}
	return s.mutate(boardName, "rename_thread", func(b *board.Board) error { return b.RenameThread(id, name) })
}

func (s *Site) PurgeThread(boardName domain.BoardName, id domain.ThreadId) error {
	return s.mutate(boardName, "purge_thread", func(b *board.Board) error { return b.PurgeThread(id) })
}

func (s *Site) SoftDeletePost(boardName domain.BoardName, id domain.PostId) error {
	return s.mutate(boardName, "delete_post", func(b *board.Board) error { return b.SoftDeletePost(id) })
}

func (s *Site) UndeletePost(boardName domain.BoardName, id domain.PostId) error {
	return s.mutate(boardName, "undelete_post", func(b *board.Board) error { return b.UndeletePost(id) })
}

// ModifyPostText may leave the text empty only while the post still carries
// an attachment, the same rule a new post follows.
func (s *Site) ModifyPostText(boardName domain.BoardName, id domain.PostId, text domain.PostText) error {
	text, err := s.input.Text(text, true)
	if err != nil {
		return err
	}
	return s.mutate(boardName, "modify_text", func(b *board.Board) error {
		post, err := b.Post(id)
		if err != nil {
			return err
		}
		if text == "" && len(post.Attachment) == 0 {
			return &internal_errors.ValidationError{Message: fmt.Sprintf("post %d needs text or an attachment", id)}
		}
		return b.ModifyPostText(id, text)
	})
}

func (s *Site) ModifyPostOwner(boardName domain.BoardName, id domain.PostId, owner domain.Owner) error {
	owner, err := s.input.Owner(owner)
	if err != nil {
		return err
	}
	return s.mutate(boardName, "modify_owner", func(b *board.Board) error { return b.ModifyPostOwner(id, owner) })
}

func (s *Site) RemovePostAttachment(boardName domain.BoardName, id domain.PostId) error {
	return s.mutate(boardName, "remove_attachment", func(b *board.Board) error { return b.RemovePostAttachment(id) })
}

func (s *Site) SetDescription(boardName domain.BoardName, description domain.Description) error {
	return s.mutate(boardName, "set_description", func(b *board.Board) error {
		b.SetDescription(description)
		return nil
	})
}

func (s *Site) Thread(boardName domain.BoardName, id domain.ThreadId) (domain.Thread, error) {
	var t domain.Thread
	err := s.query(boardName, func(b *board.Board) (err error) {
		t, err = b.Thread(id)
		return err
	})
	return t, err
}

func (s *Site) Post(boardName domain.BoardName, id domain.PostId) (domain.Post, error) {
	var p domain.Post
	err := s.query(boardName, func(b *board.Board) (err error) {
		p, err = b.Post(id)
		return err
	})
	return p, err
}

func (s *Site) Location(boardName domain.BoardName, id domain.ThreadId) (domain.QueueName, error) {
	var q domain.QueueName
	err := s.query(boardName, func(b *board.Board) (err error) {
		q, err = b.Location(id)
		return err
	})
	return q, err
}

// Queues returns active, archive and sticky ids as one consistent view.
func (s *Site) Queues(boardName domain.BoardName) (active, archive, sticky []domain.ThreadId, err error) {
	err = s.query(boardName, func(b *board.Board) error {
		active, archive, sticky = b.Active(), b.Archive(), b.Sticky()
		return nil
	})
	return active, archive, sticky, err
}

// View returns stats and queues read under one lock, so lengths always match
// the id lists.
func (s *Site) View(boardName domain.BoardName) (domain.BoardView, error) {
	var view domain.BoardView
	err := s.query(boardName, func(b *board.Board) error {
		view = domain.BoardView{
			BoardStats: b.Stats(),
			Active:     b.Active(),
			Archive:    b.Archive(),
			Sticky:     b.Sticky(),
		}
		return nil
	})
	return view, err
}

func (s *Site) Stats(boardName domain.BoardName) (domain.BoardStats, error) {
	var stats domain.BoardStats
	err := s.query(boardName, func(b *board.Board) error {
		stats = b.Stats()
		return nil
	})
	return stats, err
}

func (s *Site) AllStats() []domain.BoardStats {
	names := s.Boards()
	out := make([]domain.BoardStats, 0, len(names))
	for _, name := range names {
		if stats, err := s.Stats(name); err == nil {
			out = append(out, stats)
		}
	}
	return out
}

func (s *Site) Snapshot(boardName domain.BoardName) (domain.BoardSnapshot, error) {
	var snap domain.BoardSnapshot
	err := s.query(boardName, func(b *board.Board) error {
		snap = b.Snapshot()
		return nil
	})
	return snap, err
}
