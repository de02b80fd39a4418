// Package board implements the thread lifecycle of a single board: bounded
// active and archive queues, sticky threads, eviction and promotion, and post
// id allocation.
//
// A Board is not safe for concurrent use. Callers serialize access, see
// service.Site.
package board

import (
	"fmt"
	"time"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
)

// Observer is notified about queue transitions the caller did not ask for
// directly. Calls happen synchronously, inside the board operation.
type Observer interface {
	ThreadEvicted(board domain.BoardName, id domain.ThreadId)
	ThreadPromoted(board domain.BoardName, id domain.ThreadId)
	ThreadDropped(board domain.BoardName, id domain.ThreadId)
}

type noopObserver struct{}

func (noopObserver) ThreadEvicted(domain.BoardName, domain.ThreadId)  {}
func (noopObserver) ThreadPromoted(domain.BoardName, domain.ThreadId) {}
func (noopObserver) ThreadDropped(domain.BoardName, domain.ThreadId)  {}

type Option func(*Board)

func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

func WithObserver(o Observer) Option {
	return func(b *Board) {
		if o != nil {
			b.observer = o
		}
	}
}

// WithReplyToDeleted lets replies land in soft-deleted threads.
func WithReplyToDeleted(allow bool) Option {
	return func(b *Board) { b.replyToDeleted = allow }
}

type Board struct {
	name        domain.BoardName
	description domain.Description

	ids     *IdAllocator
	active  *ThreadQueue
	archive *ThreadQueue
	sticky  *StickySet
	threads map[domain.ThreadId]*domain.Thread
	posts   map[domain.PostId]*domain.Post

	replyToDeleted bool
	now            func() time.Time
	observer       Observer
}

func New(cfg domain.BoardConfig, opts ...Option) (*Board, error) {
	active, err := NewThreadQueue(cfg.Name+" "+domain.QueueActive, cfg.ActiveCapacity)
	if err != nil {
		return nil, err
	}
	archive, err := NewThreadQueue(cfg.Name+" "+domain.QueueArchive, cfg.ArchiveCapacity)
	if err != nil {
		return nil, err
	}

	b := &Board{
		name:        cfg.Name,
		description: cfg.Description,
		ids:         NewIdAllocator(),
		active:      active,
		archive:     archive,
		sticky:      NewStickySet(),
		threads:     make(map[domain.ThreadId]*domain.Thread),
		posts:       make(map[domain.PostId]*domain.Post),
		now:         time.Now,
		observer:    noopObserver{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// CreateThread opens a thread whose id is its root post id and puts it at the
// back of the active queue, evicting the oldest non-sticky thread if needed.
func (b *Board) CreateThread(name domain.ThreadName, owner domain.Owner, text domain.PostText, attachment domain.Attachment) (domain.ThreadId, error) {
	plan, err := b.planRoom(false)
	if err != nil {
		return 0, err
	}
	id, err := b.ids.Issue()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", b.name, err)
	}

	// No failure is expected past this point.
	if err := b.applyRoom(plan); err != nil {
		return 0, b.broken(err)
	}
	thread := domain.NewThread(name, id)
	post := domain.NewPost(id, id, owner, text, attachment, b.now())
	b.threads[id] = &thread
	b.posts[id] = &post
	if err := b.active.Enqueue(id); err != nil {
		return 0, b.broken(err)
	}
	return id, nil
}

// Reply appends a post to a thread and bumps it. Archived threads are
// promoted back into the active queue.
func (b *Board) Reply(threadId domain.ThreadId, owner domain.Owner, text domain.PostText, attachment domain.Attachment) (domain.PostId, error) {
	thread, err := b.thread(threadId)
	if err != nil {
		return 0, err
	}
	if thread.Locked {
		return 0, fmt.Errorf("%s: thread %d: %w", b.name, threadId, internal_errors.ErrThreadLocked)
	}
	if thread.Deleted && !b.replyToDeleted {
		return 0, fmt.Errorf("%s: thread %d: %w", b.name, threadId, internal_errors.ErrThreadDeleted)
	}

	archived := b.archive.Contains(threadId)
	var plan roomPlan
	if archived {
		if plan, err = b.planRoom(true); err != nil {
			return 0, err
		}
	} else if !b.active.Contains(threadId) {
		return 0, b.broken(fmt.Errorf("thread %d is indexed but not queued", threadId))
	}

	id, err := b.ids.Issue()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", b.name, err)
	}

	if archived {
		err = b.promote(threadId, plan)
	} else {
		err = b.active.Bump(threadId)
	}
	if err != nil {
		return 0, b.broken(err)
	}
	post := domain.NewPost(id, threadId, owner, text, attachment, b.now())
	b.posts[id] = &post
	thread.AddChild(id)
	return id, nil
}

func (b *Board) Pin(id domain.ThreadId) error {
	if !b.active.Contains(id) {
		return fmt.Errorf("%s: active thread %d: %w", b.name, id, internal_errors.ErrThreadNotFound)
	}
	if err := b.sticky.Add(id); err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	return nil
}

func (b *Board) Unpin(id domain.ThreadId) error {
	if err := b.sticky.Remove(id); err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	return nil
}

func (b *Board) Lock(id domain.ThreadId) error {
	return b.withThread(id, (*domain.Thread).Lock)
}

func (b *Board) Unlock(id domain.ThreadId) error {
	return b.withThread(id, (*domain.Thread).Unlock)
}

func (b *Board) SoftDeleteThread(id domain.ThreadId) error {
	return b.withThread(id, (*domain.Thread).Delete)
}

func (b *Board) UndeleteThread(id domain.ThreadId) error {
	return b.withThread(id, (*domain.Thread).Undelete)
}

func (b *Board) RenameThread(id domain.ThreadId, name domain.ThreadName) error {
	return b.withThread(id, func(t *domain.Thread) { t.Rename(name) })
}

func (b *Board) SoftDeletePost(id domain.PostId) error {
	return b.withPost(id, (*domain.Post).Delete)
}

func (b *Board) UndeletePost(id domain.PostId) error {
	return b.withPost(id, (*domain.Post).Undelete)
}

func (b *Board) ModifyPostText(id domain.PostId, text domain.PostText) error {
	return b.withPost(id, func(p *domain.Post, now time.Time) { p.ModifyText(now, text) })
}

func (b *Board) ModifyPostOwner(id domain.PostId, owner domain.Owner) error {
	return b.withPost(id, func(p *domain.Post, now time.Time) { p.ModifyOwner(now, owner) })
}

func (b *Board) RemovePostAttachment(id domain.PostId) error {
	return b.withPost(id, (*domain.Post).RemoveAttachment)
}

// PurgeThread removes a thread from its queue, the sticky set and the thread
// index. Its posts stay in the board for audit.
func (b *Board) PurgeThread(id domain.ThreadId) error {
	if _, err := b.thread(id); err != nil {
		return err
	}
	switch {
	case b.active.Contains(id):
		if err := b.active.Remove(id); err != nil {
			return b.broken(err)
		}
	case b.archive.Contains(id):
		if err := b.archive.Remove(id); err != nil {
			return b.broken(err)
		}
	}
	if b.sticky.Contains(id) {
		if err := b.sticky.Remove(id); err != nil {
			return b.broken(err)
		}
	}
	delete(b.threads, id)
	return nil
}

func (b *Board) SetDescription(description domain.Description) {
	b.description = description
}

// Queries. Records are returned as copies.

func (b *Board) Name() domain.BoardName          { return b.name }
func (b *Board) Description() domain.Description { return b.description }
func (b *Board) Count() uint64                   { return b.ids.Count() }
func (b *Board) ContainsPost(id domain.PostId) bool {
	return b.ids.Contains(id)
}

func (b *Board) Thread(id domain.ThreadId) (domain.Thread, error) {
	t, err := b.thread(id)
	if err != nil {
		return domain.Thread{}, err
	}
	return t.Clone(), nil
}

func (b *Board) Post(id domain.PostId) (domain.Post, error) {
	p, err := b.post(id)
	if err != nil {
		return domain.Post{}, err
	}
	return p.Clone(), nil
}

// Location reports which queue holds the thread.
func (b *Board) Location(id domain.ThreadId) (domain.QueueName, error) {
	switch {
	case b.active.Contains(id):
		return domain.QueueActive, nil
	case b.archive.Contains(id):
		return domain.QueueArchive, nil
	}
	return "", fmt.Errorf("%s: thread %d: %w", b.name, id, internal_errors.ErrThreadNotFound)
}

func (b *Board) Active() []domain.ThreadId  { return b.active.Items() }
func (b *Board) Archive() []domain.ThreadId { return b.archive.Items() }
func (b *Board) Sticky() []domain.ThreadId  { return b.sticky.Items() }

func (b *Board) IsSticky(id domain.ThreadId) bool {
	return b.sticky.Contains(id)
}

func (b *Board) Stats() domain.BoardStats {
	return domain.BoardStats{
		Name:            b.name,
		Description:     b.description,
		ActiveLen:       b.active.Len(),
		ActiveCapacity:  b.active.Capacity(),
		ArchiveLen:      b.archive.Len(),
		ArchiveCapacity: b.archive.Capacity(),
		StickyLen:       b.sticky.Len(),
		LivePosts:       b.ids.Len(),
		Count:           b.ids.Count(),
	}
}

func (b *Board) thread(id domain.ThreadId) (*domain.Thread, error) {
	t, ok := b.threads[id]
	if !ok {
		return nil, fmt.Errorf("%s: thread %d: %w", b.name, id, internal_errors.ErrThreadNotFound)
	}
	return t, nil
}

func (b *Board) post(id domain.PostId) (*domain.Post, error) {
	p, ok := b.posts[id]
	if !ok {
		return nil, fmt.Errorf("%s: post %d: %w", b.name, id, internal_errors.ErrPostNotFound)
	}
	return p, nil
}

func (b *Board) withThread(id domain.ThreadId, fn func(*domain.Thread)) error {
	t, err := b.thread(id)
	if err != nil {
		return err
	}
	fn(t)
	return nil
}

func (b *Board) withPost(id domain.PostId, fn func(*domain.Post, time.Time)) error {
	p, err := b.post(id)
	if err != nil {
		return err
	}
	fn(p, b.now())
	return nil
}

// broken marks a failure after mutation started. Reaching it means an
// invariant was already violated before the call.
func (b *Board) broken(err error) error {
	return fmt.Errorf("%s: board invariant violated: %w", b.name, err)
}
