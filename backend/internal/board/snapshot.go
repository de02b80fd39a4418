package board

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
)

// Snapshot captures the full board state. The result shares no memory with b.
func (b *Board) Snapshot() domain.BoardSnapshot {
	s := domain.BoardSnapshot{
		Name:            b.name,
		Description:     b.description,
		ActiveCapacity:  b.active.Capacity(),
		ArchiveCapacity: b.archive.Capacity(),
		Count:           b.ids.Count(),
		Active:          b.active.Items(),
		Archive:         b.archive.Items(),
		Sticky:          b.sticky.Items(),
		Posts:           b.ids.Live(),
		Threads:         make([]domain.Thread, 0, len(b.threads)),
		PostRecords:     make([]domain.Post, 0, len(b.posts)),
	}
	for _, t := range b.threads {
		s.Threads = append(s.Threads, t.Clone())
	}
	slices.SortFunc(s.Threads, func(x, y domain.Thread) int { return cmp.Compare(x.Id, y.Id) })
	for _, p := range b.posts {
		s.PostRecords = append(s.PostRecords, p.Clone())
	}
	slices.SortFunc(s.PostRecords, func(x, y domain.Post) int { return cmp.Compare(x.Id, y.Id) })
	return s
}

// FromSnapshot rebuilds a board and checks every invariant on the way.
// Any inconsistency fails with ErrInvalidSnapshot.
func FromSnapshot(s domain.BoardSnapshot, opts ...Option) (*Board, error) {
	b, err := New(s.Config(), opts...)
	if err != nil {
		return nil, invalid(s.Name, err)
	}
	if err := b.ids.restore(s.Count, s.Posts); err != nil {
		return nil, invalid(s.Name, err)
	}

	for i := range s.PostRecords {
		p := s.PostRecords[i].Clone()
		if !b.ids.Contains(p.Id) {
			return nil, invalid(s.Name, fmt.Errorf("post record %d is not live", p.Id))
		}
		if _, dup := b.posts[p.Id]; dup {
			return nil, invalid(s.Name, fmt.Errorf("post record %d repeated", p.Id))
		}
		if p.Modified.Before(p.Created) {
			return nil, invalid(s.Name, fmt.Errorf("post %d modified before created", p.Id))
		}
		b.posts[p.Id] = &p
	}
	if len(b.posts) != b.ids.Len() {
		return nil, invalid(s.Name, fmt.Errorf("%d live posts but %d post records", b.ids.Len(), len(b.posts)))
	}

	claimed := make(map[domain.PostId]domain.ThreadId, len(b.posts))
	for i := range s.Threads {
		t := s.Threads[i].Clone()
		if len(t.Children) == 0 || t.Children[0] != t.Id {
			return nil, invalid(s.Name, fmt.Errorf("thread %d does not start with its root post", t.Id))
		}
		if _, dup := b.threads[t.Id]; dup {
			return nil, invalid(s.Name, fmt.Errorf("thread %d repeated", t.Id))
		}
		for _, child := range t.Children {
			p, ok := b.posts[child]
			if !ok {
				return nil, invalid(s.Name, fmt.Errorf("thread %d references missing post %d", t.Id, child))
			}
			if owner, dup := claimed[child]; dup {
				return nil, invalid(s.Name, fmt.Errorf("post %d listed by threads %d and %d", child, owner, t.Id))
			}
			if p.ThreadId != t.Id {
				return nil, invalid(s.Name, fmt.Errorf("thread %d lists post %d of thread %d", t.Id, child, p.ThreadId))
			}
			claimed[child] = t.Id
		}
		b.threads[t.Id] = &t
	}
	// Posts of purged threads stay live unclaimed. A post whose thread still
	// exists must be one of its children.
	for id, p := range b.posts {
		if _, ok := b.threads[p.ThreadId]; ok {
			if _, ok := claimed[id]; !ok {
				return nil, invalid(s.Name, fmt.Errorf("post %d is missing from thread %d", id, p.ThreadId))
			}
		}
	}

	for _, fill := range []struct {
		queue *ThreadQueue
		ids   []domain.ThreadId
	}{{b.active, s.Active}, {b.archive, s.Archive}} {
		for _, id := range fill.ids {
			if _, ok := b.threads[id]; !ok {
				return nil, invalid(s.Name, fmt.Errorf("queued thread %d has no record", id))
			}
			if b.active.Contains(id) || b.archive.Contains(id) {
				return nil, invalid(s.Name, fmt.Errorf("thread %d queued twice", id))
			}
			if err := fill.queue.Enqueue(id); err != nil {
				return nil, invalid(s.Name, err)
			}
		}
	}
	if n := b.active.Len() + b.archive.Len(); n != len(b.threads) {
		return nil, invalid(s.Name, fmt.Errorf("%d threads but %d queued", len(b.threads), n))
	}

	for _, id := range s.Sticky {
		if !b.active.Contains(id) {
			return nil, invalid(s.Name, fmt.Errorf("sticky thread %d is not active", id))
		}
		if err := b.sticky.Add(id); err != nil {
			return nil, invalid(s.Name, err)
		}
	}
	return b, nil
}

func invalid(board domain.BoardName, err error) error {
	return fmt.Errorf("%s: %w: %w", board, internal_errors.ErrInvalidSnapshot, err)
}
