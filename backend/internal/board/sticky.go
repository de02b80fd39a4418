package board

import (
	"fmt"
	"slices"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
)

// StickySet holds the pinned threads of the active queue.
// Board keeps it a subset of the active members.
type StickySet struct {
	members map[domain.ThreadId]struct{}
}

func NewStickySet() *StickySet {
	return &StickySet{members: make(map[domain.ThreadId]struct{})}
}

func (s *StickySet) Add(id domain.ThreadId) error {
	if _, ok := s.members[id]; ok {
		return fmt.Errorf("thread %d: %w", id, internal_errors.ErrAlreadySticky)
	}
	s.members[id] = struct{}{}
	return nil
}

func (s *StickySet) Remove(id domain.ThreadId) error {
	if _, ok := s.members[id]; !ok {
		return fmt.Errorf("sticky thread %d: %w", id, internal_errors.ErrThreadNotFound)
	}
	delete(s.members, id)
	return nil
}

func (s *StickySet) Contains(id domain.ThreadId) bool {
	_, ok := s.members[id]
	return ok
}

func (s *StickySet) Len() int {
	return len(s.members)
}

func (s *StickySet) Items() []domain.ThreadId {
	ids := make([]domain.ThreadId, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
