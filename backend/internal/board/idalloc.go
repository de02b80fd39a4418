package board

import (
	"fmt"
	"math"
	"slices"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
)

// IdAllocator hands out post ids for one board and tracks which are live.
// Ids start at 1 and are never reused, even after release.
type IdAllocator struct {
	count uint64
	live  map[domain.PostId]struct{}
}

func NewIdAllocator() *IdAllocator {
	return &IdAllocator{live: make(map[domain.PostId]struct{})}
}

// CanAllocate reports whether Allocate would succeed, without side effects.
func (a *IdAllocator) CanAllocate() error {
	if a.count == math.MaxUint64 {
		return fmt.Errorf("count %d: %w", a.count, internal_errors.ErrIdSpaceExhausted)
	}
	return nil
}

// Allocate returns count+1 and advances count.
func (a *IdAllocator) Allocate() (domain.PostId, error) {
	if err := a.CanAllocate(); err != nil {
		return 0, err
	}
	a.count++
	return a.count, nil
}

// Issue allocates the next id and marks it live, or changes nothing.
func (a *IdAllocator) Issue() (domain.PostId, error) {
	if err := a.CanAllocate(); err != nil {
		return 0, err
	}
	if a.Contains(a.count + 1) {
		return 0, fmt.Errorf("post %d: %w", a.count+1, internal_errors.ErrDuplicatePost)
	}
	id, _ := a.Allocate()
	a.live[id] = struct{}{}
	return id, nil
}

func (a *IdAllocator) MarkUsed(id domain.PostId) error {
	if _, ok := a.live[id]; ok {
		return fmt.Errorf("post %d: %w", id, internal_errors.ErrDuplicatePost)
	}
	a.live[id] = struct{}{}
	return nil
}

func (a *IdAllocator) Release(id domain.PostId) error {
	if _, ok := a.live[id]; !ok {
		return fmt.Errorf("post %d: %w", id, internal_errors.ErrPostNotFound)
	}
	delete(a.live, id)
	return nil
}

func (a *IdAllocator) Contains(id domain.PostId) bool {
	_, ok := a.live[id]
	return ok
}

func (a *IdAllocator) Count() uint64 {
	return a.count
}

func (a *IdAllocator) Len() int {
	return len(a.live)
}

// Live returns the live ids in ascending order.
func (a *IdAllocator) Live() []domain.PostId {
	ids := make([]domain.PostId, 0, len(a.live))
	for id := range a.live {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Reset forgets every id and restarts numbering. Only for deliberate wipes.
func (a *IdAllocator) Reset() {
	a.count = 0
	a.live = make(map[domain.PostId]struct{})
}

// restore rebuilds allocator state from persisted values.
func (a *IdAllocator) restore(count uint64, live []domain.PostId) error {
	a.Reset()
	a.count = count
	for _, id := range live {
		if id == 0 || id > count {
			return fmt.Errorf("post %d outside issued range [1, %d]", id, count)
		}
		if err := a.MarkUsed(id); err != nil {
			return err
		}
	}
	return nil
}
