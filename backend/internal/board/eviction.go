package board

import (
	"fmt"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
)

// roomPlan is the pre-validated set of moves that frees one active slot.
type roomPlan struct {
	evict  bool
	victim domain.ThreadId
	drop   bool
	doomed domain.ThreadId
}

// planRoom decides how to free an active slot without touching any state.
// promoting is set when the thread taking the slot leaves the archive first,
// which guarantees the victim an archive slot.
func (b *Board) planRoom(promoting bool) (roomPlan, error) {
	var plan roomPlan
	if !b.active.IsFull() {
		return plan, nil
	}

	victim, ok := b.oldestEvictable()
	if !ok {
		return plan, fmt.Errorf("%s: %w", b.name, internal_errors.ErrBoardFull)
	}
	plan.evict, plan.victim = true, victim

	if !promoting && b.archive.IsFull() {
		doomed, err := b.archive.Oldest()
		if err != nil {
			return plan, b.broken(err)
		}
		plan.drop, plan.doomed = true, doomed
	}
	return plan, nil
}

// oldestEvictable scans active from the front, skipping sticky threads.
func (b *Board) oldestEvictable() (domain.ThreadId, bool) {
	var victim domain.ThreadId
	found := false
	b.active.Each(func(id domain.ThreadId) bool {
		if b.sticky.Contains(id) {
			return true
		}
		victim, found = id, true
		return false
	})
	return victim, found
}

func (b *Board) applyRoom(plan roomPlan) error {
	if plan.drop {
		doomed, err := b.archive.DequeueOldest()
		if err != nil {
			return err
		}
		if doomed != plan.doomed {
			return fmt.Errorf("archive head moved from %d to %d", plan.doomed, doomed)
		}
		b.dropThread(doomed)
	}
	if plan.evict {
		if err := b.active.Remove(plan.victim); err != nil {
			return err
		}
		if err := b.archive.Enqueue(plan.victim); err != nil {
			return err
		}
		b.observer.ThreadEvicted(b.name, plan.victim)
	}
	return nil
}

// promote moves an archived thread to the back of active.
func (b *Board) promote(id domain.ThreadId, plan roomPlan) error {
	if err := b.archive.Remove(id); err != nil {
		return err
	}
	if err := b.applyRoom(plan); err != nil {
		return err
	}
	if err := b.active.Enqueue(id); err != nil {
		return err
	}
	b.observer.ThreadPromoted(b.name, id)
	return nil
}

// dropThread hard-deletes a thread pushed out of the archive, together with
// its posts. The thread is already out of both queues.
func (b *Board) dropThread(id domain.ThreadId) {
	if t, ok := b.threads[id]; ok {
		for _, child := range t.Children {
			_ = b.ids.Release(child)
			delete(b.posts, child)
		}
		delete(b.threads, id)
	}
	b.observer.ThreadDropped(b.name, id)
}
