package board

import (
	"container/list"
	"fmt"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
)

// ThreadQueue is a bounded, ordered set of thread ids.
// The front is the least recently enqueued or bumped thread, the back the most recent.
// Membership, bump and removal are O(1).
type ThreadQueue struct {
	label    string
	capacity int
	order    *list.List
	index    map[domain.ThreadId]*list.Element
}

func NewThreadQueue(label string, capacity int) (*ThreadQueue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%s: capacity %d: %w", label, capacity, internal_errors.ErrInvalidCapacity)
	}
	return &ThreadQueue{
		label:    label,
		capacity: capacity,
		order:    list.New(),
		index:    make(map[domain.ThreadId]*list.Element, capacity),
	}, nil
}

func (q *ThreadQueue) Enqueue(id domain.ThreadId) error {
	if _, ok := q.index[id]; ok {
		return fmt.Errorf("%s: thread %d: %w", q.label, id, internal_errors.ErrDuplicateThread)
	}
	if q.IsFull() {
		return fmt.Errorf("%s: %w", q.label, internal_errors.ErrQueueFull)
	}
	q.index[id] = q.order.PushBack(id)
	return nil
}

func (q *ThreadQueue) DequeueOldest() (domain.ThreadId, error) {
	front := q.order.Front()
	if front == nil {
		return 0, fmt.Errorf("%s: %w", q.label, internal_errors.ErrQueueEmpty)
	}
	id := q.order.Remove(front).(domain.ThreadId)
	delete(q.index, id)
	return id, nil
}

// Oldest returns the front of the queue without removing it.
func (q *ThreadQueue) Oldest() (domain.ThreadId, error) {
	front := q.order.Front()
	if front == nil {
		return 0, fmt.Errorf("%s: %w", q.label, internal_errors.ErrQueueEmpty)
	}
	return front.Value.(domain.ThreadId), nil
}

// Bump moves id to the most recent position. Bumping the back is a no-op.
func (q *ThreadQueue) Bump(id domain.ThreadId) error {
	el, ok := q.index[id]
	if !ok {
		return fmt.Errorf("%s: thread %d: %w", q.label, id, internal_errors.ErrThreadNotFound)
	}
	q.order.MoveToBack(el)
	return nil
}

func (q *ThreadQueue) Remove(id domain.ThreadId) error {
	el, ok := q.index[id]
	if !ok {
		return fmt.Errorf("%s: thread %d: %w", q.label, id, internal_errors.ErrThreadNotFound)
	}
	q.order.Remove(el)
	delete(q.index, id)
	return nil
}

func (q *ThreadQueue) Contains(id domain.ThreadId) bool {
	_, ok := q.index[id]
	return ok
}

func (q *ThreadQueue) Len() int      { return q.order.Len() }
func (q *ThreadQueue) Capacity() int { return q.capacity }
func (q *ThreadQueue) IsFull() bool  { return q.order.Len() >= q.capacity }

// Each calls fn from oldest to most recent until fn returns false.
func (q *ThreadQueue) Each(fn func(id domain.ThreadId) bool) {
	for el := q.order.Front(); el != nil; el = el.Next() {
		if !fn(el.Value.(domain.ThreadId)) {
			return
		}
	}
}

// Items returns the ids from oldest to most recent.
func (q *ThreadQueue) Items() []domain.ThreadId {
	ids := make([]domain.ThreadId, 0, q.order.Len())
	q.Each(func(id domain.ThreadId) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}
