package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/itchan-dev/boardkeeper/backend/internal/board"
	"github.com/itchan-dev/boardkeeper/backend/internal/service/utils"
	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockMetrics struct {
	mu        sync.Mutex
	evicted   []domain.ThreadId
	promoted  []domain.ThreadId
	dropped   []domain.ThreadId
	created   map[domain.BoardName]int
	replied   map[domain.BoardName]int
	failures  []string // board/op/kind
	occupancy map[domain.BoardName]domain.BoardStats
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		created:   make(map[domain.BoardName]int),
		replied:   make(map[domain.BoardName]int),
		occupancy: make(map[domain.BoardName]domain.BoardStats),
	}
}

func (m *MockMetrics) ThreadEvicted(_ domain.BoardName, id domain.ThreadId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evicted = append(m.evicted, id)
}

func (m *MockMetrics) ThreadPromoted(_ domain.BoardName, id domain.ThreadId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promoted = append(m.promoted, id)
}

func (m *MockMetrics) ThreadDropped(_ domain.BoardName, id domain.ThreadId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, id)
}

func (m *MockMetrics) ThreadCreated(b domain.BoardName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created[b]++
}

func (m *MockMetrics) Replied(b domain.BoardName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replied[b]++
}

func (m *MockMetrics) OpFailed(b domain.BoardName, op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, fmt.Sprintf("%s/%s/%s", b, op, internal_errors.Kind(err)))
}

func (m *MockMetrics) SetOccupancy(stats domain.BoardStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occupancy[stats.Name] = stats
}

// --- Helpers ---

var testLimits = utils.Limits{MaxNameLength: 50, MaxOwnerLength: 20, MaxTextLength: 200, MaxAttachmentSize: 64}

func newTestSite(t *testing.T, metrics *MockMetrics, boards ...domain.BoardConfig) *Site {
	t.Helper()
	opts := SiteOptions{Limits: testLimits}
	if metrics != nil {
		opts.Metrics = metrics
	}
	s := NewSite(opts)
	for _, cfg := range boards {
		require.NoError(t, s.OpenBoard(cfg))
	}
	return s
}

func boardConfig(name string, active, archive int) domain.BoardConfig {
	return domain.BoardConfig{Name: name, Description: name + " board", ActiveCapacity: active, ArchiveCapacity: archive}
}

// --- Tests ---

func TestSiteBoards(t *testing.T) {
	s := newTestSite(t, nil, boardConfig("b", 2, 2), boardConfig("α", 2, 2))
	assert.Equal(t, []domain.BoardName{"b", "α"}, s.Boards())

	t.Run("duplicate board", func(t *testing.T) {
		err := s.OpenBoard(boardConfig("b", 1, 1))
		assert.ErrorIs(t, err, internal_errors.ErrBoardExists)

		b, err := board.New(boardConfig("α", 1, 1))
		require.NoError(t, err)
		assert.ErrorIs(t, s.AddBoard(b), internal_errors.ErrBoardExists)
	})

	t.Run("invalid capacity", func(t *testing.T) {
		err := s.OpenBoard(boardConfig("z", 0, 1))
		assert.ErrorIs(t, err, internal_errors.ErrInvalidCapacity)
		assert.Len(t, s.Boards(), 2)
	})

	t.Run("unknown board", func(t *testing.T) {
		_, err := s.CreateThread("nope", "t", "anon", "text", nil)
		assert.ErrorIs(t, err, internal_errors.ErrBoardNotFound)
		_, err = s.Stats("nope")
		assert.ErrorIs(t, err, internal_errors.ErrBoardNotFound)
		assert.Equal(t, 404, internal_errors.StatusCode(err))
	})

	t.Run("all stats in order", func(t *testing.T) {
		stats := s.AllStats()
		require.Len(t, stats, 2)
		assert.Equal(t, "b", stats[0].Name)
		assert.Equal(t, "α", stats[1].Name)
		assert.Equal(t, "α board", stats[1].Description)
	})
}

func TestSiteThreadLifecycle(t *testing.T) {
	metrics := NewMockMetrics()
	s := newTestSite(t, metrics, boardConfig("b", 2, 1))

	a, err := s.CreateThread("b", "<b>first</b>", "<i>anon</i>", "hello <script>x</script>", nil)
	require.NoError(t, err)
	thread, err := s.Thread("b", a)
	require.NoError(t, err)
	assert.Equal(t, "first", thread.Name)
	post, err := s.Post("b", a)
	require.NoError(t, err)
	assert.Equal(t, "anon", post.Owner)
	assert.Equal(t, "hello", post.Text)

	bb, err := s.CreateThread("b", "second", "anon", "text", nil)
	require.NoError(t, err)
	c, err := s.CreateThread("b", "third", "anon", "text", nil)
	require.NoError(t, err)

	loc, err := s.Location("b", a)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueArchive, loc)

	_, err = s.Reply("b", a, "anon", "bump", nil)
	require.NoError(t, err)

	active, archive, sticky, err := s.Queues("b")
	require.NoError(t, err)
	assert.Equal(t, []domain.ThreadId{c, a}, active)
	assert.Equal(t, []domain.ThreadId{bb}, archive)
	assert.Empty(t, sticky)

	assert.Equal(t, []domain.ThreadId{a, bb}, metrics.evicted)
	assert.Equal(t, []domain.ThreadId{a}, metrics.promoted)
	assert.Equal(t, 3, metrics.created["b"])
	assert.Equal(t, 1, metrics.replied["b"])
	assert.Equal(t, 2, metrics.occupancy["b"].ActiveLen)
	assert.Equal(t, 1, metrics.occupancy["b"].ArchiveLen)

	require.NoError(t, s.Pin("b", c))
	require.NoError(t, s.Lock("b", c))
	_, err = s.Reply("b", c, "anon", "locked?", nil)
	assert.ErrorIs(t, err, internal_errors.ErrThreadLocked)
	assert.Equal(t, []string{"b/reply/thread_locked"}, metrics.failures)
	require.NoError(t, s.Unlock("b", c))
	require.NoError(t, s.Unpin("b", c))

	require.NoError(t, s.RenameThread("b", c, "renamed"))
	require.NoError(t, s.SoftDeleteThread("b", c))
	require.NoError(t, s.UndeleteThread("b", c))
	require.NoError(t, s.PurgeThread("b", c))
	_, err = s.Thread("b", c)
	assert.ErrorIs(t, err, internal_errors.ErrThreadNotFound)

	require.NoError(t, s.SetDescription("b", "new description"))
	stats, err := s.Stats("b")
	require.NoError(t, err)
	assert.Equal(t, "new description", stats.Description)
}

func TestSitePostEdits(t *testing.T) {
	s := newTestSite(t, nil, boardConfig("b", 2, 2))
	a, err := s.CreateThread("b", "t", "anon", "text", []byte("file"))
	require.NoError(t, err)

	require.NoError(t, s.ModifyPostText("b", a, "<p>edited</p>"))
	require.NoError(t, s.ModifyPostOwner("b", a, "mod"))
	require.NoError(t, s.RemovePostAttachment("b", a))
	require.NoError(t, s.SoftDeletePost("b", a))

	post, err := s.Post("b", a)
	require.NoError(t, err)
	assert.Equal(t, "edited", post.Text)
	assert.Equal(t, "mod", post.Owner)
	assert.Nil(t, post.Attachment)
	assert.True(t, post.Deleted)

	require.NoError(t, s.UndeletePost("b", a))
	assert.ErrorIs(t, s.ModifyPostText("b", 99, "x"), internal_errors.ErrPostNotFound)
	err = s.ModifyPostText("b", a, "")
	assert.True(t, internal_errors.Is[*internal_errors.ValidationError](err))
}

func TestSiteModifyPostTextFollowsAttachment(t *testing.T) {
	s := newTestSite(t, nil, boardConfig("b", 2, 2))
	withFile, err := s.CreateThread("b", "t", "anon", "", []byte("file"))
	require.NoError(t, err)
	plain, err := s.Reply("b", withFile, "anon", "words", nil)
	require.NoError(t, err)

	require.NoError(t, s.ModifyPostText("b", withFile, "caption"))
	require.NoError(t, s.ModifyPostText("b", withFile, "  "), "attachment alone is enough")
	post, err := s.Post("b", withFile)
	require.NoError(t, err)
	assert.Empty(t, post.Text)

	err = s.ModifyPostText("b", plain, "<b></b>")
	assert.True(t, internal_errors.Is[*internal_errors.ValidationError](err))
	post, err = s.Post("b", plain)
	require.NoError(t, err)
	assert.Equal(t, "words", post.Text, "rejected edit leaves the post alone")

	err = s.ModifyPostText("b", withFile, strings.Repeat("a", testLimits.MaxTextLength+1))
	assert.True(t, internal_errors.Is[*internal_errors.ValidationError](err))
}

func TestSiteViewIsConsistent(t *testing.T) {
	s := newTestSite(t, nil, boardConfig("b", 3, 2))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 200 {
			id, err := s.CreateThread("b", "t", "anon", "text", nil)
			if err != nil {
				return
			}
			_ = s.Pin("b", id)
			_ = s.Unpin("b", id)
		}
	}()

	for {
		view, err := s.View("b")
		require.NoError(t, err)
		assert.Len(t, view.Active, view.ActiveLen)
		assert.Len(t, view.Archive, view.ArchiveLen)
		assert.Len(t, view.Sticky, view.StickyLen)
		select {
		case <-done:
			return
		default:
		}
	}
}

func TestSiteValidationDoesNotTouchBoard(t *testing.T) {
	metrics := NewMockMetrics()
	s := newTestSite(t, metrics, boardConfig("b", 2, 2))

	_, err := s.CreateThread("b", "t", "anon", "", nil)
	require.Error(t, err)
	assert.True(t, internal_errors.Is[*internal_errors.ValidationError](err))
	assert.Equal(t, "validation", internal_errors.Kind(err))

	_, err = s.CreateThread("b", "t", "anon", "text", make([]byte, 65))
	require.Error(t, err)

	stats, err := s.Stats("b")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.Count)
	assert.Empty(t, metrics.failures, "rejected input never reaches the board")
}

func TestSiteConcurrentReplies(t *testing.T) {
	s := newTestSite(t, nil, boardConfig("b", 4, 4), boardConfig("g", 4, 4))
	root, err := s.CreateThread("b", "busy", "anon", "op", nil)
	require.NoError(t, err)

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	ids := make(chan domain.PostId, workers*perWorker)
	errs := make(chan error, workers*perWorker*2)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				id, err := s.Reply("b", root, "anon", "reply", nil)
				if err != nil {
					errs <- err
					continue
				}
				ids <- id
				// other board proceeds independently
				if _, err := s.CreateThread("g", "t", "anon", "text", nil); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	seen := make(map[domain.PostId]bool)
	for id := range ids {
		assert.False(t, seen[id], "post id %d issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)

	thread, err := s.Thread("b", root)
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, thread.NumReplies())

	stats, err := s.Stats("g")
	require.NoError(t, err)
	assert.Equal(t, uint64(workers*perWorker), stats.Count)
	assert.Equal(t, 4, stats.ActiveLen)
	assert.Equal(t, 4, stats.ArchiveLen)
}

func TestSiteFatalErrorIsReported(t *testing.T) {
	metrics := NewMockMetrics()
	s := newTestSite(t, metrics, boardConfig("b", 2, 2))
	exhausted := fmt.Errorf("b: %w", internal_errors.ErrIdSpaceExhausted)

	err := s.mutate("b", "create_thread", func(*board.Board) error { return exhausted })
	assert.True(t, errors.Is(err, internal_errors.ErrIdSpaceExhausted))
	assert.Equal(t, []string{"b/create_thread/id_space_exhausted"}, metrics.failures)
}
