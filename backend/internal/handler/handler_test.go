package handler

import (
	"context"
	"sync"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
)

// --- Mocks ---

type MockHealthChecker struct {
	PingFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil // Default: healthy
}

type MockBoardReader struct {
	mu        sync.Mutex
	viewCalls []domain.BoardName

	AllStatsFunc func() []domain.BoardStats
	ViewFunc     func(board domain.BoardName) (domain.BoardView, error)
}

func (m *MockBoardReader) AllStats() []domain.BoardStats {
	if m.AllStatsFunc != nil {
		return m.AllStatsFunc()
	}
	return nil
}

func (m *MockBoardReader) View(board domain.BoardName) (domain.BoardView, error) {
	m.mu.Lock()
	m.viewCalls = append(m.viewCalls, board)
	m.mu.Unlock()
	if m.ViewFunc != nil {
		return m.ViewFunc(board)
	}
	return domain.BoardView{}, internal_errors.ErrBoardNotFound
}
