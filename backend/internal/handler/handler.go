package handler

import (
	"context"

	"github.com/itchan-dev/boardkeeper/shared/domain"
)

type BoardReader interface {
	AllStats() []domain.BoardStats
	View(board domain.BoardName) (domain.BoardView, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	boards BoardReader
	health HealthChecker
}

func New(boards BoardReader, health HealthChecker) *Handler {
	return &Handler{boards: boards, health: health}
}
