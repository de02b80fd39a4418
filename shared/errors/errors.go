package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Board lifecycle errors. Callers match them with errors.Is; they are usually
// wrapped with the board, queue or id they refer to.
var (
	ErrQueueFull        = errors.New("thread queue is full")
	ErrQueueEmpty       = errors.New("thread queue is empty")
	ErrDuplicateThread  = errors.New("thread is already queued")
	ErrThreadNotFound   = errors.New("thread not found")
	ErrPostNotFound     = errors.New("post not found")
	ErrDuplicatePost    = errors.New("post id is already in use")
	ErrBoardFull        = errors.New("board is full, every active thread is sticky")
	ErrAlreadySticky    = errors.New("thread is already sticky")
	ErrThreadLocked     = errors.New("thread is locked")
	ErrThreadDeleted    = errors.New("thread is deleted")
	ErrIdSpaceExhausted = errors.New("post id space exhausted")

	ErrInvalidCapacity  = errors.New("queue capacity must be positive")
	ErrInvalidSnapshot  = errors.New("invalid board snapshot")
	ErrBoardNotFound    = errors.New("board not found")
	ErrBoardExists      = errors.New("board already exists")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation error: %s", e.Message)
}

// Check if err is instance of T for custom error types
func Is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// IsFatal reports errors that need an operator; nothing retries them.
func IsFatal(err error) bool {
	return errors.Is(err, ErrIdSpaceExhausted)
}

var kinds = []struct {
	err    error
	kind   string
	status int
}{
	{ErrQueueFull, "queue_full", http.StatusConflict},
	{ErrQueueEmpty, "queue_empty", http.StatusConflict},
	{ErrDuplicateThread, "duplicate_thread", http.StatusConflict},
	{ErrThreadNotFound, "thread_not_found", http.StatusNotFound},
	{ErrPostNotFound, "post_not_found", http.StatusNotFound},
	{ErrDuplicatePost, "duplicate_post", http.StatusInternalServerError},
	{ErrBoardFull, "board_full", http.StatusConflict},
	{ErrAlreadySticky, "already_sticky", http.StatusConflict},
	{ErrThreadLocked, "thread_locked", http.StatusForbidden},
	{ErrThreadDeleted, "thread_deleted", http.StatusGone},
	{ErrIdSpaceExhausted, "id_space_exhausted", http.StatusInsufficientStorage},
	{ErrInvalidCapacity, "invalid_capacity", http.StatusBadRequest},
	{ErrInvalidSnapshot, "invalid_snapshot", http.StatusUnprocessableEntity},
	{ErrBoardNotFound, "board_not_found", http.StatusNotFound},
	{ErrBoardExists, "board_exists", http.StatusConflict},
	{ErrSnapshotNotFound, "snapshot_not_found", http.StatusNotFound},
}

// Kind returns a stable short label for err, suitable for metric labels.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	if Is[*ValidationError](err) {
		return "validation"
	}
	return "internal"
}

// StatusCode maps err to the HTTP status the ops surface answers with.
func StatusCode(err error) int {
	var withStatus *ErrorWithStatusCode
	if errors.As(err, &withStatus) {
		return withStatus.StatusCode
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	if Is[*ValidationError](err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
