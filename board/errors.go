// ABOUTME: Sentinel errors and typed error structs for local mutation preconditions.
// ABOUTME: These are always detected before any network call and never retried.
package board

import (
	"errors"
	"fmt"
)

var (
	// ErrBoardClosed indicates a mutation was attempted on a closed board.
	ErrBoardClosed = errors.New("board is closed")

	// ErrCardQuotaExceeded indicates the user's card limit is exhausted.
	ErrCardQuotaExceeded = errors.New("card quota exceeded")

	// ErrReactionQuotaExceeded indicates the user's reaction limit is exhausted.
	ErrReactionQuotaExceeded = errors.New("reaction quota exceeded")

	// ErrNoBoard indicates the cache holds no board for the active session.
	ErrNoBoard = errors.New("no board loaded")

	// ErrNotLinked indicates an unlink was attempted on a card with no parent.
	ErrNotLinked = errors.New("card has no parent")

	// ErrNotAdmin indicates a board-metadata mutation by a non-admin user.
	ErrNotAdmin = errors.New("user is not a board admin")
)

// CardNotFoundError indicates the referenced card doesn't exist in the cache.
type CardNotFoundError struct {
	CardID string
}

func (e *CardNotFoundError) Error() string {
	return fmt.Sprintf("card not found: %s", e.CardID)
}

// InvalidContentError indicates card text that is empty after trimming or
// over the maximum length.
type InvalidContentError struct {
	Reason string
}

func (e *InvalidContentError) Error() string {
	return fmt.Sprintf("invalid content: %s", e.Reason)
}

// DropRejectedError wraps a validator rejection so callers can surface the
// reason for a refused drag-and-drop.
type DropRejectedError struct {
	Reason DropReason
	Detail string
}

func (e *DropRejectedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("drop rejected: %s (%s)", e.Reason, e.Detail)
	}
	return fmt.Sprintf("drop rejected: %s", e.Reason)
}
