package okr

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when an objective, key result or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned when an entity fails validation.
	ErrInvalid = errors.New("invalid")
	// ErrArchived is returned when a check-in targets an archived key result.
	ErrArchived = errors.New("key result is archived")
)

// Store persists objectives together with their key results, check-ins and
// comments.
type Store interface {
	// ListObjectives returns every objective with its full key result graph,
	// in the order they were first saved.
	ListObjectives(ctx context.Context) ([]Objective, error)

	// GetObjective returns one objective with its full key result graph.
	// Returns ErrNotFound if it does not exist.
	GetObjective(ctx context.Context, id string) (Objective, error)

	// SaveObjective inserts or updates the objective row. Key results are
	// saved separately.
	SaveObjective(ctx context.Context, o Objective) error

	// ImportObjective saves the objective with its key results, check-ins and
	// comments in one transaction. Check-ins and comments whose IDs are
	// already stored are skipped.
	ImportObjective(ctx context.Context, o Objective) error

	// DeleteObjective removes the objective and everything under it.
	// Returns ErrNotFound if it does not exist.
	DeleteObjective(ctx context.Context, id string) error

	// SaveKeyResult inserts or updates a key result row. Check-ins and
	// comments are append-only and saved separately.
	SaveKeyResult(ctx context.Context, kr KeyResult) error

	// DeleteKeyResult removes a key result with its history.
	// Returns ErrNotFound if it does not exist.
	DeleteKeyResult(ctx context.Context, id string) error

	// AppendCheckIn records a check-in and persists the key result's new
	// current value and status in the same transaction.
	AppendCheckIn(ctx context.Context, kr KeyResult, c CheckIn) error

	// AddComment records a comment on a key result.
	AddComment(ctx context.Context, keyResultID string, c Comment) error
}

// UserStore persists users.
type UserStore interface {
	ListUsers(ctx context.Context) ([]User, error)

	// GetUser returns ErrNotFound if the user does not exist.
	GetUser(ctx context.Context, id string) (User, error)

	SaveUser(ctx context.Context, u User) error
}
