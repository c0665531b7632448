package stores

import (
	"context"
	"fmt"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/data/db"
)

// UserStore implements okr.UserStore using SQLite.
type UserStore struct {
	db *db.DB
}

var _ okr.UserStore = (*UserStore)(nil)

// NewUserStore creates a new SQLite-backed user store.
func NewUserStore(db *db.DB) *UserStore {
	return &UserStore{db: db}
}

// ListUsers returns all users ordered by name.
func (s *UserStore) ListUsers(ctx context.Context) ([]okr.User, error) {
	rows, err := s.db.Queries().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]okr.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, rowToUser(row))
	}
	return users, nil
}

// GetUser returns a user by ID.
func (s *UserStore) GetUser(ctx context.Context, id string) (okr.User, error) {
	row, err := s.db.Queries().GetUser(ctx, id)
	if IsNotFoundError(err) {
		return okr.User{}, fmt.Errorf("user %s: %w", id, okr.ErrNotFound)
	}
	if err != nil {
		return okr.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return rowToUser(row), nil
}

// SaveUser creates or updates a user. Usernames are unique.
func (s *UserStore) SaveUser(ctx context.Context, u okr.User) error {
	if err := s.db.Queries().UpsertUser(ctx, userToRow(u)); err != nil {
		if IsUniqueConstraintError(err) {
			return fmt.Errorf("%w: username %q is taken", okr.ErrInvalid, u.Username)
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
