package auth

import (
	"context"
	"errors"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/storage"
)

// DBAuthProvider resolves caregiver tokens against the users table.
// The production choice when no external auth service is configured.
type DBAuthProvider struct {
	users  storage.UserRepository
	logger internal.Logger
}

func NewDBAuthProvider(users storage.UserRepository, logger internal.Logger) *DBAuthProvider {
	return &DBAuthProvider{users: users, logger: logger}
}

func (a *DBAuthProvider) ValidateTokenLocal(token string) (*internal.User, error) {
	return nil, errors.New("not implemented in DBAuthProvider")
}

func (a *DBAuthProvider) ValidateTokenRemote(ctx context.Context, token string) (*internal.User, error) {
	user, err := a.users.GetUserByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, internal.ErrNotFound) {
			a.logger.Errorf("failed to look up token: %v", err)
		}
		return nil, errors.New("invalid token")
	}
	return user, nil
}

var _ Provider = (*DBAuthProvider)(nil)
