package auth

import (
	"context"
	"errors"

	"github.com/bagiro44/baby-tracker/internal"
)

// LocalAuthProvider accepts the single caregiver token from config.
// Enough for the one-family deployment this runs as.
type LocalAuthProvider struct {
	Token  string
	logger internal.Logger
}

func NewLocalAuthProvider(token string, logger internal.Logger) *LocalAuthProvider {
	return &LocalAuthProvider{Token: token, logger: logger}
}

func (a *LocalAuthProvider) ValidateTokenLocal(token string) (*internal.User, error) {
	if token == a.Token {
		return &internal.User{ID: 1, Token: a.Token, Name: "Caregiver"}, nil
	}
	a.logger.Warnf("invalid token")
	return nil, errors.New("invalid token")
}

// ValidateTokenRemote falls back to the local check, so a single-token
// deployment without an auth service still authenticates in production.
func (a *LocalAuthProvider) ValidateTokenRemote(ctx context.Context, token string) (*internal.User, error) {
	return a.ValidateTokenLocal(token)
}
