package auth

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity é o usuário autenticado da requisição.
type Identity struct {
	UserID string
	Email  string
}

// DisplayName é a parte local do e-mail, ou o id quando não há e-mail.
func (i Identity) DisplayName() string {
	if local, _, ok := strings.Cut(i.Email, "@"); ok && local != "" {
		return local
	}
	if i.Email != "" {
		return i.Email
	}
	return i.UserID
}

type contextKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(Identity)
	return identity, ok && identity.UserID != ""
}

// Verifier valida um bearer token.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
