package auth

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

const RoleAdmin = "admin"

// Principal is the caller resolved from a bearer access token
type Principal struct {
	UserID   int64
	Username string
	Role     string
}

func (p *Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by WithPrincipal
func PrincipalFrom(ctx context.Context) (*Principal, error) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	if !ok || p == nil {
		return nil, ErrUnauthorized
	}
	return p, nil
}

func RequireAdmin(ctx context.Context) error {
	p, err := PrincipalFrom(ctx)
	if err != nil {
		return err
	}
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
