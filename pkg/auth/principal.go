// Package auth verifies bearer tokens and carries the caller's identity.
//
// The verified Principal is attached to the request context by Middleware
// only at the HTTP edge. Below the handlers it is passed as an explicit
// argument, including into every outbound call, which forwards Token.
package auth

import (
	"context"
	"slices"
)

const (
	RoleUser   = "ROLE_USER"
	RoleAdmin  = "ROLE_ADMIN"
	RoleSystem = "ROLE_SYSTEM"
)

type Principal struct {
	Username string
	Roles    []string
	Token    string
}

func (p Principal) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(p.Roles, r) {
			return true
		}
	}
	return false
}

// BearerHeader is the Authorization header value forwarded to collaborators.
func (p Principal) BearerHeader() string {
	if p.Token == "" {
		return ""
	}
	return "Bearer " + p.Token
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
