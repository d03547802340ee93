// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

/*
Package identity resolves bearer tokens into live, verified principals.

Token claims alone are never trusted for authorization: the resolver
cross-checks them against current account, institution, and role-assignment
state so that deactivating a user or suspending an institution takes effect
on the very next request, not at token expiry.
*/
package identity

import (
	"context"

	"github.com/scholaris/scholaris/internal/platform/sec"
)

// Identity is the verified principal attached to an authenticated request.
type Identity struct {
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	InstitutionID string       `json:"institution_id"`
	RoleID        string       `json:"role_id"`
	RoleName      sec.RoleName `json:"role_name"`
	IsActive      bool         `json:"is_active"`
}

// AuthState is the current persisted state of a principal, joined across
// account, institution, and role assignment. It is loaded once per request
// by the resolver.
type AuthState struct {
	ID                string
	Email             string
	InstitutionID     string
	IsActive          bool
	InstitutionActive bool

	// Active role assignment: the one marked primary, or, failing the
	// data invariant, the oldest assignment by creation time. HasRole is
	// false when the principal has no assignments at all.
	HasRole  bool
	RoleID   string
	RoleName sec.RoleName
}

// StateSource loads the authentication state for a principal.
//
// Implementations must return [apperr.NotFound]-classified errors for
// unknown principals; the resolver collapses those into a generic
// unauthorized failure to avoid account enumeration.
type StateSource interface {
	AuthState(ctx context.Context, userID string) (*AuthState, error)
}

// TokenVerifier verifies access tokens. Satisfied by [*sec.TokenService].
type TokenVerifier interface {
	VerifyAccess(token string) (*sec.AuthClaims, error)
}

// # Context Plumbing

type identityContextKey struct{}

// ContextWithIdentity attaches the resolved identity to the context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext extracts the resolved identity from the context.
// Returns nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok {
		return nil
	}
	return id
}
