// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package auth

import (
	"context"
	"time"

	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/platform/sec"
)

// Repository is the persistence contract for principals.
type Repository interface {
	GetPrincipal(ctx context.Context, id string) (*Principal, error)

	// FindByEmail returns the principal with its password hash loaded.
	// Email comparison is case-insensitive.
	FindByEmail(ctx context.Context, email string) (*Principal, error)

	// EmailExists is the fail-fast uniqueness probe. The database unique
	// constraint remains the real arbiter under concurrent registration.
	EmailExists(ctx context.Context, email string) (bool, error)

	// RegisterPrincipal creates the account, its primary role assignment,
	// and the role-specific profile row in one transaction.
	RegisterPrincipal(ctx context.Context, principal *Principal, roleID string, roleName sec.RoleName) error

	UpdateLastLogin(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// AuthState satisfies [identity.StateSource] for per-request principal
	// resolution.
	AuthState(ctx context.Context, userID string) (*identity.AuthState, error)
}

// ResetTokenRepository stores single-use password reset tokens by hash.
type ResetTokenRepository interface {
	// Insert stores a fresh token and invalidates any still-active tokens
	// for the same principal, so at most one token is redeemable at a time.
	Insert(ctx context.Context, token *ResetToken) error

	// Consume atomically marks the unconsumed, unexpired token matching
	// tokenHash as consumed and returns it. NotFound-classified errors
	// cover the missing, expired, and already-consumed cases alike.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*ResetToken, error)
}

// LoginThrottle tracks failed login attempts per email+IP pair.
type LoginThrottle interface {
	// RegisterFailure increments the failure counter and returns the new
	// count within the sliding window.
	RegisterFailure(ctx context.Context, email, ip string) (int, error)

	// Blocked reports whether the pair has exhausted its attempt budget.
	Blocked(ctx context.Context, email, ip string) (bool, error)

	// Reset clears the counter after a successful login.
	Reset(ctx context.Context, email, ip string) error
}
