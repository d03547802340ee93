// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

/*
Package auth orchestrates the authentication workflows: registration,
login, token refresh, and the password lifecycle.

The package owns no policy of its own — it sequences the credential vault,
the token service, and the persistence stores, keeping each flow atomic:
either the whole flow commits or nothing persists beyond audit events.
*/
package auth

import "time"

// Principal is a human account able to authenticate.
type Principal struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  *string    `json:"-"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	InstitutionID string     `json:"institution_id"`
	IsActive      bool       `json:"is_active"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ResetToken is a single-use password reset credential. Only the SHA-256
// hash of the raw token is ever stored or compared; consumption is atomic
// so a token cannot be replayed.
type ResetToken struct {
	ID          string     `json:"id"`
	TokenHash   string     `json:"-"`
	PrincipalID string     `json:"principal_id"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ConsumedAt  *time.Time `json:"consumed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

const (
	// ResetTokenTTL is how long a password reset token stays redeemable.
	ResetTokenTTL = 15 * time.Minute

	// ResetUniformDelay is the minimum wall-clock duration of every
	// RequestPasswordReset call. Unknown and inactive accounts take exactly
	// as long as real ones, closing the timing side channel.
	ResetUniformDelay = 1 * time.Second
)

// Validated entity field identifiers.
const (
	FieldEmail         = "email"
	FieldPassword      = "password"
	FieldFirstName     = "first_name"
	FieldLastName      = "last_name"
	FieldInstitutionID = "institution_id"
	FieldRoleName      = "role_name"
	FieldToken         = "token"
)
