// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package identity_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/audit"
	"github.com/scholaris/scholaris/internal/platform/sec"
)

// fakeVerifier maps raw tokens to canned claims or errors.
type fakeVerifier struct {
	claims map[string]*sec.AuthClaims
	errs   map[string]error
}

func (v *fakeVerifier) VerifyAccess(token string) (*sec.AuthClaims, error) {
	if err, ok := v.errs[token]; ok {
		return nil, err
	}
	if claims, ok := v.claims[token]; ok {
		return claims, nil
	}
	return nil, sec.ErrTokenInvalid
}

// fakeStateSource maps user IDs to canned auth states.
type fakeStateSource struct {
	states map[string]*identity.AuthState
}

func (s *fakeStateSource) AuthState(_ context.Context, userID string) (*identity.AuthState, error) {
	state, ok := s.states[userID]
	if !ok {
		return nil, apperr.NotFound("Account")
	}
	return state, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func healthyState(userID string) *identity.AuthState {
	return &identity.AuthState{
		ID:                userID,
		Email:             userID + "@example.com",
		InstitutionID:     "inst-1",
		IsActive:          true,
		InstitutionActive: true,
		HasRole:           true,
		RoleID:            "role-1",
		RoleName:          sec.RoleTeacher,
	}
}

func newTestResolver(verifier *fakeVerifier, source *fakeStateSource) *identity.Resolver {
	logger := testLogger()
	return identity.NewResolver(verifier, source, audit.NewRecorder(logger), logger)
}

/*
TestResolver_Success verifies that a valid token for a healthy principal
produces an identity reflecting the stored state.
*/
func TestResolver_Success(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*sec.AuthClaims{
		"good-token": {UserID: "user-1", InstitutionID: "inst-1"},
	}}
	source := &fakeStateSource{states: map[string]*identity.AuthState{
		"user-1": healthyState("user-1"),
	}}
	resolver := newTestResolver(verifier, source)

	id, err := resolver.Resolve(context.Background(), "good-token", "1.2.3.4", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.ID)
	assert.Equal(t, "inst-1", id.InstitutionID)
	assert.Equal(t, sec.RoleTeacher, id.RoleName)
	assert.True(t, id.IsActive)
}

/*
TestResolver_FailureOrder walks every rung of the failure ladder and checks
the classification and message of each.
*/
func TestResolver_FailureOrder(t *testing.T) {
	inactive := healthyState("inactive-user")
	inactive.IsActive = false

	suspended := healthyState("suspended-user")
	suspended.InstitutionActive = false

	roleless := healthyState("roleless-user")
	roleless.HasRole = false

	verifier := &fakeVerifier{
		claims: map[string]*sec.AuthClaims{
			"ghost-token":     {UserID: "ghost-user"},
			"inactive-token":  {UserID: "inactive-user"},
			"suspended-token": {UserID: "suspended-user"},
			"roleless-token":  {UserID: "roleless-user"},
		},
		errs: map[string]error{
			"expired-token": sec.ErrTokenExpired,
			"bogus-token":   sec.ErrTokenInvalid,
		},
	}
	source := &fakeStateSource{states: map[string]*identity.AuthState{
		"inactive-user":  inactive,
		"suspended-user": suspended,
		"roleless-user":  roleless,
	}}
	resolver := newTestResolver(verifier, source)

	testCases := []struct {
		name    string
		token   string
		code    string
		message string
	}{
		{"missing token", "", apperr.CodeUnauthorized, "Authentication required"},
		{"expired token", "expired-token", apperr.CodeUnauthorized, "Token has expired"},
		{"invalid token", "bogus-token", apperr.CodeUnauthorized, "Invalid authentication token"},
		{"principal not found", "ghost-token", apperr.CodeUnauthorized, "Account no longer exists"},
		{"principal inactive", "inactive-token", apperr.CodeUnauthorized, "Account is deactivated"},
		{"institution inactive", "suspended-token", apperr.CodeForbidden, "Institution is not active"},
		{"no role assignment", "roleless-token", apperr.CodeForbidden, "No active role assignment"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := resolver.Resolve(context.Background(), tc.token, "1.2.3.4", "test-agent")
			assert.Nil(t, id)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, tc.code))
			assert.Equal(t, tc.message, err.Error())
		})
	}
}

/*
TestResolver_InactivePrecedesSuspended verifies that when both the account
and its institution are disabled, the account state is reported first.
*/
func TestResolver_InactivePrecedesSuspended(t *testing.T) {
	state := healthyState("user-1")
	state.IsActive = false
	state.InstitutionActive = false

	verifier := &fakeVerifier{claims: map[string]*sec.AuthClaims{
		"token": {UserID: "user-1"},
	}}
	source := &fakeStateSource{states: map[string]*identity.AuthState{"user-1": state}}
	resolver := newTestResolver(verifier, source)

	_, err := resolver.Resolve(context.Background(), "token", "", "")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.CodeUnauthorized))
	assert.Equal(t, "Account is deactivated", err.Error())
}

/*
TestResolver_Optional verifies that the optional variant suppresses every
failure into an anonymous identity.
*/
func TestResolver_Optional(t *testing.T) {
	verifier := &fakeVerifier{
		claims: map[string]*sec.AuthClaims{
			"good-token": {UserID: "user-1"},
		},
		errs: map[string]error{"expired-token": sec.ErrTokenExpired},
	}
	source := &fakeStateSource{states: map[string]*identity.AuthState{
		"user-1": healthyState("user-1"),
	}}
	resolver := newTestResolver(verifier, source)

	// 1. Absent token: anonymous, no error
	assert.Nil(t, resolver.ResolveOptional(context.Background(), "", "", ""))

	// 2. Failing token: suppressed to anonymous
	assert.Nil(t, resolver.ResolveOptional(context.Background(), "expired-token", "", ""))

	// 3. Valid token still resolves
	id := resolver.ResolveOptional(context.Background(), "good-token", "", "")
	require.NotNil(t, id)
	assert.Equal(t, "user-1", id.ID)
}

/*
TestIdentityContext verifies the context round-trip and nil handling.
*/
func TestIdentityContext(t *testing.T) {
	ctx := context.Background()

	// 1. Anonymous context
	assert.Nil(t, identity.FromContext(ctx))

	// 2. Nil identity is not stored
	assert.Nil(t, identity.FromContext(identity.ContextWithIdentity(ctx, nil)))

	// 3. Round-trip
	id := &identity.Identity{ID: "user-1"}
	got := identity.FromContext(identity.ContextWithIdentity(ctx, id))
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.ID)
}
