// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package sec_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholaris/scholaris/internal/platform/sec"
)

const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcde"
	testIssuer        = "scholaris.app"
	testAudience      = "scholaris-api"
)

func newTestTokenService(t *testing.T, opts ...sec.TokenOption) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService(testAccessSecret, testRefreshSecret, testIssuer, testAudience, opts...)
	require.NoError(t, err)
	return service
}

/*
TestTokenService_Construction verifies the secret independence and length
requirements.
*/
func TestTokenService_Construction(t *testing.T) {
	// 1. Short access secret
	_, err := sec.NewTokenService("short", testRefreshSecret, testIssuer, testAudience)
	assert.Error(t, err)

	// 2. Short refresh secret
	_, err = sec.NewTokenService(testAccessSecret, "short", testIssuer, testAudience)
	assert.Error(t, err)

	// 3. Identical secrets
	_, err = sec.NewTokenService(testAccessSecret, testAccessSecret, testIssuer, testAudience)
	assert.Error(t, err)

	// 4. Missing issuer or audience
	_, err = sec.NewTokenService(testAccessSecret, testRefreshSecret, "", testAudience)
	assert.Error(t, err)
	_, err = sec.NewTokenService(testAccessSecret, testRefreshSecret, testIssuer, "")
	assert.Error(t, err)
}

/*
TestTokenService_AccessRoundTrip verifies claims survive issue and verify.
*/
func TestTokenService_AccessRoundTrip(t *testing.T) {
	service := newTestTokenService(t)

	token, err := service.IssueAccessToken("user-1", "inst-1", "role-1", "TEACHER", "t@example.com")
	require.NoError(t, err)

	claims, err := service.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "inst-1", claims.InstitutionID)
	assert.Equal(t, "role-1", claims.RoleID)
	assert.Equal(t, "TEACHER", claims.RoleName)
	assert.Equal(t, "t@example.com", claims.Email)
	assert.Equal(t, testIssuer, claims.Issuer)
}

/*
TestTokenService_RefreshRoundTrip verifies the identity-only refresh token.
*/
func TestTokenService_RefreshRoundTrip(t *testing.T) {
	service := newTestTokenService(t)

	token, err := service.IssueRefreshToken("user-1", "inst-1")
	require.NoError(t, err)

	claims, err := service.VerifyRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "inst-1", claims.InstitutionID)
}

/*
TestTokenService_CrossSecretRejection verifies that tokens of one class are
not accepted by the verifier of the other.
*/
func TestTokenService_CrossSecretRejection(t *testing.T) {
	service := newTestTokenService(t)

	access, err := service.IssueAccessToken("user-1", "inst-1", "role-1", "ADMIN", "a@example.com")
	require.NoError(t, err)
	refresh, err := service.IssueRefreshToken("user-1", "inst-1")
	require.NoError(t, err)

	_, err = service.VerifyRefresh(access)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
	_, err = service.VerifyAccess(refresh)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_Expiry verifies that an expired token surfaces the distinct
expiry error, via an injected clock.
*/
func TestTokenService_Expiry(t *testing.T) {
	current := time.Now()
	clock := &current

	service := newTestTokenService(t,
		sec.WithAccessTTL(time.Minute),
		sec.WithClock(func() time.Time { return *clock }),
	)

	token, err := service.IssueAccessToken("user-1", "inst-1", "role-1", "STUDENT", "s@example.com")
	require.NoError(t, err)

	// 1. Fresh token verifies
	_, err = service.VerifyAccess(token)
	require.NoError(t, err)

	// 2. Move past the TTL
	current = current.Add(2 * time.Minute)
	_, err = service.VerifyAccess(token)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
}

/*
TestTokenService_TamperRejection verifies that a modified payload fails as
invalid, not as expired.
*/
func TestTokenService_TamperRejection(t *testing.T) {
	service := newTestTokenService(t)

	token, err := service.IssueAccessToken("user-1", "inst-1", "role-1", "STUDENT", "s@example.com")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + ".eyJ1aWQiOiJ1c2VyLTIifQ." + parts[2]

	_, err = service.VerifyAccess(tampered)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_WrongIssuerAudience verifies exact issuer/audience matching.
*/
func TestTokenService_WrongIssuerAudience(t *testing.T) {
	other, err := sec.NewTokenService(testAccessSecret, testRefreshSecret, "other.app", "other-api")
	require.NoError(t, err)
	service := newTestTokenService(t)

	// Same secrets, different issuer and audience: rejected.
	token, err := other.IssueAccessToken("user-1", "inst-1", "role-1", "ADMIN", "a@example.com")
	require.NoError(t, err)

	_, err = service.VerifyAccess(token)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_IssuePair verifies the transport envelope of a token pair.
*/
func TestTokenService_IssuePair(t *testing.T) {
	service := newTestTokenService(t, sec.WithAccessTTL(time.Hour))

	pair, err := service.IssuePair("user-1", "inst-1", "role-1", "DIRECTOR", "d@example.com")
	require.NoError(t, err)

	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	_, err = service.VerifyAccess(pair.AccessToken)
	assert.NoError(t, err)
	_, err = service.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err)
}

/*
TestExtractBearer verifies the strict "Bearer <token>" header format.
*/
func TestExtractBearer(t *testing.T) {
	testCases := []struct {
		name   string
		header string
		want   string
	}{
		{"well formed", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"empty header", "", ""},
		{"missing scheme", "abc.def.ghi", ""},
		{"lowercase scheme", "bearer abc.def.ghi", ""},
		{"wrong scheme", "Basic abc.def.ghi", ""},
		{"no token", "Bearer ", ""},
		{"embedded space", "Bearer abc def", ""},
		{"double space", "Bearer  abc", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sec.ExtractBearer(tc.header))
		})
	}
}

/*
TestTokenService_IsExpiringSoon verifies the proactive refresh window.
*/
func TestTokenService_IsExpiringSoon(t *testing.T) {
	current := time.Now()
	service := newTestTokenService(t,
		sec.WithAccessTTL(time.Hour),
		sec.WithClock(func() time.Time { return current }),
	)

	token, err := service.IssueAccessToken("user-1", "inst-1", "role-1", "ADMIN", "a@example.com")
	require.NoError(t, err)

	// 1. One hour remaining, 15m threshold: not soon
	assert.False(t, service.IsExpiringSoon(token, 15*time.Minute))

	// 2. Threshold beyond remaining lifetime: soon
	assert.True(t, service.IsExpiringSoon(token, 2*time.Hour))

	// 3. Undecodable token fails safe
	assert.True(t, service.IsExpiringSoon("garbage", 15*time.Minute))
}
