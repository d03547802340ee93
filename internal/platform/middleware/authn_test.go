// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/middleware"
	"github.com/scholaris/scholaris/internal/platform/sec"
)

// stubResolver resolves a single known token.
type stubResolver struct {
	token    string
	identity *identity.Identity
}

func (r *stubResolver) Resolve(_ context.Context, rawToken, _, _ string) (*identity.Identity, error) {
	if rawToken == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}
	if rawToken != r.token {
		return nil, apperr.Unauthorized("Invalid authentication token")
	}
	return r.identity, nil
}

func (r *stubResolver) ResolveOptional(ctx context.Context, rawToken, ip, userAgent string) *identity.Identity {
	id, err := r.Resolve(ctx, rawToken, ip, userAgent)
	if err != nil {
		return nil
	}
	return id
}

func teacherIdentity() *identity.Identity {
	return &identity.Identity{
		ID:            "principal-1",
		Email:         "t@example.com",
		InstitutionID: "inst-1",
		RoleID:        "role-1",
		RoleName:      sec.RoleTeacher,
		IsActive:      true,
	}
}

// echoIdentity writes 204 when an identity reached the handler, 418 otherwise.
func echoIdentity() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if identity.FromContext(request.Context()) == nil {
			writer.WriteHeader(http.StatusTeapot)
			return
		}
		writer.WriteHeader(http.StatusNoContent)
	})
}

/*
TestAuthenticate verifies the blocking middleware admits only a resolvable
bearer token.
*/
func TestAuthenticate(t *testing.T) {
	resolver := &stubResolver{token: "good-token", identity: teacherIdentity()}
	handler := middleware.Authenticate(resolver)(echoIdentity())

	testCases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid_token", "Bearer good-token", http.StatusNoContent},
		{"missing_header", "", http.StatusUnauthorized},
		{"wrong_token", "Bearer bad-token", http.StatusUnauthorized},
		{"malformed_scheme", "bearer good-token", http.StatusUnauthorized},
		{"double_space", "Bearer  good-token", http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.authHeader != "" {
				request.Header.Set("Authorization", tc.authHeader)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)
			assert.Equal(t, tc.wantStatus, recorder.Code)
		})
	}
}

/*
TestAuthenticateOptional verifies the non-blocking variant serves anonymous
traffic and attaches the identity when the token resolves.
*/
func TestAuthenticateOptional(t *testing.T) {
	resolver := &stubResolver{token: "good-token", identity: teacherIdentity()}
	handler := middleware.AuthenticateOptional(resolver)(echoIdentity())

	// 1. No token: request proceeds without an identity
	request := httptest.NewRequest(http.MethodGet, "/public", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusTeapot, recorder.Code)

	// 2. Unusable token: still anonymous, never blocked
	request = httptest.NewRequest(http.MethodGet, "/public", nil)
	request.Header.Set("Authorization", "Bearer bad-token")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusTeapot, recorder.Code)

	// 3. Valid token: identity attached
	request = httptest.NewRequest(http.MethodGet, "/public", nil)
	request.Header.Set("Authorization", "Bearer good-token")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

/*
TestRequireRole verifies the allow-list gate and that ADMIN gets no implicit
pass.
*/
func TestRequireRole(t *testing.T) {
	allow := func(roles ...sec.RoleName) http.Handler {
		return middleware.RequireRole(roles...)(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusNoContent)
		}))
	}

	withRole := func(name sec.RoleName) *http.Request {
		id := teacherIdentity()
		id.RoleName = name
		request := httptest.NewRequest(http.MethodGet, "/protected", nil)
		return request.WithContext(identity.ContextWithIdentity(request.Context(), id))
	}

	// 1. Listed role passes
	recorder := httptest.NewRecorder()
	allow(sec.RoleTeacher, sec.RoleDirector).ServeHTTP(recorder, withRole(sec.RoleTeacher))
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	// 2. Unlisted role is refused
	recorder = httptest.NewRecorder()
	allow(sec.RoleDirector).ServeHTTP(recorder, withRole(sec.RoleTeacher))
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// 3. ADMIN is refused when not listed
	recorder = httptest.NewRecorder()
	allow(sec.RoleDirector).ServeHTTP(recorder, withRole(sec.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// 4. Unauthenticated request is refused outright
	recorder = httptest.NewRecorder()
	allow(sec.RoleTeacher).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
