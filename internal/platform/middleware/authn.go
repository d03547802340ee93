// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package middleware

import (
	"context"
	"net/http"

	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/constants"
	"github.com/scholaris/scholaris/internal/platform/respond"
	"github.com/scholaris/scholaris/internal/platform/sec"
)

// IdentityResolver defines the behavior needed to authenticate a request.
//
// # Why an interface?
//
// Defining IdentityResolver here decouples the middleware from the identity
// service implementation, allowing us to easily inject mocks during unit testing.
type IdentityResolver interface {
	Resolve(ctx context.Context, rawToken, ip, userAgent string) (*identity.Identity, error)
	ResolveOptional(ctx context.Context, rawToken, ip, userAgent string) *identity.Identity
}

// Authenticate resolves the bearer token into a verified identity and blocks
// the request if resolution fails at any step.
//
// # Flow
//  1. Extract the token from 'Authorization: Bearer <token>'.
//  2. Resolve it against token signature AND current account state.
//  3. Inject the [*identity.Identity] into the request context.
//
// A missing or malformed header fails with 401; state failures (deactivated
// account, suspended institution, no role) fail with 403.
func Authenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			rawToken := sec.ExtractBearer(request.Header.Get(constants.HeaderAuthorization))

			id, err := resolver.Resolve(request.Context(), rawToken, RealIP(request), request.UserAgent())
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			ctx := identity.ContextWithIdentity(request.Context(), id)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// AuthenticateOptional resolves the bearer token when present but never
// blocks the request. Routes behind it serve both anonymous and
// authenticated traffic; an unusable token is treated as anonymous.
func AuthenticateOptional(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			rawToken := sec.ExtractBearer(request.Header.Get(constants.HeaderAuthorization))

			if id := resolver.ResolveOptional(request.Context(), rawToken, RealIP(request), request.UserAgent()); id != nil {
				request = request.WithContext(identity.ContextWithIdentity(request.Context(), id))
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [AuthenticateOptional] on routes
// that mix the two middlewares; routes behind [Authenticate] do not need it.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if identity.FromContext(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests whose principal's active role is not in the
// allowed set. There is no implicit admin bypass; ADMIN must be listed
// explicitly where it is allowed.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireRole(allowed ...sec.RoleName) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			id := identity.FromContext(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if id == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !id.RoleName.In(allowed...) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
