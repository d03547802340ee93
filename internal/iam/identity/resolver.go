// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/audit"
	"github.com/scholaris/scholaris/internal/platform/metrics"
	"github.com/scholaris/scholaris/internal/platform/sec"
)

// Resolution failure reasons, recorded in audit events.
const (
	reasonMissingToken        = "missing_token"
	reasonTokenExpired        = "token_expired"
	reasonTokenInvalid        = "token_invalid"
	reasonPrincipalNotFound   = "principal_not_found"
	reasonPrincipalInactive   = "principal_inactive"
	reasonInstitutionInactive = "institution_inactive"
	reasonNoRoleAssignment    = "no_role_assignment"
)

/*
Resolver turns a bearer token into a verified Identity.

Failures follow a fixed precedence so that the first problem encountered is
the one reported: missing token, then expired token, then malformed token,
then unknown principal, then deactivated principal, then suspended
institution, and finally a principal with no role assignment.
*/
type Resolver struct {
	tokens  TokenVerifier
	source  StateSource
	auditor *audit.Recorder
	logger  *slog.Logger
}

// NewResolver creates a Resolver backed by the given verifier and state source.
func NewResolver(tokens TokenVerifier, source StateSource, auditor *audit.Recorder, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		tokens:  tokens,
		source:  source,
		auditor: auditor,
		logger:  logger,
	}
}

/*
Resolve verifies the raw bearer token and loads the principal's current
state. On success the returned Identity reflects the database, not the
token claims, so revocations are honored immediately.

Parameters:
  - ctx: request context
  - rawToken: the bearer token with the scheme already stripped; empty
    means the request carried no credentials
  - ip, userAgent: request metadata for audit events

Returns the verified identity, or an error classified by apperr.
*/
func (resolver *Resolver) Resolve(ctx context.Context, rawToken, ip, userAgent string) (*Identity, error) {
	if rawToken == "" {
		resolver.deny(ctx, "", "", ip, userAgent, reasonMissingToken)
		return nil, apperr.Unauthorized("Authentication required")
	}

	claims, err := resolver.tokens.VerifyAccess(rawToken)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			resolver.deny(ctx, "", "", ip, userAgent, reasonTokenExpired)
			return nil, apperr.Unauthorized("Token has expired")
		}
		resolver.deny(ctx, "", "", ip, userAgent, reasonTokenInvalid)
		return nil, apperr.Unauthorized("Invalid authentication token")
	}

	state, err := resolver.source.AuthState(ctx, claims.UserID)
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			resolver.deny(ctx, claims.UserID, claims.InstitutionID, ip, userAgent, reasonPrincipalNotFound)
			return nil, apperr.Unauthorized("Account no longer exists")
		}
		resolver.logger.ErrorContext(ctx, "failed to load auth state", "error", err, "user_id", claims.UserID)
		return nil, apperr.Internal(err)
	}

	// A deactivated account is treated like a revoked credential: the token
	// no longer authenticates anyone, so this is 401, not 403.
	if !state.IsActive {
		resolver.deny(ctx, state.ID, state.InstitutionID, ip, userAgent, reasonPrincipalInactive)
		return nil, apperr.Unauthorized("Account is deactivated")
	}
	if !state.InstitutionActive {
		resolver.deny(ctx, state.ID, state.InstitutionID, ip, userAgent, reasonInstitutionInactive)
		return nil, apperr.Forbidden("Institution is not active")
	}
	if !state.HasRole {
		resolver.deny(ctx, state.ID, state.InstitutionID, ip, userAgent, reasonNoRoleAssignment)
		return nil, apperr.Forbidden("No active role assignment")
	}

	metrics.RecordDecision(metrics.StageAuthentication, metrics.OutcomeAllowed)
	return &Identity{
		ID:            state.ID,
		Email:         state.Email,
		InstitutionID: state.InstitutionID,
		RoleID:        state.RoleID,
		RoleName:      state.RoleName,
		IsActive:      state.IsActive,
	}, nil
}

/*
ResolveOptional behaves like Resolve but never fails the request: an absent
token yields an anonymous (nil) identity, and a token that fails any
resolution step is treated as if it were absent. Suppressed failures are
still audited so that probing with stale tokens leaves a trace.
*/
func (resolver *Resolver) ResolveOptional(ctx context.Context, rawToken, ip, userAgent string) *Identity {
	if rawToken == "" {
		return nil
	}

	id, err := resolver.Resolve(ctx, rawToken, ip, userAgent)
	if err != nil {
		resolver.auditor.Record(ctx, audit.Event{
			Name:      audit.EventAuthOptionalSuppressed,
			IP:        ip,
			UserAgent: userAgent,
		})
		return nil
	}
	return id
}

func (resolver *Resolver) deny(ctx context.Context, principalID, institutionID, ip, userAgent, reason string) {
	metrics.RecordDecision(metrics.StageAuthentication, metrics.OutcomeDenied)
	resolver.auditor.Record(ctx, audit.Event{
		Name:          audit.EventAuthDenied,
		PrincipalID:   principalID,
		InstitutionID: institutionID,
		IP:            ip,
		UserAgent:     userAgent,
		Details:       map[string]any{"reason": reason},
	})
}
