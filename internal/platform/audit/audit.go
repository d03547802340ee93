// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

/*
Package audit emits the structured security event trail.

Every authentication and authorization decision point records a named event
with enough context to reconstruct the decision (who, what resource, what
reason). Events are structured slog records with a fixed "audit" marker so
they can be filtered from ordinary application logs downstream.

Secrets — password values, raw tokens — must never appear in event details;
callers pass identifiers and token hashes only.
*/
package audit

import (
	"context"
	"log/slog"

	"github.com/scholaris/scholaris/internal/platform/ctxutil"
)

// # Event Names

const (
	EventLoginSuccess           = "login_success"
	EventLoginFailed            = "login_failed"
	EventLoginThrottled         = "login_throttled"
	EventUserRegistered         = "user_registered"
	EventUserCreated            = "user_created"
	EventTokenRefreshed         = "token_refreshed"
	EventPasswordChanged        = "password_changed"
	EventPasswordResetRequested = "password_reset_requested"
	EventPasswordResetCompleted = "password_reset_completed"
	EventAuthDenied             = "auth_denied"
	EventAuthSucceeded          = "auth_succeeded"
	EventAuthOptionalSuppressed = "auth_optional_suppressed"
	EventTenantAccessDenied     = "tenant_access_denied"
	EventResourceAccessDenied   = "resource_access_denied"
	EventPlanLimitDenied        = "plan_limit_denied"
	EventFeatureDenied          = "feature_denied"
)

// Event is a single audit record.
type Event struct {
	// Name identifies the decision point (see the Event* constants).
	Name string

	// PrincipalID is the acting user, when known.
	PrincipalID string

	// InstitutionID is the tenant scope of the decision, when known.
	InstitutionID string

	// IP and UserAgent describe the client, when the event originates
	// from an HTTP request.
	IP        string
	UserAgent string

	// Details carries decision-specific context (reason, resource kind,
	// limits). Never secrets.
	Details map[string]any
}

// Recorder writes audit events through a structured logger.
//
// A Recorder is safe for concurrent use. A nil Recorder drops events, which
// keeps unit-test wiring terse.
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder constructs a Recorder on top of the given logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// Record emits one audit event, enriched with the request ID from ctx.
func (recorder *Recorder) Record(ctx context.Context, event Event) {
	if recorder == nil || recorder.logger == nil {
		return
	}

	attrs := make([]any, 0, 8+len(event.Details))
	attrs = append(attrs, slog.String("audit", "true"))

	if rid := ctxutil.GetRequestID(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if event.PrincipalID != "" {
		attrs = append(attrs, slog.String("principal_id", event.PrincipalID))
	}
	if event.InstitutionID != "" {
		attrs = append(attrs, slog.String("institution_id", event.InstitutionID))
	}
	if event.IP != "" {
		attrs = append(attrs, slog.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	for key, value := range event.Details {
		attrs = append(attrs, slog.Any(key, value))
	}

	recorder.logger.InfoContext(ctx, event.Name, attrs...)
}
