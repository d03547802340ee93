// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

// Package ctxkey defines typed context keys used by middleware and handlers.
//
// # Safety
//
// Using a private, unexported type for keys prevents collisions with
// third-party packages that also store request-scoped values in context.
// Domain packages that publish their own context values (identity, tenant)
// use package-local keys of the same shape.
package ctxkey

// key is an unexported type used for context keys to ensure type safety.
type key string

const (
	// KeyRequestID is the context key for the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyLogger is the context key for the per-request [*log/slog.Logger].
	KeyLogger key = "logger"
)
