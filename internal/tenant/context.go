// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package tenant

import "context"

type institutionContextKey struct{}

// ContextWithInstitution attaches the resolved tenant to the context.
func ContextWithInstitution(ctx context.Context, inst *Institution) context.Context {
	if inst == nil {
		return ctx
	}
	return context.WithValue(ctx, institutionContextKey{}, inst)
}

// FromContext extracts the resolved tenant from the context. Returns nil
// when no tenant has been established for the request.
func FromContext(ctx context.Context) *Institution {
	inst, ok := ctx.Value(institutionContextKey{}).(*Institution)
	if !ok {
		return nil
	}
	return inst
}
