// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package tenant

import (
	"net/http"

	"github.com/scholaris/scholaris/internal/iam/identity"
	requestutil "github.com/scholaris/scholaris/internal/platform/request"
	"github.com/scholaris/scholaris/internal/platform/respond"
)

// Require resolves the request's tenant and publishes the full institution
// record into the context.
//
// Must be registered AFTER authentication: tenant resolution without a
// principal is a BadRequest by contract. The target institution comes from
// the "institutionID" path parameter when the route declares one, otherwise
// the principal's home institution is used.
func Require(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal := identity.FromContext(request.Context())
			targetID := requestutil.Param(request, "institutionID")

			inst, err := service.ResolveTenant(request.Context(), principal, targetID)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			ctx := ContextWithInstitution(request.Context(), inst)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}
