// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package tenant

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris/scholaris/internal/platform/middleware"
	requestutil "github.com/scholaris/scholaris/internal/platform/request"
	"github.com/scholaris/scholaris/internal/platform/respond"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the institution endpoints. The router group is
// expected to sit behind Authenticate already.
//
// The administration group treats ADMIN as a platform operator: list,
// create, and status changes are not tenant-scoped, so an ADMIN may
// suspend any institution, not only their own. Institution-bound staff
// roles never reach these routes.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	// Platform administration
	router.Group(func(adminRoute chi.Router) {
		adminRoute.Use(middleware.RequireRole(sec.RoleAdmin))

		adminRoute.Get("/", handler.listInstitutions)
		adminRoute.Post("/", handler.createInstitution)
		adminRoute.Patch("/{institutionID}/status", handler.updateStatus)
	})

	// Tenant-scoped reads
	router.Group(func(tenantRoute chi.Router) {
		tenantRoute.Use(Require(handler.service))

		tenantRoute.Get("/{institutionID}", handler.getInstitution)
	})
}

func (handler *Handler) listInstitutions(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	institutions, total, err := handler.service.ListInstitutions(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, institutions, pagination.NewMeta(params.Page, params.Limit, total))
}

func (handler *Handler) createInstitution(writer http.ResponseWriter, request *http.Request) {
	var input CreateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	inst, err := handler.service.CreateInstitution(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, inst)
}

func (handler *Handler) getInstitution(writer http.ResponseWriter, request *http.Request) {
	// Require already resolved and validated the tenant.
	respond.OK(writer, FromContext(request.Context()))
}

func (handler *Handler) updateStatus(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Status string `json:"status"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	id := requestutil.Param(request, "institutionID")
	if err := handler.service.UpdateInstitutionStatus(request.Context(), id, input.Status); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
