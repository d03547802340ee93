// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package role

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris/scholaris/internal/platform/middleware"
	requestutil "github.com/scholaris/scholaris/internal/platform/request"
	"github.com/scholaris/scholaris/internal/platform/respond"
	"github.com/scholaris/scholaris/internal/platform/sec"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the role administration endpoints. The group must
// sit behind Authenticate.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", handler.listRoles)

	router.Group(func(adminRoute chi.Router) {
		adminRoute.Use(middleware.RequireRole(sec.RoleAdmin, sec.RoleDirector))

		adminRoute.Post("/assignments", handler.assign)
		adminRoute.Get("/assignments/{principalID}", handler.listAssignments)
		adminRoute.Put("/assignments/{principalID}/primary/{assignmentID}", handler.setPrimary)
	})
}

func (handler *Handler) listRoles(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	roles, err := handler.service.ListRoles(request.Context(), principal.InstitutionID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, roles)
}

func (handler *Handler) assign(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input AssignInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	assignment, err := handler.service.Assign(request.Context(), principal.InstitutionID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, assignment)
}

func (handler *Handler) listAssignments(writer http.ResponseWriter, request *http.Request) {
	principalID := requestutil.Param(request, "principalID")

	assignments, err := handler.service.ListAssignments(request.Context(), principalID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, assignments)
}

func (handler *Handler) setPrimary(writer http.ResponseWriter, request *http.Request) {
	principalID := requestutil.Param(request, "principalID")
	assignmentID := requestutil.Param(request, "assignmentID")

	if err := handler.service.SetPrimary(request.Context(), principalID, assignmentID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
