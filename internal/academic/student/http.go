// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package student

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris/scholaris/internal/platform/middleware"
	requestutil "github.com/scholaris/scholaris/internal/platform/request"
	"github.com/scholaris/scholaris/internal/platform/respond"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/internal/tenant"
	"github.com/scholaris/scholaris/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the roster endpoints. The group must sit behind
// Authenticate and tenant.Require.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Group(func(rosterRoute chi.Router) {
		rosterRoute.Use(middleware.RequireRole(sec.RoleAdmin, sec.RoleSecretary, sec.RoleDirector))

		rosterRoute.Get("/", handler.listStudents)
		rosterRoute.Post("/", handler.createStudent)
		rosterRoute.Get("/{studentID}", handler.getStudent)
		rosterRoute.Patch("/{studentID}", handler.updateStudent)
		rosterRoute.Post("/bulk-delete", handler.bulkDelete)

		rosterRoute.With(middleware.RequireRole(sec.RoleAdmin, sec.RoleDirector)).
			Delete("/{studentID}", handler.deleteStudent)
	})
}

func (handler *Handler) listStudents(writer http.ResponseWriter, request *http.Request) {
	inst := tenant.FromContext(request.Context())
	params := pagination.FromRequest(request)

	students, total, err := handler.service.ListStudents(request.Context(), inst.ID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, students, pagination.NewMeta(params.Page, params.Limit, total))
}

func (handler *Handler) getStudent(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	s, err := handler.service.GetStudent(request.Context(), principal, requestutil.Param(request, "studentID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, s)
}

func (handler *Handler) createStudent(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input CreateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	s, err := handler.service.CreateStudent(request.Context(), principal, tenant.FromContext(request.Context()), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, s)
}

func (handler *Handler) updateStudent(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input UpdateInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	s, err := handler.service.UpdateStudent(request.Context(), principal, requestutil.Param(request, "studentID"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, s)
}

func (handler *Handler) deleteStudent(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteStudent(request.Context(), principal, requestutil.Param(request, "studentID")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) bulkDelete(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input struct {
		IDs []string `json:"ids"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	deleted, err := handler.service.DeleteStudents(request.Context(), principal, input.IDs)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int{"deleted": deleted})
}
