// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package course

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

// RegisterRoutes mounts the catalog endpoints. The group must sit behind
// Authenticate and tenant.Require.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", handler.listCourses)
	router.Get("/{courseID}", handler.getCourse)

	router.Group(func(authorRoute chi.Router) {
		authorRoute.Use(middleware.RequireRole(sec.RoleAdmin, sec.RoleDirector, sec.RoleTeacher))

		authorRoute.Post("/", handler.createCourse)
		authorRoute.Patch("/{courseID}", handler.updateCourse)
		authorRoute.Put("/{courseID}/publish", handler.publishCourse)
		authorRoute.Delete("/{courseID}/publish", handler.unpublishCourse)
	})

	router.With(middleware.RequireRole(sec.RoleAdmin, sec.RoleDirector)).
		Delete("/{courseID}", handler.deleteCourse)
}

func (handler *Handler) listCourses(writer http.ResponseWriter, request *http.Request) {
	inst := tenant.FromContext(request.Context())
	params := pagination.FromRequest(request)

	courses, total, err := handler.service.ListCourses(request.Context(), inst.ID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, courses, pagination.NewMeta(params.Page, params.Limit, total))
}

func (handler *Handler) getCourse(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	c, err := handler.service.GetCourse(request.Context(), principal, requestutil.Param(request, "courseID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, c)
}

func (handler *Handler) createCourse(writer http.ResponseWriter, request *http.Request) {
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

	c, err := handler.service.CreateCourse(request.Context(), principal, tenant.FromContext(request.Context()), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, c)
}

func (handler *Handler) updateCourse(writer http.ResponseWriter, request *http.Request) {
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

	c, err := handler.service.UpdateCourse(request.Context(), principal, requestutil.Param(request, "courseID"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, c)
}

func (handler *Handler) publishCourse(writer http.ResponseWriter, request *http.Request) {
	handler.togglePublished(writer, request, true)
}

func (handler *Handler) unpublishCourse(writer http.ResponseWriter, request *http.Request) {
	handler.togglePublished(writer, request, false)
}

func (handler *Handler) togglePublished(writer http.ResponseWriter, request *http.Request, published bool) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	c, err := handler.service.SetPublished(request.Context(), principal, requestutil.Param(request, "courseID"), published)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, c)
}

func (handler *Handler) deleteCourse(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteCourse(request.Context(), principal, requestutil.Param(request, "courseID")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
