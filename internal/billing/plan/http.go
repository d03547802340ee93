// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package plan

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/scholaris/scholaris/internal/platform/request"
	"github.com/scholaris/scholaris/internal/platform/respond"
	"github.com/scholaris/scholaris/pkg/uuid"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes mounts the plan catalogue. Reads are public: pricing pages
// consume them anonymously.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", handler.listPlans)
	router.Get("/{idOrSlug}", handler.getPlan)
}

func (handler *Handler) listPlans(writer http.ResponseWriter, request *http.Request) {
	plans, err := handler.repo.ListPlans(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, plans)
}

func (handler *Handler) getPlan(writer http.ResponseWriter, request *http.Request) {
	idOrSlug := requestutil.Param(request, "idOrSlug")

	// Human-readable URLs pass the slug; everything else must be a UUID.
	var (
		p   *Plan
		err error
	)
	if uuid.IsValid(idOrSlug) {
		p, err = handler.repo.GetPlan(request.Context(), idOrSlug)
	} else {
		p, err = handler.repo.GetPlanBySlug(request.Context(), idOrSlug)
	}
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, p)
}
